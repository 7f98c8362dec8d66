package server

import "errors"

var (
	// ErrBadRequest is reported for malformed request bodies or parameters.
	ErrBadRequest = errors.New("bad request")

	// ErrNoDecoder is reported when key detection is requested but no audio
	// decoder is configured.
	ErrNoDecoder = errors.New("audio decoding unavailable")
)
