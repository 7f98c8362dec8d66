package audio

import "errors"

var (
	// ErrUnknownInstrument is returned by ParseKind.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrMissingInstruments means the instrument tables could not be loaded.
	ErrMissingInstruments = errors.New("instrument data missing")

	// ErrNoBackend is returned by Acquire when no factory is configured.
	ErrNoBackend = errors.New("no audio backend factory")
)
