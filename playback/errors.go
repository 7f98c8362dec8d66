package playback

import "errors"

// ErrUnknownPolicy is returned by ParseOverlapPolicy.
var ErrUnknownPolicy = errors.New("unknown overlap policy")
