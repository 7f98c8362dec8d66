package melody

import "errors"

var (
	// ErrBadPitch is returned for labels that are not of the form C4, C#4 or Db4.
	ErrBadPitch = errors.New("invalid pitch label")

	// ErrBadTempo is returned when exporting with a non-positive tempo.
	ErrBadTempo = errors.New("tempo must be positive")
)
