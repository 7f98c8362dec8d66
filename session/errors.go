package session

import "errors"

// ErrUnknownScale is returned when selecting a name the catalog lacks.
var ErrUnknownScale = errors.New("unknown scale")
