package canvas

import "errors"

// ErrNoScale is returned when drawing starts before a scale is selected.
var ErrNoScale = errors.New("scale required before drawing")
