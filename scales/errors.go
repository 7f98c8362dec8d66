package scales

import "errors"

// Configuration errors. Callers treat both as "catalog unavailable".
var (
	ErrMissingCatalog   = errors.New("scale catalog missing")
	ErrMalformedCatalog = errors.New("scale catalog malformed")
)
