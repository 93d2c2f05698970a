package patch

import "errors"

// Errors returned by the patch engine. Callers match them with errors.Is;
// the returned errors carry the offending offset, size or path as context.
var (
	// ErrTooSmall means the image is shorter than a site requires.
	ErrTooSmall = errors.New("image smaller than expected")

	// ErrNoMatch means the image fingerprint matched no catalog variant.
	ErrNoMatch = errors.New("file did not match any known variant")

	// ErrInvalidValue means a semantic value could not be parsed or has the
	// wrong kind for the site it targets.
	ErrInvalidValue = errors.New("invalid value")

	// ErrIO wraps file system failures (read, write, backup).
	ErrIO = errors.New("i/o error")

	// ErrInvalidCatalog means catalog data failed validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
