package ocr

import "errors"

// Error kinds. Concrete services wrap one of these so callers can classify
// a failure with errors.Is.
var (
	ErrConfig   = errors.New("configuration error")
	ErrIO       = errors.New("i/o error")
	ErrProvider = errors.New("provider error")
)

// KindOf returns a short name for the error kind wrapped by err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrProvider):
		return "provider"
	default:
		return "unknown"
	}
}
