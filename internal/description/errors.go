package description

import "errors"

// notFoundError signals that the description file does not exist.
type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "config not found: " + e.path }

// ErrNotFound returns the error reported for a missing description file.
func ErrNotFound(path string) error { return notFoundError{path: path} }

// IsNotFound reports whether err indicates a missing description file.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// parseError signals a description that could not be read or does not have
// the expected structure.
type parseError struct {
	path string
	msg  string
	err  error
}

func (e parseError) Error() string {
	s := "config parse error"
	if e.path != "" {
		s += " in " + e.path
	}
	s += ": " + e.msg
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e parseError) Unwrap() error { return e.err }

// IsParseError reports whether err indicates an unreadable or malformed description.
func IsParseError(err error) bool {
	var e parseError
	return errors.As(err, &e)
}
