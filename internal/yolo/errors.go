package yolo

import (
	"errors"
	"fmt"
)

// buildError signals that a model could not be constructed from its description.
type buildError struct {
	layer  int
	module string
	err    error
}

func (e buildError) Error() string {
	if e.layer < 0 {
		return "model build: " + e.err.Error()
	}
	return fmt.Sprintf("model build: layer %d (%s): %v", e.layer, e.module, e.err)
}

func (e buildError) Unwrap() error { return e.err }

// IsBuildError reports whether err came from Build.
func IsBuildError(err error) bool {
	var e buildError
	return errors.As(err, &e)
}
