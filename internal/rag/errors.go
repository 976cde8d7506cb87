package rag

import (
	"errors"
	"fmt"
)

// ErrValidation marks input the pipeline refuses to process.
var ErrValidation = errors.New("validation failed")

// ServiceError reports a failed call to an external capability (embedding,
// vector index or completion).
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err, returning nil when err is nil.
func NewServiceError(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Service: service, Op: op, Err: err}
}

// IsServiceError reports whether err came from an external capability.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
