package service

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed input rejected synchronously, before
// anything is persisted or enqueued.
var ErrValidation = errors.New("validation failed")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
