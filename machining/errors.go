package machining

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument matches every InvalidArgumentError with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError reports malformed geometry input.
type InvalidArgumentError struct {
	Argument    string
	Description string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Description)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArgument(arg, format string, args ...interface{}) error {
	return &InvalidArgumentError{Argument: arg, Description: fmt.Sprintf(format, args...)}
}
