package attribution

import (
	"errors"
	"fmt"
)

// MissingParameterError reports a required field absent at a public entry
// point. Parameter validation fails fast and aborts only the operation it
// guards; all I/O failures are instead absorbed at component boundaries.
type MissingParameterError struct {
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter: %s", e.Field)
}

// missingParam is a construction shorthand used by the entry points.
func missingParam(field string) error { return &MissingParameterError{Field: field} }

// IsMissingParameter reports whether err is a MissingParameterError.
func IsMissingParameter(err error) bool {
	var mp *MissingParameterError
	return errors.As(err, &mp)
}
