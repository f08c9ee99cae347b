package notebook

import (
	"errors"
	"fmt"
)

// ErrSchema marks a notebook table that cannot be reconciled at all.
var ErrSchema = errors.New("notebook schema error")

// SchemaError reports a table whose layout is unusable: a required field is
// missing or the channel axis has the wrong size. It aborts loading the whole
// file.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Field != "" && e.Reason != "":
		return fmt.Sprintf("notebook schema: field %q: %s", e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("notebook schema: required field %q is missing", e.Field)
	default:
		return "notebook schema: " + e.Reason
	}
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ErrorKind classifies the error for CLI exit handling.
func (e *SchemaError) ErrorKind() string { return "validation" }
