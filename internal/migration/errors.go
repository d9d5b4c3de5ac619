package migration

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScriptFormatError reports a file whose name does not start with a change number.
type ScriptFormatError struct {
	FileName string
	Pattern  string
	Err      error
}

func (e *ScriptFormatError) Error() string {
	msg := fmt.Sprintf("script file %q does not match the expected pattern %q", e.FileName, e.Pattern)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScriptFormatError) Unwrap() error {
	return e.Err
}

// DuplicateScriptIDError reports two files parsing to the same change number.
type DuplicateScriptIDError struct {
	ID               decimal.Decimal
	FileName         string
	ExistingFileName string
}

func (e *DuplicateScriptIDError) Error() string {
	return fmt.Sprintf("duplicate change number %s: %q conflicts with %q",
		e.ID.String(), e.FileName, e.ExistingFileName)
}
