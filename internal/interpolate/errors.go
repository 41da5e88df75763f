// SPDX-License-Identifier: MPL-2.0

package interpolate

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefinedVariable is wrapped by UndefinedVariableError.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrRequiredVariableMissing is wrapped by RequiredVariableError.
	ErrRequiredVariableMissing = errors.New("required variable missing")
	// ErrRecursionLimitExceeded is wrapped by RecursionLimitError.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrExpansionTooLarge is wrapped by ExpansionTooLargeError.
	ErrExpansionTooLarge = errors.New("expansion too large")
)

type (
	// UndefinedVariableError is returned in strict mode for ${NAME} or ${N}
	// when nothing is bound. Name is the token name ("1" for ${1}).
	UndefinedVariableError struct {
		Name string
	}

	// RequiredVariableError is returned by ${NAME:?message} when NAME is
	// unset or empty. Message is the operand, unexpanded.
	RequiredVariableError struct {
		Name    string
		Message string
	}

	// RecursionLimitError is returned when nested operands go deeper than
	// Limit.
	RecursionLimitError struct {
		Limit int
	}

	// ExpansionTooLargeError is returned when the output exceeds Limit bytes.
	ExpansionTooLargeError struct {
		Limit int
	}
)

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Name)
}

// Unwrap returns ErrUndefinedVariable.
func (e *UndefinedVariableError) Unwrap() error { return ErrUndefinedVariable }

// Error implements the error interface.
func (e *RequiredVariableError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("required variable %s is not set", e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Unwrap returns ErrRequiredVariableMissing.
func (e *RequiredVariableError) Unwrap() error { return ErrRequiredVariableMissing }

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("variable expansion nested deeper than %d levels", e.Limit)
}

// Unwrap returns ErrRecursionLimitExceeded.
func (e *RecursionLimitError) Unwrap() error { return ErrRecursionLimitExceeded }

// Error implements the error interface.
func (e *ExpansionTooLargeError) Error() string {
	return fmt.Sprintf("expanded text exceeds %d bytes", e.Limit)
}

// Unwrap returns ErrExpansionTooLarge.
func (e *ExpansionTooLargeError) Unwrap() error { return ErrExpansionTooLarge }
