package prompt

import (
	"context"
)

// Value represents the result of evaluating a template expression.
type Value interface {

	// Value returns the Go value for this value as an any
	Value() any

	// String returns the string representation of this value
	String() string

	// IsTruthy returns true if this value is truthy
	IsTruthy() bool
}

// Script represents a compiled template expression that can be evaluated.
type Script interface {
	Evaluate(ctx context.Context, globals map[string]any) (Value, error)
}

// Compiler compiles expression source code into a Script.
type Compiler interface {
	Compile(ctx context.Context, code string) (Script, error)
}
