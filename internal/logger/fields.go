package logger

import "go.uber.org/zap"

// Field represents a structured log field
type Field = zap.Field

// Field constructors.
var (
	// String creates a string field.
	String = zap.String
	// Int creates an int field.
	Int = zap.Int
	// Int32 creates an int32 field.
	Int32 = zap.Int32
	// Int64 creates an int64 field.
	Int64 = zap.Int64
	// Uint64 creates a uint64 field.
	Uint64 = zap.Uint64
	// Float64 creates a float64 field.
	Float64 = zap.Float64
	// Bool creates a bool field.
	Bool = zap.Bool

	// Time creates a time field.
	Time = zap.Time
	// Duration creates a duration field.
	Duration = zap.Duration

	// Error creates an error field.
	Error = zap.Error

	// Stringer creates a field from a Stringer.
	Stringer = zap.Stringer

	Any = zap.Any

	Strings = zap.Strings
)

// F creates a new field (alias for Any).
func F(key string, value interface{}) Field {
	return zap.Any(key, value)
}
