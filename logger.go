package conduit

import "github.com/xraph/conduit/internal/logger"

// Re-export logger interfaces.
type (
	Logger = logger.Logger
	Field  = logger.Field
)

// Re-export logger constructors.
var (
	NewLogger            = logger.NewLogger
	NewDevelopmentLogger = logger.NewDevelopmentLogger
	NewProductionLogger  = logger.NewProductionLogger
	NewNoopLogger        = logger.NewNoopLogger
)

// Re-export field constructors.
var (
	String   = logger.String
	Int      = logger.Int
	Int64    = logger.Int64
	Uint64   = logger.Uint64
	Float64  = logger.Float64
	Bool     = logger.Bool
	Time     = logger.Time
	Duration = logger.Duration
	Error    = logger.Error
	Stringer = logger.Stringer
	Any      = logger.Any
	Strings  = logger.Strings
)

// F creates a new field (alias for Any).
func F(key string, value interface{}) Field {
	return logger.F(key, value)
}
