package conduit

import "github.com/xraph/conduit/internal/config"

// Options is the parsed program configuration shared read-only with
// callbacks.
type Options = config.Options

// LoadOptions reads a YAML config file into Options.
var LoadOptions = config.LoadFile

// DecodeOptions deserializes options produced by Options.Encode.
var DecodeOptions = config.Decode
