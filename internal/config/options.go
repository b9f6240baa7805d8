package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/conduit/internal/errors"
)

// Options is the parsed program configuration: a flat key to value map shared
// read-only with every init, configure, fork and schedule callback.
type Options map[string]any

// Has reports whether the key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// GetString returns the value for key as a string, or def when absent.
func (o Options) GetString(key, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetInt returns the value for key as an int, or def when absent or unparsable.
func (o Options) GetInt(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// GetBool returns the value for key as a bool, or def when absent or unparsable.
func (o Options) GetBool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// GetDuration returns the value for key as a duration, or def when absent or
// unparsable. String values use time.ParseDuration syntax.
func (o Options) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case int:
		return time.Duration(d)
	case int64:
		return time.Duration(d)
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	}
	return def
}

// Clone returns a shallow copy. Descriptors and forked children each receive
// their own copy so no process mutates another's view.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge overlays other on top of o, returning o.
func (o Options) Merge(other Options) Options {
	for k, v := range other {
		o[k] = v
	}
	return o
}

// LoadFile reads a YAML file into Options.
func LoadFile(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrConfigError("reading config file "+path, err)
	}
	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, errors.ErrConfigError("parsing config file "+path, err)
	}
	if opts == nil {
		opts = make(Options)
	}
	return opts, nil
}

// FromEnv overlays CONDUIT_-prefixed environment variables onto o.
// CONDUIT_LOG_LEVEL becomes log.level.
func (o Options) FromEnv() Options {
	const prefix = "CONDUIT_"
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(k, prefix), "_", "."))
		o[key] = v
	}
	return o
}

// Encode serializes the options for the child-process handoff.
func (o Options) Encode() (string, error) {
	raw, err := yaml.Marshal(o)
	if err != nil {
		return "", errors.ErrConfigError("encoding options", err)
	}
	return string(raw), nil
}

// Decode deserializes options produced by Encode.
func Decode(raw string) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, errors.ErrConfigError("decoding options", err)
	}
	if opts == nil {
		opts = make(Options)
	}
	return opts, nil
}
