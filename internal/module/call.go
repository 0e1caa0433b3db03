package module

import "time"

// Args carries the keyword arguments of a call or event.
type Args map[string]any

// Call is the invocation payload passed to every wire method and event
// handler.
type Call struct {
	// Args holds the caller-supplied keyword arguments. May be nil.
	Args Args

	// Meta describes the originating request.
	Meta Metadata
}

// Get returns the raw value for key and whether it was present.
func (a Args) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[key]
	return v, ok
}

// String returns the string value for key, or def if absent or not a string.
func (a Args) String(key, def string) string {
	if v, ok := a.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the integer value for key, or def if absent or not numeric.
func (a Args) Int(key string, def int) int {
	v, ok := a.Get(key)
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
	default:
		return def
	}
}

// Bool returns the boolean value for key, or def if absent or not a bool.
func (a Args) Bool(key string, def bool) bool {
	if v, ok := a.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Float returns the float value for key, or def if absent or not numeric.
func (a Args) Float(key string, def float64) float64 {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Duration returns the duration value for key. It accepts time.Duration
// values and strings in time.ParseDuration syntax.
func (a Args) Duration(key string, def time.Duration) time.Duration {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	}
	return def
}

// Clone returns a shallow copy of the arguments.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
