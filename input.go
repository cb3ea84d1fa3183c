package operon

import (
	"net/http"
	"net/url"
	"reflect"
)

// requestScope carries the per-request extraction state shared by the
// parameter binder and the content resolver. It is built fresh for every
// request and touches no shared mutable state, so concurrent requests are
// fully independent.
type requestScope struct {
	req         *http.Request
	query       url.Values // parsed once, preserves per-key appearance order
	captures    map[string]string
	cookieCodec CookieCodec
	maxBody     int64
	data        map[reflect.Type]any
}

// Input exposes the bound request to an operation handler: coerced
// parameters keyed by wire name, the decoded body, and ambient values. All
// binding and validation completed before the handler runs, so accessors
// never fail on declared parameters.
type Input struct {
	rc     *requestScope
	params map[string]any
	body   *BodyValue
}

// Request returns the underlying transport request.
func (in *Input) Request() *http.Request { return in.rc.req }

// Body returns the bound request body, or nil when the operation declares
// none or an optional body was absent.
func (in *Input) Body() *BodyValue { return in.body }

// Get returns the bound value of a parameter by wire name, or nil when an
// optional parameter was absent.
func (in *Input) Get(name string) any { return in.params[name] }

// Has reports whether the parameter bound to a value.
func (in *Input) Has(name string) bool {
	v, ok := in.params[name]
	return ok && v != nil
}

// Int returns a signed integer parameter. Unsigned and float declarations
// are converted.
func (in *Input) Int(name string) int64 {
	switch v := in.params[name].(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Uint returns an unsigned integer parameter.
func (in *Input) Uint(name string) uint64 {
	switch v := in.params[name].(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	default:
		return 0
	}
}

// Float returns a numeric parameter as float64.
func (in *Input) Float(name string) float64 {
	f, _ := asFloat(in.params[name])
	return f
}

// Bool returns a boolean parameter.
func (in *Input) Bool(name string) bool {
	b, _ := in.params[name].(bool)
	return b
}

// String returns a string parameter.
func (in *Input) String(name string) string {
	s, _ := in.params[name].(string)
	return s
}

// Ints returns a sequence parameter as signed integers, in wire appearance
// order.
func (in *Input) Ints(name string) []int64 {
	seq, _ := in.params[name].([]any)
	out := make([]int64, 0, len(seq))
	for _, e := range seq {
		switch v := e.(type) {
		case int64:
			out = append(out, v)
		case uint64:
			out = append(out, int64(v))
		}
	}
	return out
}

// Strings returns a sequence parameter as strings, in wire appearance order.
func (in *Input) Strings(name string) []string {
	seq, _ := in.params[name].([]any)
	out := make([]string, 0, len(seq))
	for _, e := range seq {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// DataOf returns an ambient value injected with API.WithData. Ambient values
// are keyed by their concrete type; they are shared configuration, not part
// of the documented interface, and live for the duration of the request.
func DataOf[T any](in *Input) (T, bool) {
	var zero T
	if in.rc.data == nil {
		return zero, false
	}
	v, ok := in.rc.data[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
