package operon

import (
	"net/http"
)

// ParamLocation is the extraction source of a parameter.
type ParamLocation string

const (
	InQuery  ParamLocation = "query"
	InHeader ParamLocation = "header"
	InPath   ParamLocation = "path"
	InCookie ParamLocation = "cookie"
)

// Param declares one operation parameter: where it lives on the wire, how
// its raw value is coerced, and which validator rules apply. A Param is
// built once at startup and never mutated afterward; the same declaration
// drives both the document entry and per-request binding, so the two cannot
// drift apart.
type Param struct {
	name       string
	loc        ParamLocation
	typ        ValueType
	required   bool
	deprecated bool
	desc       string
	def        func() any
	validators []Validator
}

// QueryParam declares a required query parameter. The name is the wire name
// used for extraction and shown in the document.
func QueryParam(name string, t ValueType) *Param {
	return &Param{name: name, loc: InQuery, typ: t, required: true}
}

// HeaderParam declares a required header parameter. Matching is
// case-insensitive on the wire; the document shows the name with its first
// character upper-cased.
func HeaderParam(name string, t ValueType) *Param {
	return &Param{name: name, loc: InHeader, typ: t, required: true}
}

// PathParam declares a path parameter bound to a `:name` placeholder in the
// operation path. Path parameters are always required.
func PathParam(name string, t ValueType) *Param {
	return &Param{name: name, loc: InPath, typ: t, required: true}
}

// CookieParam declares a required cookie parameter. If the API carries a
// cookie codec, the raw cookie value passes through it before coercion.
func CookieParam(name string, t ValueType) *Param {
	return &Param{name: name, loc: InCookie, typ: t, required: true}
}

// Optional marks the parameter as not required. An absent optional
// parameter binds to no value.
func (p *Param) Optional() *Param {
	p.required = false
	return p
}

// Default installs a default producer. Declaring a default makes the
// parameter non-required in the document regardless of declaration order.
func (p *Param) Default(fn func() any) *Param {
	p.def = fn
	return p
}

// Validate appends rules to the validator chain. Rules run in the order
// given, stopping at the first failure.
func (p *Param) Validate(rules ...Validator) *Param {
	p.validators = append(p.validators, rules...)
	return p
}

// Deprecated marks the parameter deprecated in the document.
func (p *Param) Deprecated() *Param {
	p.deprecated = true
	return p
}

// Description sets the documentation text.
func (p *Param) Description(s string) *Param {
	p.desc = s
	return p
}

// Name returns the wire name.
func (p *Param) Name() string { return p.name }

// Location returns the extraction source.
func (p *Param) Location() ParamLocation { return p.loc }

// isRequired is the documented requiredness: a default producer always wins.
func (p *Param) isRequired() bool { return p.required && p.def == nil }

// docSchema is the parameter's documented shape, including validator
// constraints and the recorded default value.
func (p *Param) docSchema() *Schema {
	s := p.typ.Schema()
	for _, rule := range p.validators {
		rule.constrain(s)
	}
	if p.def != nil {
		s.Default = p.def()
	}
	return s
}

// bind extracts, coerces and validates the parameter from one request.
// The returned value is nil when an optional parameter is absent.
func (p *Param) bind(rc *requestScope) (any, *BindError) {
	raws, present, err := p.rawValues(rc)
	if err != nil {
		return nil, err
	}

	if _, isSeq := p.typ.(arrayType); isSeq {
		if !present && p.def != nil {
			return p.applyDefault()
		}
		// A sequence collects every same-named entry in appearance order.
		// An absent sequence with no default binds to an empty slice.
		out := make([]any, 0, len(raws))
		for _, raw := range raws {
			v, perr := p.typ.Parse(raw)
			if perr != nil {
				return nil, errParseParam(p.name, p.typ.Name(), perr)
			}
			out = append(out, v)
		}
		if failed, ok := runValidators(p.validators, out); !ok {
			return nil, errValidateParam(p.name, failed)
		}
		return out, nil
	}

	if !present || len(raws) == 0 {
		if p.def != nil {
			return p.applyDefault()
		}
		if p.required {
			return nil, errMissingParam(p.name, p.typ.Name())
		}
		return nil, nil
	}

	v, perr := p.typ.Parse(raws[0])
	if perr != nil {
		return nil, errParseParam(p.name, p.typ.Name(), perr)
	}
	if failed, ok := runValidators(p.validators, v); !ok {
		return nil, errValidateParam(p.name, failed)
	}
	return v, nil
}

// applyDefault produces the default value and runs it through the validator
// chain, the same as a wire value. The documented schema carries both the
// default and the constraints, so the two must agree at runtime too.
func (p *Param) applyDefault() (any, *BindError) {
	v := p.def()
	if failed, ok := runValidators(p.validators, v); !ok {
		return nil, errValidateParam(p.name, failed)
	}
	return v, nil
}

// rawValues locates the raw wire strings for the parameter.
func (p *Param) rawValues(rc *requestScope) ([]string, bool, *BindError) {
	switch p.loc {
	case InQuery:
		vs, ok := rc.query[p.name]
		return vs, ok, nil
	case InHeader:
		vs := rc.req.Header.Values(p.name)
		return vs, len(vs) > 0, nil
	case InPath:
		v, ok := rc.captures[p.name]
		if !ok {
			return nil, false, nil
		}
		return []string{v}, true, nil
	case InCookie:
		c, err := rc.req.Cookie(p.name)
		if err == http.ErrNoCookie || c == nil {
			return nil, false, nil
		}
		value := c.Value
		if rc.cookieCodec != nil {
			decoded, derr := rc.cookieCodec.Decode(p.name, value)
			if derr != nil {
				return nil, false, errParseParam(p.name, p.typ.Name(), derr)
			}
			value = decoded
		}
		return []string{value}, true, nil
	default:
		return nil, false, nil
	}
}
