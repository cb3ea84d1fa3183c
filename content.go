package operon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"reflect"
	"strings"

	"github.com/gorilla/schema"
)

// formDecoder binds application/x-www-form-urlencoded bodies into structs.
var formDecoder = schema.NewDecoder()

func init() {
	formDecoder.IgnoreUnknownKeys(true)
}

// MediaType is one (content-type, shape) alternative a request or response
// body may take. Matching compares the bare media type: parameters such as
// charset are ignored for selection but honored on response emission.
type MediaType struct {
	contentType string
	emit        string // Content-Type header used when emitting a response
	schema      func(reg *SchemaRegistry) (SchemaRef, error)
	decode      func(data []byte) (any, error)
	encode      func(v any) ([]byte, error)
}

// ContentType returns the media type used for matching and documentation.
func (m MediaType) ContentType() string { return m.contentType }

// WithContentType overrides the declared media type, keeping the payload
// shape and codec. Useful for vendor types like application/problem+json.
func (m MediaType) WithContentType(ct string) MediaType {
	m.contentType = ct
	m.emit = ct
	return m
}

// JSON declares an application/json alternative carrying T. The schema is
// derived from T once, at registration; decoded bodies additionally run
// through `validate` struct tags.
func JSON[T any]() MediaType {
	return MediaType{
		contentType: "application/json",
		emit:        "application/json; charset=utf-8",
		schema: func(reg *SchemaRegistry) (SchemaRef, error) {
			return reg.SchemaOf(reflect.TypeOf((*T)(nil)).Elem())
		},
		decode: func(data []byte) (any, error) {
			var v T
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		},
		encode: json.Marshal,
	}
}

// PlainText declares a text/plain alternative carrying a string.
func PlainText() MediaType {
	return MediaType{
		contentType: "text/plain",
		emit:        "text/plain; charset=utf-8",
		schema: func(*SchemaRegistry) (SchemaRef, error) {
			return InlineSchema(NewSchema("string")), nil
		},
		decode: func(data []byte) (any, error) { return string(data), nil },
		encode: func(v any) ([]byte, error) {
			switch s := v.(type) {
			case string:
				return []byte(s), nil
			case []byte:
				return s, nil
			default:
				return []byte(fmt.Sprint(v)), nil
			}
		},
	}
}

// Binary declares an application/octet-stream alternative carrying raw
// bytes. Its documented shape is the {type: string, format: binary} sentinel.
func Binary() MediaType {
	return MediaType{
		contentType: "application/octet-stream",
		emit:        "application/octet-stream",
		schema: func(*SchemaRegistry) (SchemaRef, error) {
			return InlineSchema(BinarySchema()), nil
		},
		decode: func(data []byte) (any, error) { return data, nil },
		encode: func(v any) ([]byte, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("binary payload requires []byte, got %T", v)
			}
			return b, nil
		},
	}
}

// Form declares an application/x-www-form-urlencoded alternative decoded
// into T via gorilla/schema. Field names follow `schema` struct tags.
func Form[T any]() MediaType {
	return MediaType{
		contentType: "application/x-www-form-urlencoded",
		emit:        "application/x-www-form-urlencoded",
		schema: func(reg *SchemaRegistry) (SchemaRef, error) {
			return reg.SchemaOf(reflect.TypeOf((*T)(nil)).Elem())
		},
		decode: func(data []byte) (any, error) {
			values, err := url.ParseQuery(string(data))
			if err != nil {
				return nil, err
			}
			var v T
			if err := formDecoder.Decode(&v, values); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// RequestBody declares the ordered content alternatives an operation
// accepts. The request's Content-Type header selects exactly one; no match
// is a binding failure, never a silent default.
type RequestBody struct {
	desc     string
	required bool
	content  []MediaType
}

// Body declares a required request body with the given alternatives.
func Body(alternatives ...MediaType) *RequestBody {
	return &RequestBody{required: true, content: alternatives}
}

// Optional marks the body as not required: a request without a body binds
// to no value.
func (b *RequestBody) Optional() *RequestBody {
	b.required = false
	return b
}

// Description sets the documentation text.
func (b *RequestBody) Description(s string) *RequestBody {
	b.desc = s
	return b
}

// BodyValue is the bound request body: a tagged union over the declared
// alternatives. ContentType identifies which case was constructed.
type BodyValue struct {
	ContentType string
	Value       any
}

// mediaTypeName strips parameters (e.g. charset) from a Content-Type header
// for exact media-type comparison.
func mediaTypeName(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		// Fall back to the bare token before any parameter.
		mt = strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	}
	return strings.ToLower(mt)
}

// matchMedia selects the first alternative whose media type equals the
// request's. Order matters only for documentation enumeration; matching is
// exact, so at most one alternative can apply per media type.
func matchMedia(contentType string, alternatives []MediaType) (MediaType, bool) {
	want := mediaTypeName(contentType)
	for _, alt := range alternatives {
		if mediaTypeName(alt.contentType) == want {
			return alt, true
		}
	}
	return MediaType{}, false
}

// bind reads and decodes the request body against the declared alternatives.
func (b *RequestBody) bind(rc *requestScope) (*BodyValue, *BindError) {
	data, err := io.ReadAll(io.LimitReader(rc.req.Body, rc.maxBody+1))
	if err != nil {
		return nil, errParseBody(err)
	}
	if int64(len(data)) > rc.maxBody {
		return nil, errParseBody(fmt.Errorf("request body exceeds %d bytes", rc.maxBody))
	}

	contentType := rc.req.Header.Get("Content-Type")
	if len(data) == 0 && contentType == "" {
		if b.required {
			return nil, errMissingBody()
		}
		return nil, nil
	}

	alt, ok := matchMedia(contentType, b.content)
	if !ok {
		return nil, errUnsupportedMediaType(contentType)
	}

	v, derr := alt.decode(data)
	if derr != nil {
		return nil, errParseBody(derr)
	}
	if verr := validateStruct(v); verr != nil {
		return nil, errValidateBody(verr)
	}
	return &BodyValue{ContentType: alt.contentType, Value: v}, nil
}
