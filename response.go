package operon

import (
	"fmt"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"
)

// ResponseCase declares one variant of an operation's response: a fixed or
// runtime-carried status, an ordered list of content alternatives, and
// extra header declarations. The same declaration drives the document entry
// and runtime serialization.
type ResponseCase struct {
	status  int // 0 means the status is carried by the Reply at runtime
	desc    string
	content []MediaType
	headers []*ResponseHeader
}

// Response declares a response case with a fixed status code.
func Response(status int) *ResponseCase {
	return &ResponseCase{status: status}
}

// DynamicResponse declares a response case whose status is determined at
// runtime via Reply.Status. Its documented status is absent: it maps to the
// OpenAPI `default` response.
func DynamicResponse() *ResponseCase {
	return &ResponseCase{}
}

// Description sets the documentation text.
func (c *ResponseCase) Description(s string) *ResponseCase {
	c.desc = s
	return c
}

// Content declares the case's ordered payload alternatives. A case with no
// content emits an empty body and no Content-Type header.
func (c *ResponseCase) Content(alternatives ...MediaType) *ResponseCase {
	c.content = append(c.content, alternatives...)
	return c
}

// Header declares an extra header carried by this case. Case-level headers
// come first in the documented union, before operation- and API-level
// declarations; duplicate names are not deduplicated.
func (c *ResponseCase) Header(h *ResponseHeader) *ResponseCase {
	c.headers = append(c.headers, h)
	return c
}

// ResponseHeader documents one response header.
type ResponseHeader struct {
	name       string
	typ        ValueType
	desc       string
	required   bool
	deprecated bool
}

// Header declares a required response header. The documented name has its
// first character upper-cased; runtime matching stays case-insensitive.
func Header(name string, t ValueType) *ResponseHeader {
	return &ResponseHeader{name: name, typ: t, required: true}
}

// Optional marks the header as not always present.
func (h *ResponseHeader) Optional() *ResponseHeader {
	h.required = false
	return h
}

// Deprecated marks the header deprecated in the document.
func (h *ResponseHeader) Deprecated() *ResponseHeader {
	h.deprecated = true
	return h
}

// Description sets the documentation text.
func (h *ResponseHeader) Description(s string) *ResponseHeader {
	h.desc = s
	return h
}

// docName is the display form: first character upper-cased, the rest kept
// as declared.
func (h *ResponseHeader) docName() string { return normalizeHeaderName(h.name) }

func normalizeHeaderName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// Reply is the typed result an operation handler returns. It names the
// declared case it instantiates and carries the runtime payload, the chosen
// content type, the runtime status for dynamic cases, and extra header
// values.
type Reply struct {
	c           *ResponseCase
	status      int
	payload     any
	hasPayload  bool
	contentType string
	headers     []headerValue
}

type headerValue struct {
	name  string
	value string
}

// Reply instantiates the case.
func (c *ResponseCase) Reply() *Reply {
	return &Reply{c: c}
}

// Payload sets the response payload, serialized with the case's first
// content alternative unless Content chose another.
func (r *Reply) Payload(v any) *Reply {
	r.payload = v
	r.hasPayload = true
	return r
}

// Content sets the payload and selects which declared alternative
// serializes it.
func (r *Reply) Content(contentType string, v any) *Reply {
	r.contentType = contentType
	r.payload = v
	r.hasPayload = true
	return r
}

// Status sets the runtime status code. It is honored only for cases
// declared with DynamicResponse; a fixed declared status always wins.
func (r *Reply) Status(code int) *Reply {
	r.status = code
	return r
}

// Header attaches an extra header value. Values are added in call order and
// never replace one another.
func (r *Reply) Header(name, value string) *Reply {
	r.headers = append(r.headers, headerValue{name: name, value: value})
	return r
}

// resolvedStatus is the emitted status: the declared fixed status, or the
// runtime value for dynamic cases (200 when unset).
func (r *Reply) resolvedStatus() int {
	if r.c.status != 0 {
		return r.c.status
	}
	if r.status != 0 {
		return r.status
	}
	return http.StatusOK
}

// write serializes the reply onto the transport response.
func (r *Reply) write(w http.ResponseWriter, logger *slog.Logger) {
	var (
		body    []byte
		emit    string
		hasBody bool
	)
	if r.hasPayload && len(r.c.content) > 0 {
		alt := r.c.content[0]
		if r.contentType != "" {
			chosen, ok := matchMedia(r.contentType, r.c.content)
			if !ok {
				logger.Error("reply content type not declared on response case",
					slog.String("content_type", r.contentType))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			alt = chosen
		}
		encoded, err := alt.encode(r.payload)
		if err != nil {
			logger.Error("failed to encode response payload", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		body = encoded
		emit = alt.emit
		hasBody = true
	} else if r.hasPayload {
		logger.Warn("reply payload dropped: response case declares no content alternatives")
	}

	for _, hv := range r.headers {
		w.Header().Add(hv.name, hv.value)
	}
	if hasBody {
		w.Header().Set("Content-Type", emit)
	}
	w.WriteHeader(r.resolvedStatus())
	if hasBody {
		if _, err := w.Write(body); err != nil {
			logger.Error("failed to write response body", slog.Any("error", err))
		}
	}
}

// HeaderValue formats a typed header value for attachment via Reply.Header.
func HeaderValue(v any) string { return fmt.Sprint(v) }
