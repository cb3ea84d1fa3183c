package operon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// HandlerFunc is the business logic of an operation. It runs only after
// every declared parameter and the request body bound successfully; binding
// failures are diverted to the recovery function or the default plain-text
// response and never reach the handler.
type HandlerFunc func(ctx context.Context, in *Input) (*Reply, error)

// RecoveryFunc maps a binding failure to a typed reply from the operation's
// own declared response cases. The reply flows through normal response
// resolution.
type RecoveryFunc func(err *BindError) *Reply

// ExternalDocs points at external documentation for an operation.
type ExternalDocs struct {
	URL         string
	Description string
}

// Operation declares one dispatchable (method, path) combination: its
// parameters, request body, response cases, and documentation metadata.
// Operations are declared once at startup and are immutable after
// registration.
type Operation struct {
	path         string
	methods      []string
	summary      string
	desc         string
	params       []*Param
	body         *RequestBody
	responses    []*ResponseCase
	respHeaders  []*ResponseHeader
	tags         []string
	deprecated   bool
	externalDocs *ExternalDocs
	recover      RecoveryFunc
	handler      HandlerFunc
}

// NewOperation declares an operation bound to a method and path. Path
// parameters use `:name` placeholder tokens.
func NewOperation(method, path string, h HandlerFunc) *Operation {
	return &Operation{
		path:    path,
		methods: []string{strings.ToUpper(method)},
		handler: h,
	}
}

// Methods adds additional HTTP methods the operation answers to.
func (op *Operation) Methods(methods ...string) *Operation {
	for _, m := range methods {
		op.methods = append(op.methods, strings.ToUpper(m))
	}
	return op
}

// Params declares the operation's parameters, in documentation order.
func (op *Operation) Params(params ...*Param) *Operation {
	op.params = append(op.params, params...)
	return op
}

// Request declares the request body.
func (op *Operation) Request(b *RequestBody) *Operation {
	op.body = b
	return op
}

// Responses declares the operation's response cases, in documentation order.
func (op *Operation) Responses(cases ...*ResponseCase) *Operation {
	op.responses = append(op.responses, cases...)
	return op
}

// ResponseHeaders declares operation-level extra headers, unioned after
// each case's own declarations. Duplicate names are kept as-is.
func (op *Operation) ResponseHeaders(headers ...*ResponseHeader) *Operation {
	op.respHeaders = append(op.respHeaders, headers...)
	return op
}

// Tags attaches documentation tags.
func (op *Operation) Tags(tags ...string) *Operation {
	op.tags = append(op.tags, tags...)
	return op
}

// Summary sets the one-line documentation summary.
func (op *Operation) Summary(s string) *Operation {
	op.summary = s
	return op
}

// Description sets the documentation text.
func (op *Operation) Description(s string) *Operation {
	op.desc = s
	return op
}

// Deprecated marks the operation deprecated in the document.
func (op *Operation) Deprecated() *Operation {
	op.deprecated = true
	return op
}

// ExternalDocs attaches an external documentation link.
func (op *Operation) ExternalDocs(url, description string) *Operation {
	op.externalDocs = &ExternalDocs{URL: url, Description: description}
	return op
}

// OnBadRequest installs the recovery function invoked when parameter
// binding, body binding, or body validation fails before the handler runs.
func (op *Operation) OnBadRequest(fn RecoveryFunc) *Operation {
	op.recover = fn
	return op
}

// Path returns the declared path pattern.
func (op *Operation) Path() string { return op.path }

// validate checks the declaration at registration time: every path
// parameter must have a matching placeholder, and a handler must exist.
func (op *Operation) validate() error {
	if op.handler == nil {
		return fmt.Errorf("operon: operation %s %s has no handler", op.methods[0], op.path)
	}
	segments := strings.Split(op.path, "/")
	placeholders := make(map[string]bool)
	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			placeholders[seg[1:]] = true
		}
	}
	for _, p := range op.params {
		if p.loc == InPath && !placeholders[p.name] {
			return fmt.Errorf("operon: operation %s %s declares path parameter %q with no :%s placeholder",
				op.methods[0], op.path, p.name, p.name)
		}
	}
	return nil
}

// resolveSchemas materializes every schema the operation references into
// the registry. Called once at registration; a conflict here is fatal.
func (op *Operation) resolveSchemas(reg *SchemaRegistry) error {
	if op.body != nil {
		for i := range op.body.content {
			if _, err := op.body.content[i].schema(reg); err != nil {
				return err
			}
		}
	}
	for _, c := range op.responses {
		for i := range c.content {
			if _, err := c.content[i].schema(reg); err != nil {
				return err
			}
		}
	}
	return nil
}

// serve binds the request, dispatches the handler, and resolves the reply.
func (op *Operation) serve(w http.ResponseWriter, rc *requestScope, logger *slog.Logger, errorHandler ErrorHandler) {
	in, bindErr := op.bind(rc)
	if bindErr != nil {
		if op.recover != nil {
			if rep := op.recover(bindErr); rep != nil {
				rep.write(w, logger)
				return
			}
		}
		writeBindError(w, bindErr)
		return
	}

	rep, err := op.handler(rc.req.Context(), in)
	if err != nil {
		errorHandler(w, rc.req, err)
		return
	}
	if rep == nil {
		// An operation with no declared payload may return nil for a bare
		// success.
		w.WriteHeader(http.StatusOK)
		return
	}
	rep.write(w, logger)
}

// bind extracts every declared parameter and the request body. The first
// failure stops binding; partially bound values are discarded with no side
// effects.
func (op *Operation) bind(rc *requestScope) (*Input, *BindError) {
	params := make(map[string]any, len(op.params))
	for _, p := range op.params {
		v, err := p.bind(rc)
		if err != nil {
			return nil, err
		}
		if v != nil {
			params[p.name] = v
		}
	}

	var body *BodyValue
	if op.body != nil {
		bv, err := op.body.bind(rc)
		if err != nil {
			return nil, err
		}
		body = bv
	}

	return &Input{rc: rc, params: params, body: body}, nil
}
