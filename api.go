package operon

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
)

// ErrorHandler renders an operation-internal failure. Binding failures never
// reach it; they are handled by the recovery function or the default
// plain-text response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Server is one entry of the document's servers list.
type Server struct {
	URL         string
	Description string
}

// API aggregates operation declarations into a single dispatchable service
// and its interface-description document. It is built once, single-threaded,
// before serving begins; afterward it is immutable and freely shared across
// concurrent requests with no locking.
type API struct {
	title       string
	version     string
	desc        string
	prefix      string
	tags        []string
	servers     []Server
	ops         []*Operation
	registry    *SchemaRegistry
	respHeaders []*ResponseHeader

	logger       *slog.Logger
	middlewares  []func(http.Handler) http.Handler
	cookieCodec  CookieCodec
	errorHandler ErrorHandler
	maxBody      int64
	data         map[reflect.Type]any

	finalize sync.Once
	routes   []*route
}

// New creates an API with the given document title and version.
func New(title, version string) *API {
	return &API{
		title:    title,
		version:  version,
		registry: NewSchemaRegistry(),
		maxBody:  1 << 20, // 1MB default
	}
}

// WithDescription sets the document description.
func (a *API) WithDescription(s string) *API {
	a.desc = s
	return a
}

// WithPrefix mounts every operation under a common path prefix.
func (a *API) WithPrefix(prefix string) *API {
	a.prefix = strings.TrimSuffix(prefix, "/")
	return a
}

// WithTags attaches API-level tags, prepended to each operation's own.
func (a *API) WithTags(tags ...string) *API {
	a.tags = append(a.tags, tags...)
	return a
}

// WithServer appends a servers-list entry to the document.
func (a *API) WithServer(url, description string) *API {
	a.servers = append(a.servers, Server{URL: url, Description: description})
	return a
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (a *API) WithLogger(logger *slog.Logger) *API {
	a.logger = logger
	return a
}

// WithMiddleware adds an HTTP middleware wrapping the whole API.
// Middleware is applied in the order added (first added is outermost).
func (a *API) WithMiddleware(mw func(http.Handler) http.Handler) *API {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithCookieCodec installs the codec cookie parameters pass through before
// coercion.
func (a *API) WithCookieCodec(codec CookieCodec) *API {
	a.cookieCodec = codec
	return a
}

// WithErrorHandler overrides how operation-internal failures are rendered.
func (a *API) WithErrorHandler(h ErrorHandler) *API {
	a.errorHandler = h
	return a
}

// WithMaxRequestBodySize bounds request body reads. Default is 1MB.
func (a *API) WithMaxRequestBodySize(n int64) *API {
	a.maxBody = n
	return a
}

// WithData injects an ambient value, keyed by its concrete type, that
// handlers can read via DataOf. Ambient values are not part of the
// documented interface.
func (a *API) WithData(v any) *API {
	if a.data == nil {
		a.data = make(map[reflect.Type]any)
	}
	a.data[reflect.TypeOf(v)] = v
	return a
}

// WithResponseHeaders declares API-level extra response headers, unioned
// after case- and operation-level declarations in the document.
func (a *API) WithResponseHeaders(headers ...*ResponseHeader) *API {
	a.respHeaders = append(a.respHeaders, headers...)
	return a
}

// Schemas returns the API's schema registry for explicit registrations.
func (a *API) Schemas() *SchemaRegistry { return a.registry }

// Register adds operations, validating their declarations and resolving
// every referenced schema into the registry. A schema conflict or an
// inconsistent declaration fails here, at startup, never per-request.
func (a *API) Register(ops ...*Operation) error {
	for _, op := range ops {
		if err := op.validate(); err != nil {
			return err
		}
		if err := op.resolveSchemas(a.registry); err != nil {
			return err
		}
		a.ops = append(a.ops, op)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (a *API) MustRegister(ops ...*Operation) *API {
	if err := a.Register(ops...); err != nil {
		panic(err)
	}
	return a
}

// Handler returns an http.Handler for the API, including all configured
// middleware. The first call freezes the API: registration after Handler is
// a programming error.
func (a *API) Handler() http.Handler {
	a.compile()
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// ServeHTTP implements http.Handler without middleware, for embedding the
// API into an existing mux.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.compile()
	a.serveHTTP(w, r)
}

func (a *API) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

func (a *API) serveHTTP(w http.ResponseWriter, r *http.Request) {
	logger := a.log()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			http.Error(w, fmt.Sprintf("internal server error (panic): %v", rec), http.StatusInternalServerError)
		}
	}()

	op, captures, pathMatched := a.match(r.Method, r.URL.Path)
	if op == nil {
		if pathMatched {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.NotFound(w, r)
		return
	}

	ctx := newContext(r.Context(), r, op)
	r = r.WithContext(ctx)

	rc := &requestScope{
		req:         r,
		query:       r.URL.Query(),
		captures:    captures,
		cookieCodec: a.cookieCodec,
		maxBody:     a.maxBody,
		data:        a.data,
	}

	errorHandler := a.errorHandler
	if errorHandler == nil {
		errorHandler = defaultErrorHandler(logger)
	}
	op.serve(w, rc, logger, errorHandler)
}

// defaultErrorHandler logs the failure and renders an opaque 500. The
// business logic's own error-to-response mapping belongs in the handler.
func defaultErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("operation failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// route is one compiled path pattern. Patterns match segment-wise; `:name`
// segments capture their value.
type route struct {
	pattern  string
	segments []string // ":name" marks a capture
	ops      []*Operation
}

// compile builds the routing table once. After this point the API is
// immutable: concurrent readers need no locking.
func (a *API) compile() {
	a.finalize.Do(func() {
		byPattern := make(map[string]*route)
		for _, op := range a.ops {
			pattern := a.prefix + op.path
			rt, ok := byPattern[pattern]
			if !ok {
				rt = &route{
					pattern:  pattern,
					segments: strings.Split(strings.TrimPrefix(pattern, "/"), "/"),
				}
				byPattern[pattern] = rt
				a.routes = append(a.routes, rt)
			}
			rt.ops = append(rt.ops, op)
		}
	})
}

// match resolves a request path against the routing table. It returns the
// matched operation and named captures, plus whether any route matched the
// path regardless of method.
func (a *API) match(method, path string) (*Operation, map[string]string, bool) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	pathMatched := false
	for _, rt := range a.routes {
		captures, ok := rt.matchSegments(parts)
		if !ok {
			continue
		}
		pathMatched = true
		for _, op := range rt.ops {
			for _, m := range op.methods {
				if m == method {
					return op, captures, true
				}
			}
		}
	}
	return nil, nil, pathMatched
}

func (rt *route) matchSegments(parts []string) (map[string]string, bool) {
	if len(parts) != len(rt.segments) {
		return nil, false
	}
	var captures map[string]string
	for i, seg := range rt.segments {
		if strings.HasPrefix(seg, ":") {
			if parts[i] == "" {
				return nil, false
			}
			if captures == nil {
				captures = make(map[string]string)
			}
			captures[seg[1:]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return captures, true
}
