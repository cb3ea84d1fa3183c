package operon

import (
	"fmt"
	"net/http"
)

// BindErrorKind classifies a request binding failure.
type BindErrorKind int

const (
	// MissingParameter: a required parameter has no wire value.
	MissingParameter BindErrorKind = iota
	// ParseError: a wire value could not be coerced into its declared type,
	// or a request body could not be decoded.
	ParseError
	// ValidationError: a coerced value failed a validator rule.
	ValidationError
	// UnsupportedMediaType: the request content type matches none of the
	// declared body alternatives.
	UnsupportedMediaType
)

func (k BindErrorKind) String() string {
	switch k {
	case MissingParameter:
		return "missing_parameter"
	case ParseError:
		return "parse_error"
	case ValidationError:
		return "validation_error"
	case UnsupportedMediaType:
		return "unsupported_media_type"
	default:
		return "unknown"
	}
}

// BindError is the structured failure produced when parameter binding,
// request-body binding, or body validation fails. It never reaches the
// operation handler: it is either handed to the operation's recovery
// function or rendered as a plain-text default response.
type BindError struct {
	Kind    BindErrorKind
	Param   string // parameter name, empty for body failures
	Message string
}

func (e *BindError) Error() string { return e.Message }

// Status is the transport status used when no recovery function is declared.
func (e *BindError) Status() int {
	if e.Kind == UnsupportedMediaType {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

// Error messages are deterministic: parameter name plus the coercion or rule
// description, verbatim. Tests depend on the exact text.

func errMissingParam(name, typeName string) *BindError {
	return &BindError{
		Kind:    MissingParameter,
		Param:   name,
		Message: fmt.Sprintf("failed to parse parameter `%s`: Type %q expects an input value.", name, typeName),
	}
}

func errParseParam(name, typeName string, cause error) *BindError {
	return &BindError{
		Kind:    ParseError,
		Param:   name,
		Message: fmt.Sprintf("failed to parse parameter `%s`: failed to parse %q: %v", name, typeName, cause),
	}
}

func errValidateParam(name, rule string) *BindError {
	return &BindError{
		Kind:    ValidationError,
		Param:   name,
		Message: fmt.Sprintf("failed to parse parameter `%s`: verification failed. %s", name, rule),
	}
}

func errMissingBody() *BindError {
	return &BindError{
		Kind:    MissingParameter,
		Message: "failed to parse request body: expects a request body",
	}
}

func errParseBody(cause error) *BindError {
	return &BindError{
		Kind:    ParseError,
		Message: fmt.Sprintf("failed to parse request body: %v", cause),
	}
}

func errValidateBody(cause error) *BindError {
	return &BindError{
		Kind:    ValidationError,
		Message: fmt.Sprintf("failed to validate request body: %v", cause),
	}
}

func errUnsupportedMediaType(contentType string) *BindError {
	return &BindError{
		Kind:    UnsupportedMediaType,
		Message: fmt.Sprintf("unsupported media type %q", contentType),
	}
}

// writeBindError renders the default plain-text response for a binding
// failure when the operation declares no recovery function.
func writeBindError(w http.ResponseWriter, err *BindError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(err.Status())
	_, _ = w.Write([]byte(err.Message))
}
