package operon

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// bodyValidator checks `validate` struct tags on decoded JSON and form
// bodies, the same way query structs were checked before parameter binding
// moved to explicit descriptors.
var bodyValidator = validator.New()

// Validator is one rule in a parameter's validator chain. Rules run after
// type coercion succeeds, in declaration order, stopping at the first
// failure. Describe is used verbatim in error messages, in the format
// `verification failed. <rule>(<args>)`.
type Validator interface {
	// Describe returns the rule description, e.g. `maximum(100, exclusive: false)`.
	Describe() string
	// Check reports whether the coerced value satisfies the rule.
	Check(v any) bool
	// constrain records the rule onto the documented schema.
	constrain(s *Schema)
}

// Maximum requires a numeric value to be at most max (inclusive).
func Maximum(max float64) Validator { return maximumRule{value: max} }

// ExclusiveMaximum requires a numeric value to be strictly less than max.
func ExclusiveMaximum(max float64) Validator { return maximumRule{value: max, exclusive: true} }

// Minimum requires a numeric value to be at least min (inclusive).
func Minimum(min float64) Validator { return minimumRule{value: min} }

// ExclusiveMinimum requires a numeric value to be strictly greater than min.
func ExclusiveMinimum(min float64) Validator { return minimumRule{value: min, exclusive: true} }

// MaxLength bounds the length of a string value.
func MaxLength(n int) Validator { return maxLengthRule{n: n} }

// MinLength bounds the length of a string value.
func MinLength(n int) Validator { return minLengthRule{n: n} }

// Pattern requires a string value to match the regular expression. The
// expression is compiled at declaration time; an invalid expression panics,
// since declarations run at startup.
func Pattern(expr string) Validator {
	return patternRule{expr: expr, re: regexp.MustCompile(expr)}
}

// runValidators applies the chain to a coerced value. Sequence values are
// checked elementwise. The first failing rule wins.
func runValidators(rules []Validator, v any) (failed string, ok bool) {
	for _, rule := range rules {
		if vs, isSeq := v.([]any); isSeq {
			for _, elem := range vs {
				if !rule.Check(elem) {
					return rule.Describe(), false
				}
			}
			continue
		}
		if !rule.Check(v) {
			return rule.Describe(), false
		}
	}
	return "", true
}

// validateStruct runs go-playground/validator tags over a decoded body.
// Non-struct bodies (scalars, slices, raw text) are not tag-validated.
func validateStruct(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil
	}
	return bodyValidator.Struct(rv.Interface())
}

type maximumRule struct {
	value     float64
	exclusive bool
}

func (r maximumRule) Describe() string {
	return fmt.Sprintf("maximum(%s, exclusive: %t)", formatBound(r.value), r.exclusive)
}

func (r maximumRule) Check(v any) bool {
	f, ok := asFloat(v)
	if !ok {
		return false
	}
	if r.exclusive {
		return f < r.value
	}
	return f <= r.value
}

func (r maximumRule) constrain(s *Schema) {
	max := r.value
	s.Maximum = &max
	s.ExclusiveMaximum = r.exclusive
}

type minimumRule struct {
	value     float64
	exclusive bool
}

func (r minimumRule) Describe() string {
	return fmt.Sprintf("minimum(%s, exclusive: %t)", formatBound(r.value), r.exclusive)
}

func (r minimumRule) Check(v any) bool {
	f, ok := asFloat(v)
	if !ok {
		return false
	}
	if r.exclusive {
		return f > r.value
	}
	return f >= r.value
}

func (r minimumRule) constrain(s *Schema) {
	min := r.value
	s.Minimum = &min
	s.ExclusiveMinimum = r.exclusive
}

type maxLengthRule struct{ n int }

func (r maxLengthRule) Describe() string { return fmt.Sprintf("maxLength(%d)", r.n) }

func (r maxLengthRule) Check(v any) bool {
	s, ok := v.(string)
	return ok && len(s) <= r.n
}

func (r maxLengthRule) constrain(s *Schema) {
	n := uint64(r.n)
	s.MaxLength = &n
}

type minLengthRule struct{ n int }

func (r minLengthRule) Describe() string { return fmt.Sprintf("minLength(%d)", r.n) }

func (r minLengthRule) Check(v any) bool {
	s, ok := v.(string)
	return ok && len(s) >= r.n
}

func (r minLengthRule) constrain(s *Schema) { s.MinLength = uint64(r.n) }

type patternRule struct {
	expr string
	re   *regexp.Regexp
}

func (r patternRule) Describe() string { return fmt.Sprintf("pattern(%q)", r.expr) }

func (r patternRule) Check(v any) bool {
	s, ok := v.(string)
	return ok && r.re.MatchString(s)
}

func (r patternRule) constrain(s *Schema) { s.Pattern = r.expr }

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// formatBound renders a numeric bound without a trailing fraction: 100, not 100.0.
func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
