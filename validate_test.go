package operon

import "testing"

func TestRuleDescriptions(t *testing.T) {
	tests := []struct {
		rule Validator
		want string
	}{
		{Maximum(100), "maximum(100, exclusive: false)"},
		{ExclusiveMaximum(100), "maximum(100, exclusive: true)"},
		{Minimum(1), "minimum(1, exclusive: false)"},
		{ExclusiveMinimum(0.5), "minimum(0.5, exclusive: true)"},
		{MaxLength(10), "maxLength(10)"},
		{MinLength(2), "minLength(2)"},
		{Pattern("^ab+c$"), `pattern("^ab+c$")`},
	}
	for _, tt := range tests {
		if got := tt.rule.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestNumericRules(t *testing.T) {
	tests := []struct {
		name string
		rule Validator
		v    any
		ok   bool
	}{
		{"max inclusive at bound", Maximum(100), int64(100), true},
		{"max inclusive above bound", Maximum(100), int64(101), false},
		{"max exclusive at bound", ExclusiveMaximum(100), int64(100), false},
		{"min inclusive at bound", Minimum(1), uint64(1), true},
		{"min inclusive below bound", Minimum(1), int64(0), false},
		{"min exclusive above bound", ExclusiveMinimum(1), float64(1.5), true},
		{"non-numeric value", Maximum(100), "100", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Check(tt.v); got != tt.ok {
				t.Errorf("Check(%v) = %t, want %t", tt.v, got, tt.ok)
			}
		})
	}
}

func TestStringRules(t *testing.T) {
	if !MaxLength(3).Check("abc") || MaxLength(3).Check("abcd") {
		t.Error("MaxLength bound check failed")
	}
	if !MinLength(3).Check("abc") || MinLength(3).Check("ab") {
		t.Error("MinLength bound check failed")
	}
	if !Pattern("^a+$").Check("aaa") || Pattern("^a+$").Check("ab") {
		t.Error("Pattern check failed")
	}
}

func TestRunValidatorsStopsAtFirstFailure(t *testing.T) {
	rules := []Validator{Minimum(10), Maximum(20)}

	if failed, ok := runValidators(rules, int64(15)); !ok {
		t.Fatalf("expected success, got failure %q", failed)
	}
	failed, ok := runValidators(rules, int64(5))
	if ok {
		t.Fatal("expected failure")
	}
	if failed != "minimum(10, exclusive: false)" {
		t.Errorf("first failing rule = %q, want the minimum rule", failed)
	}
}

func TestRunValidatorsElementwise(t *testing.T) {
	rules := []Validator{Maximum(100)}
	if _, ok := runValidators(rules, []any{int64(10), int64(20)}); !ok {
		t.Error("expected sequence within bounds to pass")
	}
	failed, ok := runValidators(rules, []any{int64(10), int64(200)})
	if ok {
		t.Error("expected out-of-bound element to fail")
	}
	if failed != "maximum(100, exclusive: false)" {
		t.Errorf("failed rule = %q", failed)
	}
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Name string `validate:"required,min=3"`
	}
	if err := validateStruct(payload{Name: "abc"}); err != nil {
		t.Errorf("valid struct rejected: %v", err)
	}
	if err := validateStruct(payload{}); err == nil {
		t.Error("expected missing required field to fail")
	}
	// Non-struct bodies are not tag-validated.
	if err := validateStruct("plain text"); err != nil {
		t.Errorf("non-struct body rejected: %v", err)
	}
	if err := validateStruct(nil); err != nil {
		t.Errorf("nil body rejected: %v", err)
	}
}
