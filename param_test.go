package operon

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func scopeFor(r *http.Request) *requestScope {
	return &requestScope{
		req:     r,
		query:   r.URL.Query(),
		maxBody: 1 << 20,
	}
}

func TestBindQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/?v=10", nil)
	p := QueryParam("v", Int32)

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("bound value = %v (%T), want 10", v, v)
	}
}

func TestBindQueryMultipleValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/?v=10&v=20&v=30", nil)
	p := QueryParam("v", ArrayOf(Int32))

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{int64(10), int64(20), int64(30)}) {
		t.Errorf("bound sequence = %v, want [10 20 30] in appearance order", v)
	}
}

func TestBindQueryMissingRequired(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	p := QueryParam("code", Uint16)

	_, err := p.bind(scopeFor(r))
	if err == nil {
		t.Fatal("expected binding failure")
	}
	if err.Kind != MissingParameter {
		t.Errorf("kind = %v, want MissingParameter", err.Kind)
	}
	want := "failed to parse parameter `code`: Type \"integer(uint16)\" expects an input value."
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}
}

func TestBindQueryDefault(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	p := QueryParam("v", Int32).Default(func() any { return int64(999) })

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(999) {
		t.Errorf("default value = %v, want 999", v)
	}
	if p.isRequired() {
		t.Error("a parameter with a default must be documented as non-required")
	}
}

func TestBindSequenceDefault(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	p := QueryParam("v", ArrayOf(Int32)).Default(func() any { return []any{int64(1), int64(2)} })

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{int64(1), int64(2)}) {
		t.Errorf("bound value = %v, want the declared default [1 2]", v)
	}
	if p.isRequired() {
		t.Error("a sequence with a default must be documented as non-required")
	}

	// Wire values still win over the default.
	r2 := httptest.NewRequest("GET", "/?v=10", nil)
	v, err = p.bind(scopeFor(r2))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{int64(10)}) {
		t.Errorf("bound value = %v, want [10]", v)
	}
}

func TestBindDefaultRunsValidators(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	p := QueryParam("v", Int32).
		Default(func() any { return int64(200) }).
		Validate(Maximum(100))

	_, err := p.bind(scopeFor(r))
	if err == nil || err.Kind != ValidationError {
		t.Fatalf("expected ValidationError for an out-of-bound default, got %v", err)
	}
	want := "failed to parse parameter `v`: verification failed. maximum(100, exclusive: false)"
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}

	seq := QueryParam("s", ArrayOf(Int32)).
		Default(func() any { return []any{int64(10), int64(200)} }).
		Validate(Maximum(100))
	if _, err := seq.bind(scopeFor(r)); err == nil || err.Kind != ValidationError {
		t.Errorf("expected ValidationError for an out-of-bound sequence default, got %v", err)
	}
}

func TestBindQueryParseError(t *testing.T) {
	r := httptest.NewRequest("GET", "/?v=abc", nil)
	p := QueryParam("v", Int32)

	_, err := p.bind(scopeFor(r))
	if err == nil || err.Kind != ParseError {
		t.Fatalf("expected ParseError, got %v", err)
	}
	want := "failed to parse parameter `v`: failed to parse \"integer(int32)\": invalid integer \"abc\""
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}
}

func TestBindQueryWidthEnforced(t *testing.T) {
	r := httptest.NewRequest("GET", "/?v=70000", nil)
	p := QueryParam("v", Uint16)

	_, err := p.bind(scopeFor(r))
	if err == nil || err.Kind != ParseError {
		t.Fatalf("expected ParseError for out-of-range uint16, got %v", err)
	}
}

func TestBindQueryValidation(t *testing.T) {
	r := httptest.NewRequest("GET", "/?code=200", nil)
	p := QueryParam("code", Uint16).Validate(Maximum(100))

	_, err := p.bind(scopeFor(r))
	if err == nil || err.Kind != ValidationError {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := "failed to parse parameter `code`: verification failed. maximum(100, exclusive: false)"
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}
}

func TestBindQueryOptionalAbsent(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	p := QueryParam("v", Int32).Optional()

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("absent optional bound to %v, want nil", v)
	}
}

func TestBindHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Add("v", "10")
	p := HeaderParam("v", Int32)

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("bound header = %v, want 10", v)
	}
}

func TestBindHeaderCaseInsensitive(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Add("Foo-Bar", "10")
	p := HeaderParam("foo-bar", Int32)

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("bound header = %v, want 10", v)
	}
}

func TestBindHeaderMultipleValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Add("v", "10")
	r.Header.Add("v", "20")
	r.Header.Add("v", "30")
	p := HeaderParam("v", ArrayOf(Int32))

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{int64(10), int64(20), int64(30)}) {
		t.Errorf("bound sequence = %v", v)
	}
}

func TestBindPath(t *testing.T) {
	r := httptest.NewRequest("GET", "/k/10", nil)
	rc := scopeFor(r)
	rc.captures = map[string]string{"v": "10"}
	p := PathParam("v", Int32)

	v, err := p.bind(rc)
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("bound path segment = %v, want 10", v)
	}
}

func TestBindCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: "v", Value: "10"})
	p := CookieParam("v", Int32)

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("bound cookie = %v, want 10", v)
	}
}

func TestBindCookieThroughCodec(t *testing.T) {
	codec := SignedCookies([]byte("test-key"))
	signed, err := codec.Encode("v", "10")
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: "v", Value: signed})
	rc := scopeFor(r)
	rc.cookieCodec = codec

	v, berr := CookieParam("v", Int32).bind(rc)
	if berr != nil {
		t.Fatal(berr)
	}
	if v != int64(10) {
		t.Errorf("bound cookie = %v, want 10", v)
	}

	// Tampered value fails as a parse error on the parameter.
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.AddCookie(&http.Cookie{Name: "v", Value: "11." + signed[3:]})
	rc2 := scopeFor(r2)
	rc2.cookieCodec = codec
	if _, berr := CookieParam("v", Int32).bind(rc2); berr == nil || berr.Kind != ParseError {
		t.Errorf("expected ParseError for tampered cookie, got %v", berr)
	}
}

func TestBindEnum(t *testing.T) {
	r := httptest.NewRequest("GET", "/?sort=asc", nil)
	p := QueryParam("sort", Enum("asc", "desc"))

	v, err := p.bind(scopeFor(r))
	if err != nil {
		t.Fatal(err)
	}
	if v != "asc" {
		t.Errorf("bound enum = %v", v)
	}

	r2 := httptest.NewRequest("GET", "/?sort=sideways", nil)
	if _, err := p.bind(scopeFor(r2)); err == nil || err.Kind != ParseError {
		t.Errorf("expected ParseError for invalid enum value, got %v", err)
	}
}

func TestDocSchemaCarriesConstraintsAndDefault(t *testing.T) {
	p := QueryParam("v", Int32).
		Default(func() any { return int64(999) }).
		Validate(Maximum(100), MinLength(2))

	s := p.docSchema()
	if s.Default != int64(999) {
		t.Errorf("schema default = %v, want 999", s.Default)
	}
	if s.Maximum == nil || *s.Maximum != 100 {
		t.Errorf("schema maximum = %v, want 100", s.Maximum)
	}
	if s.MinLength != 2 {
		t.Errorf("schema minLength = %d, want 2", s.MinLength)
	}
}
