package operon

import (
	"fmt"
	"sync"
)

// SchemaRegistry is the canonical store of named schemas. It is populated
// while the API is being declared and is read-only once the API starts
// serving, so lookups never contend.
type SchemaRegistry struct {
	mu      sync.RWMutex
	names   []string // registration order
	schemas map[string]*Schema
	pending map[string]bool
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[string]*Schema),
		pending: make(map[string]bool),
	}
}

// SchemaConflictError reports that the same name was registered with two
// structurally different shapes. It is a startup error, never a per-request
// condition.
type SchemaConflictError struct {
	Name string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("operon: conflicting schema registration for %q", e.Name)
}

// Register stores a named schema. Registering the same name with a
// structurally equal shape is idempotent and returns the same reference;
// a structurally different shape fails with *SchemaConflictError.
func (r *SchemaRegistry) Register(name string, s *Schema) (SchemaRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.schemas[name]; ok {
		if !schemaEqual(existing, s) {
			return SchemaRef{}, &SchemaConflictError{Name: name}
		}
		return NamedRef(name), nil
	}
	r.names = append(r.names, name)
	r.schemas[name] = s
	return NamedRef(name), nil
}

// MustRegister is like Register but panics on conflict. Registration happens
// at startup, where a conflict is a programming error.
func (r *SchemaRegistry) MustRegister(name string, s *Schema) SchemaRef {
	ref, err := r.Register(name, s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Resolve returns the schema a reference points at. Inline references
// resolve to their own value; named references are looked up.
func (r *SchemaRegistry) Resolve(ref SchemaRef) (*Schema, bool) {
	if ref.Ref == "" {
		return ref.Value, ref.Value != nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[ref.Ref]
	return s, ok
}

// Names returns the registered names in registration order.
func (r *SchemaRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// reserve marks a name as in-progress so recursive types resolve to a
// forward reference instead of looping. It reports whether the name is
// already taken (registered or pending).
func (r *SchemaRegistry) reserve(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[name]; ok {
		return true
	}
	if r.pending[name] {
		return true
	}
	r.pending[name] = true
	return false
}

func (r *SchemaRegistry) release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, name)
}

// fill completes a reserved registration. reserve guarantees single
// ownership of the name, so only an explicit Register can conflict here.
func (r *SchemaRegistry) fill(name string, s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, name)
	if existing, ok := r.schemas[name]; ok {
		if !schemaEqual(existing, s) {
			return &SchemaConflictError{Name: name}
		}
		return nil
	}
	r.names = append(r.names, name)
	r.schemas[name] = s
	return nil
}
