package opgen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

func parse(t *testing.T, src string) []*ast.File {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	return []*ast.File{f}
}

const sample = `package api

import "time"

type Pet struct {
	ID      int64     ` + "`json:\"id\"`" + `
	Name    string    ` + "`json:\"name\"`" + `
	Tag     *string   ` + "`json:\"tag,omitempty\"`" + `
	Photo   []byte    ` + "`json:\"photo\"`" + `
	Toys    []string  ` + "`json:\"toys\"`" + `
	Owner   Owner     ` + "`json:\"owner\"`" + `
	Born    time.Time ` + "`json:\"born\"`" + `
	Ignored string    ` + "`json:\"-\"`" + `
	hidden  string
}

type Owner struct {
	Name string ` + "`json:\"name\"`" + `
}

type internal struct {
	X int
}
`

func TestCollectStructs(t *testing.T) {
	structs := CollectStructs(parse(t, sample), nil)
	if len(structs) != 2 {
		t.Fatalf("collected %d structs, want 2 (unexported skipped)", len(structs))
	}
	// Sorted by name.
	if structs[0].Name != "Owner" || structs[1].Name != "Pet" {
		t.Fatalf("names = %s, %s", structs[0].Name, structs[1].Name)
	}

	pet := structs[1]
	byName := make(map[string]FieldDecl)
	for _, f := range pet.Fields {
		byName[f.Name] = f
	}
	if _, ok := byName["Ignored"]; ok {
		t.Error("json:\"-\" field not skipped")
	}
	if _, ok := byName["hidden"]; ok {
		t.Error("unexported field not skipped")
	}
	if len(pet.Fields) != 7 {
		t.Fatalf("pet fields = %d, want 7", len(pet.Fields))
	}

	if f := byName["id"]; f.Expr != `operon.InlineSchema(operon.NewSchemaWithFormat("integer", "int64"))` || !f.Required {
		t.Errorf("id = %+v", f)
	}
	if f := byName["tag"]; f.Required {
		t.Error("pointer omitempty field marked required")
	}
	if f := byName["photo"]; f.Expr != "operon.InlineSchema(operon.BinarySchema())" {
		t.Errorf("photo = %+v", f)
	}
	if f := byName["toys"]; !strings.Contains(f.Expr, "operon.ArraySchema(") {
		t.Errorf("toys = %+v", f)
	}
	if f := byName["owner"]; f.Expr != `operon.NamedRef("Owner")` {
		t.Errorf("owner = %+v", f)
	}
	if f := byName["born"]; !strings.Contains(f.Expr, `"date-time"`) {
		t.Errorf("born = %+v", f)
	}
}

func TestCollectStructsFilter(t *testing.T) {
	structs := CollectStructs(parse(t, sample), []string{"Owner"})
	if len(structs) != 1 || structs[0].Name != "Owner" {
		t.Fatalf("filtered = %+v", structs)
	}
}

func TestRender(t *testing.T) {
	structs := CollectStructs(parse(t, sample), nil)

	var buf bytes.Buffer
	err := Render(Config{Package: "api", FuncName: "RegisterSchemas"}, structs, &buf)
	if err != nil {
		t.Fatal(err)
	}
	got := buf.String()

	for _, want := range []string{
		"// Code generated by opgen. DO NOT EDIT.",
		"package api",
		`import "github.com/operon-dev/operon"`,
		"func RegisterSchemas(reg *operon.SchemaRegistry) error {",
		`reg.Register("Owner"`,
		`reg.Register("Pet"`,
		`Required: []string{"name"}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("generated code missing %q:\n%s", want, got)
		}
	}
}

func TestRenderDefaults(t *testing.T) {
	structs := CollectStructs(parse(t, sample), []string{"Owner"})

	var buf bytes.Buffer
	if err := Render(Config{}, structs, &buf); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "package api") || !strings.Contains(got, "func RegisterSchemas(") {
		t.Errorf("defaults not applied:\n%s", got)
	}
}
