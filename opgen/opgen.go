// Package opgen generates operon schema registrations from Go struct
// declarations. It is an explicit code-generation step outside the runtime
// core: the generated file registers the same shapes the runtime would
// derive by reflection, but makes them reviewable source.
package opgen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"io"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Config controls generation.
type Config struct {
	// Patterns are go/packages load patterns, e.g. "./api/...".
	Patterns []string
	// Types optionally restricts generation to the named struct types.
	Types []string
	// Package is the package name of the generated file.
	Package string
	// FuncName is the generated registration function name.
	// Defaults to RegisterSchemas.
	FuncName string
}

// Generate loads the configured packages, collects exported struct
// declarations, and writes a registration function to out.
func Generate(cfg Config, out io.Writer) error {
	mode := packages.NeedName | packages.NeedFiles | packages.NeedSyntax
	pkgs, err := packages.Load(&packages.Config{Mode: mode}, cfg.Patterns...)
	if err != nil {
		return fmt.Errorf("opgen: load packages: %w", err)
	}
	var files []*ast.File
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return fmt.Errorf("opgen: package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
		files = append(files, pkg.Syntax...)
	}

	structs := CollectStructs(files, cfg.Types)
	if len(structs) == 0 {
		return fmt.Errorf("opgen: no matching struct types in %v", cfg.Patterns)
	}
	return Render(cfg, structs, out)
}

// StructDecl is one collected struct type.
type StructDecl struct {
	Name   string
	Fields []FieldDecl
}

// FieldDecl is one exported struct field with its derived shape.
type FieldDecl struct {
	Name     string // wire name, honoring the json tag
	Expr     string // operon schema construction expression
	Required bool
}

// CollectStructs walks the files and returns exported struct declarations.
// When filter is non-empty, only the named types are kept.
func CollectStructs(files []*ast.File, filter []string) []StructDecl {
	want := make(map[string]bool, len(filter))
	for _, name := range filter {
		want[name] = true
	}

	var out []StructDecl
	seen := make(map[string]bool)
	for _, f := range files {
		ast.Inspect(f, func(n ast.Node) bool {
			ts, ok := n.(*ast.TypeSpec)
			if !ok {
				return true
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok || !ts.Name.IsExported() || seen[ts.Name.Name] {
				return true
			}
			if len(want) > 0 && !want[ts.Name.Name] {
				return true
			}
			seen[ts.Name.Name] = true
			out = append(out, StructDecl{
				Name:   ts.Name.Name,
				Fields: collectFields(st),
			})
			return true
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func collectFields(st *ast.StructType) []FieldDecl {
	var fields []FieldDecl
	for _, f := range st.Fields.List {
		expr, optional, ok := schemaExpr(f.Type)
		if !ok {
			continue
		}
		for _, name := range f.Names {
			if !name.IsExported() {
				continue
			}
			wire, omitempty := wireName(f, name.Name)
			if wire == "" {
				continue
			}
			fields = append(fields, FieldDecl{
				Name:     wire,
				Expr:     expr,
				Required: !optional && !omitempty,
			})
		}
	}
	return fields
}

func wireName(f *ast.Field, fallback string) (name string, omitempty bool) {
	name = fallback
	if f.Tag == nil {
		return name, false
	}
	tag := strings.Trim(f.Tag.Value, "`")
	for _, part := range strings.Split(tag, " ") {
		if !strings.HasPrefix(part, `json:"`) {
			continue
		}
		value := strings.TrimSuffix(strings.TrimPrefix(part, `json:"`), `"`)
		opts := strings.Split(value, ",")
		if opts[0] == "-" {
			return "", false
		}
		if opts[0] != "" {
			name = opts[0]
		}
		for _, opt := range opts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}
	}
	return name, omitempty
}

// schemaExpr maps a field type expression to operon schema construction
// code. Unsupported expressions (channels, funcs) are skipped.
func schemaExpr(expr ast.Expr) (code string, optional, ok bool) {
	switch t := expr.(type) {
	case *ast.StarExpr:
		code, _, ok = schemaExpr(t.X)
		return code, true, ok
	case *ast.ArrayType:
		if ident, isIdent := t.Elt.(*ast.Ident); isIdent && ident.Name == "byte" {
			return "operon.InlineSchema(operon.BinarySchema())", false, true
		}
		elem, _, elemOK := schemaExpr(t.Elt)
		if !elemOK {
			return "", false, false
		}
		return fmt.Sprintf("operon.InlineSchema(operon.ArraySchema(%s))", elem), false, true
	case *ast.MapType:
		return `operon.InlineSchema(operon.NewSchema("object"))`, false, true
	case *ast.Ident:
		return identSchemaExpr(t.Name)
	case *ast.SelectorExpr:
		if pkg, isIdent := t.X.(*ast.Ident); isIdent && pkg.Name == "time" && t.Sel.Name == "Time" {
			return `operon.InlineSchema(operon.NewSchemaWithFormat("string", "date-time"))`, false, true
		}
		return "", false, false
	default:
		return "", false, false
	}
}

var primitiveExprs = map[string][2]string{
	"bool":    {"boolean", ""},
	"string":  {"string", ""},
	"int":     {"integer", "int32"},
	"int8":    {"integer", "int8"},
	"int16":   {"integer", "int16"},
	"int32":   {"integer", "int32"},
	"int64":   {"integer", "int64"},
	"uint":    {"integer", "uint32"},
	"uint8":   {"integer", "uint8"},
	"uint16":  {"integer", "uint16"},
	"uint32":  {"integer", "uint32"},
	"uint64":  {"integer", "uint64"},
	"float32": {"number", "float"},
	"float64": {"number", "double"},
}

func identSchemaExpr(name string) (code string, optional, ok bool) {
	if tf, isPrim := primitiveExprs[name]; isPrim {
		if tf[1] == "" {
			return fmt.Sprintf("operon.InlineSchema(operon.NewSchema(%q))", tf[0]), false, true
		}
		return fmt.Sprintf("operon.InlineSchema(operon.NewSchemaWithFormat(%q, %q))", tf[0], tf[1]), false, true
	}
	if ast.IsExported(name) {
		// Another declared type; reference it by name.
		return fmt.Sprintf("operon.NamedRef(%q)", name), false, true
	}
	return "", false, false
}

// Render writes the registration function for the collected structs and
// formats it with go/format.
func Render(cfg Config, structs []StructDecl, out io.Writer) error {
	funcName := cfg.FuncName
	if funcName == "" {
		funcName = "RegisterSchemas"
	}
	pkgName := cfg.Package
	if pkgName == "" {
		pkgName = "api"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by opgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	fmt.Fprintf(&buf, "import \"github.com/operon-dev/operon\"\n\n")
	fmt.Fprintf(&buf, "// %s registers the package's schemas.\n", funcName)
	fmt.Fprintf(&buf, "func %s(reg *operon.SchemaRegistry) error {\n", funcName)
	for _, s := range structs {
		fmt.Fprintf(&buf, "\tif _, err := reg.Register(%q, &operon.Schema{\n", s.Name)
		fmt.Fprintf(&buf, "\t\tType: \"object\",\n")
		if len(s.Fields) > 0 {
			fmt.Fprintf(&buf, "\t\tProperties: []operon.Property{\n")
			for _, f := range s.Fields {
				fmt.Fprintf(&buf, "\t\t\t{Name: %q, Schema: %s},\n", f.Name, f.Expr)
			}
			fmt.Fprintf(&buf, "\t\t},\n")
		}
		var required []string
		for _, f := range s.Fields {
			if f.Required {
				required = append(required, fmt.Sprintf("%q", f.Name))
			}
		}
		if len(required) > 0 {
			fmt.Fprintf(&buf, "\t\tRequired: []string{%s},\n", strings.Join(required, ", "))
		}
		fmt.Fprintf(&buf, "\t}); err != nil {\n\t\treturn err\n\t}\n")
	}
	fmt.Fprintf(&buf, "\treturn nil\n}\n")

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("opgen: format generated code: %w", err)
	}
	_, err = out.Write(formatted)
	return err
}
