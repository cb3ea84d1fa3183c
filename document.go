package operon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Document projects the registered operations into an OpenAPI 3 document.
// Every extraction rule, default, validator bound and content-type mapping
// in the document comes from the same declaration the runtime binder uses,
// so the two cannot disagree.
func (a *API) Document() *openapi3.T {
	a.compile()

	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       a.title,
			Version:     a.version,
			Description: a.desc,
		},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	for _, s := range a.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: s.URL, Description: s.Description})
	}

	for _, op := range a.ops {
		path := docPath(a.prefix + op.path)
		item := doc.Paths[path]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[path] = item
		}
		kop := a.docOperation(op)
		for _, method := range op.methods {
			item.SetOperation(method, kop)
		}
	}

	for _, name := range a.registry.Names() {
		s, _ := a.registry.Resolve(NamedRef(name))
		doc.Components.Schemas[name] = a.docSchemaRef(InlineSchema(s))
	}

	return doc
}

// SpecJSON serializes the document as indented JSON.
func (a *API) SpecJSON() ([]byte, error) {
	return json.MarshalIndent(a.Document(), "", "  ")
}

// SpecYAML serializes the document as YAML.
func (a *API) SpecYAML() ([]byte, error) {
	data, err := json.Marshal(a.Document())
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}

// docPath rewrites `:name` placeholders into OpenAPI `{name}` templates.
func docPath(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

func (a *API) docOperation(op *Operation) *openapi3.Operation {
	kop := &openapi3.Operation{
		Summary:     op.summary,
		Description: op.desc,
		Deprecated:  op.deprecated,
	}
	kop.Tags = append(kop.Tags, a.tags...)
	kop.Tags = append(kop.Tags, op.tags...)
	if op.externalDocs != nil {
		kop.ExternalDocs = &openapi3.ExternalDocs{
			URL:         op.externalDocs.URL,
			Description: op.externalDocs.Description,
		}
	}

	for _, p := range op.params {
		kop.Parameters = append(kop.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:        p.name,
				In:          string(p.loc),
				Description: p.desc,
				Required:    p.isRequired(),
				Deprecated:  p.deprecated,
				Schema:      a.docSchemaRef(InlineSchema(p.docSchema())),
			},
		})
	}

	if op.body != nil {
		kop.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: op.body.desc,
				Required:    op.body.required,
				Content:     a.docContent(op.body.content),
			},
		}
	}

	kop.Responses = openapi3.Responses{}
	for _, c := range op.responses {
		key := "default"
		if c.status != 0 {
			key = strconv.Itoa(c.status)
		}
		desc := c.desc
		resp := &openapi3.Response{Description: &desc}
		if len(c.content) > 0 {
			resp.Content = a.docContent(c.content)
		}
		headers := headerUnion(c.headers, op.respHeaders, a.respHeaders)
		if len(headers) > 0 {
			resp.Headers = openapi3.Headers{}
			for _, h := range headers {
				name := h.docName()
				if _, exists := resp.Headers[name]; exists {
					// The declaration union keeps duplicates; the OpenAPI
					// header map cannot, so the first declaration wins here.
					continue
				}
				kh := &openapi3.Header{}
				kh.Description = h.desc
				kh.Required = h.required
				kh.Deprecated = h.deprecated
				kh.Schema = a.docSchemaRef(InlineSchema(h.typ.Schema()))
				resp.Headers[name] = &openapi3.HeaderRef{Value: kh}
			}
		}
		if existing, ok := kop.Responses[key]; ok {
			mergeResponse(existing.Value, resp)
			continue
		}
		kop.Responses[key] = &openapi3.ResponseRef{Value: resp}
	}
	if len(kop.Responses) == 0 {
		empty := ""
		kop.Responses["200"] = &openapi3.ResponseRef{Value: &openapi3.Response{Description: &empty}}
	}

	return kop
}

// headerUnion concatenates header declarations: case-level first, then
// operation-level, then API-level. Duplicates are intentionally kept.
func headerUnion(groups ...[]*ResponseHeader) []*ResponseHeader {
	var out []*ResponseHeader
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func mergeResponse(dst, src *openapi3.Response) {
	if len(src.Content) > 0 {
		if dst.Content == nil {
			dst.Content = openapi3.Content{}
		}
		for ct, mt := range src.Content {
			if _, ok := dst.Content[ct]; !ok {
				dst.Content[ct] = mt
			}
		}
	}
	if len(src.Headers) > 0 {
		if dst.Headers == nil {
			dst.Headers = openapi3.Headers{}
		}
		for name, h := range src.Headers {
			if _, ok := dst.Headers[name]; !ok {
				dst.Headers[name] = h
			}
		}
	}
}

func (a *API) docContent(alternatives []MediaType) openapi3.Content {
	content := openapi3.Content{}
	for _, alt := range alternatives {
		ref, err := alt.schema(a.registry)
		if err != nil {
			// Schemas resolved successfully at registration; a failure here
			// is a programming error.
			panic(fmt.Sprintf("operon: schema resolution failed during document build: %v", err))
		}
		content[alt.contentType] = &openapi3.MediaType{Schema: a.docSchemaRef(ref)}
	}
	return content
}

func (a *API) docSchemaRef(ref SchemaRef) *openapi3.SchemaRef {
	if ref.Ref != "" {
		return openapi3.NewSchemaRef("#/components/schemas/"+ref.Ref, nil)
	}
	return openapi3.NewSchemaRef("", a.docSchema(ref.Value))
}

func (a *API) docSchema(s *Schema) *openapi3.Schema {
	ks := &openapi3.Schema{
		Type:         s.Type,
		Format:       s.Format,
		Description:  s.Description,
		Enum:         s.Enum,
		Default:      s.Default,
		Pattern:      s.Pattern,
		MinLength:    s.MinLength,
		MaxLength:    s.MaxLength,
		Min:          s.Minimum,
		Max:          s.Maximum,
		ExclusiveMin: s.ExclusiveMinimum,
		ExclusiveMax: s.ExclusiveMaximum,
		Required:     s.Required,
	}
	if s.Items != nil {
		ks.Items = a.docSchemaRef(*s.Items)
	}
	if len(s.Properties) > 0 {
		ks.Properties = openapi3.Schemas{}
		for _, p := range s.Properties {
			ks.Properties[p.Name] = a.docSchemaRef(p.Schema)
		}
	}
	return ks
}
