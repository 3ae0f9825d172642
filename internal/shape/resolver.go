package shape

import (
	"fmt"
	"mime"
	"strings"

	"github.com/mark3labs/oasgen/internal/naming"
	"github.com/mark3labs/oasgen/internal/resolve"
	"github.com/mark3labs/oasgen/internal/spec"
	"github.com/mark3labs/oasgen/internal/typemap"
)

// Resolver infers shapes for operations. Record declarations triggered along
// the way accumulate in the shared Mapper.
type Resolver struct {
	refs  *resolve.Resolver
	types *typemap.Mapper
}

func New(refs *resolve.Resolver, types *typemap.Mapper) *Resolver {
	return &Resolver{refs: refs, types: types}
}

// Resolve computes the binding plans and result shape of one operation.
func (r *Resolver) Resolve(e spec.OperationEntry) (*Shapes, error) {
	id := strings.TrimSpace(e.Operation.OperationID)
	if id == "" {
		return nil, spec.Errorf(spec.MissingOperationID, "%s %s has no operationId", strings.ToUpper(string(e.Method)), e.Path).At(e.Pointer())
	}
	name := naming.Pascal(id)
	vars := newVarSet()

	params, err := r.params(e, vars)
	if err != nil {
		return nil, err
	}
	out := &Shapes{Params: params}

	if e.Operation.RequestBody != nil {
		body, union, err := r.body(e, name, vars)
		if err != nil {
			return nil, err
		}
		out.Body = body
		if union != nil {
			out.Unions = append(out.Unions, *union)
		}
	}

	result, unions, err := r.result(e, name)
	if err != nil {
		return nil, err
	}
	out.Result = result
	out.Unions = append(out.Unions, unions...)
	return out, nil
}

// params resolves every declared parameter, then merges them: an
// operation parameter replaces a path parameter with the same (in, name)
// and keeps the path parameter's position.
func (r *Resolver) params(e spec.OperationEntry, vars varSet) ([]ParamBinding, error) {
	type declared struct {
		param   *spec.Parameter
		pointer string
	}
	var (
		merged []declared
		index  = map[string]int{}
	)
	for _, src := range e.Parameters() {
		p, err := r.refs.Parameter(src.Ref)
		if err != nil {
			return nil, spec.Qualify(err, src.Pointer)
		}
		key := p.In + ":" + p.Name
		if i, ok := index[key]; ok {
			merged[i] = declared{p, src.Pointer}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, declared{p, src.Pointer})
	}

	var out []ParamBinding
	for _, d := range merged {
		b, err := r.param(d.param)
		if err != nil {
			return nil, spec.Qualify(err, d.pointer)
		}
		b.Var = vars.claim(b.Var)
		out = append(out, b)
	}
	return out, nil
}

func (r *Resolver) param(p *spec.Parameter) (ParamBinding, error) {
	b := ParamBinding{
		Name:        p.Name,
		Var:         naming.Camel(p.Name),
		Location:    p.In,
		Type:        typemap.TypeRef{Kind: typemap.Text},
		Required:    p.Required,
		Description: p.Description,
	}
	var schema *spec.Schema
	if p.Schema != nil {
		s, err := r.refs.Schema(p.Schema)
		if err != nil {
			return b, spec.Prefix(err, "parameter "+p.Name)
		}
		schema = s
		if b.Type, _, err = r.types.MapSchema(s); err != nil {
			return b, spec.Prefix(err, "parameter "+p.Name)
		}
	}

	switch p.In {
	case spec.InPath:
		b.Kind = PathBinding
		b.Required = true
	case spec.InQuery:
		b.Kind = QueryValueBinding
		if schema != nil && strings.TrimSpace(schema.Title) != "" && b.Type.Kind == typemap.Record {
			b.Kind = QueryStructBinding
			b.Var = naming.Camel(schema.Title)
		}
	case spec.InHeader:
		b.Kind = HeaderBinding
	case spec.InCookie:
		b.Kind = CookieBinding
	default:
		return b, spec.Errorf(spec.UnsupportedParameterLocation, "parameter %q has unsupported location %q", p.Name, p.In)
	}
	return b, nil
}

func (r *Resolver) body(e spec.OperationEntry, opName string, vars varSet) (*BodyPlan, *Union, error) {
	base := spec.Pointer("paths", e.Path, string(e.Method), "requestBody")
	rb, err := r.refs.RequestBody(e.Operation.RequestBody)
	if err != nil {
		return nil, nil, spec.Qualify(err, base)
	}
	if rb.Content.Len() == 0 {
		return nil, nil, spec.Errorf(spec.MissingSchema, "request body declares no content").At(base)
	}

	var groups []BodyGroup
	index := map[string]int{}
	for mt, media := range rb.Content.All() {
		ptr := spec.Pointer("paths", e.Path, string(e.Method), "requestBody", "content", mt)
		if !SupportedRequestMediaType(mt) {
			return nil, nil, spec.Errorf(spec.UnsupportedMediaType, "unsupported request media type %q", mt).At(ptr)
		}
		if media == nil || media.Schema == nil {
			return nil, nil, spec.Errorf(spec.MissingSchema, "request body media type %q has no schema", mt).At(ptr)
		}
		t, _, err := r.types.Map(media.Schema)
		if err != nil {
			return nil, nil, spec.Qualify(err, ptr)
		}
		key := t.ResultName()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, BodyGroup{Type: t})
		}
		groups[i].Candidates = append(groups[i].Candidates, Candidate{MediaType: mt, Type: t})
	}

	plan := &BodyPlan{Required: rb.Required, Groups: groups}
	if len(groups) == 1 {
		plan.Type = groups[0].Type
		plan.Var = vars.claim(bodyVar(groups[0].Type))
		return plan, nil, nil
	}
	u := Union{Name: opName + "Body", Kind: SumUnion}
	for _, g := range groups {
		u.Cases = append(u.Cases, g.Type)
	}
	plan.Type = u.Ref()
	plan.Var = vars.claim("body")
	return plan, &u, nil
}

func bodyVar(t typemap.TypeRef) string {
	for t.Kind == typemap.Sequence && t.Elem != nil {
		t = *t.Elem
	}
	if t.IsNamed() {
		if v := naming.Camel(t.Name); v != "" {
			return v
		}
	}
	return "body"
}

func (r *Resolver) result(e spec.OperationEntry, opName string) (ResultShape, []Union, error) {
	type coded struct {
		code  string
		types []typemap.TypeRef
	}
	var codes []coded
	for code, ref := range e.Operation.Responses.All() {
		ptr := spec.Pointer("paths", e.Path, string(e.Method), "responses", code)
		resp, err := r.refs.Response(ref)
		if err != nil {
			return ResultShape{}, nil, spec.Qualify(err, ptr)
		}
		types, err := r.resultTypes(resp)
		if err != nil {
			return ResultShape{}, nil, spec.Qualify(err, ptr)
		}
		codes = append(codes, coded{code: code, types: types})
	}

	// Several codes always form a tagged union, even when none has content,
	// so handlers can still choose the status.
	if len(codes) <= 1 {
		var types []typemap.TypeRef
		if len(codes) == 1 {
			types = codes[0].types
		}
		switch len(types) {
		case 0:
			return ResultShape{Kind: NoValue}, nil, nil
		case 1:
			t := types[0]
			return ResultShape{Kind: Single, Type: &t}, nil, nil
		}
		u := Union{Name: opName + "Result", Kind: SumUnion, Cases: types}
		ref := u.Ref()
		return ResultShape{Kind: Sum, Type: &ref}, []Union{u}, nil
	}

	var unions []Union
	tagged := Union{Name: opName + "Response", Kind: TaggedUnion}
	for _, c := range codes {
		v := Variant{Name: "Result_" + c.code, Code: c.code}
		switch len(c.types) {
		case 0:
		case 1:
			t := c.types[0]
			v.Type = &t
		default:
			u := Union{Name: naming.Append(opName+"Result", c.code), Kind: SumUnion, Cases: c.types}
			ref := u.Ref()
			v.Type = &ref
			unions = append(unions, u)
		}
		tagged.Variants = append(tagged.Variants, v)
	}
	unions = append(unions, tagged)
	ref := tagged.Ref()
	return ResultShape{Kind: Tagged, Type: &ref, Variants: tagged.Variants}, unions, nil
}

// resultTypes lists the distinct result types of a response's content in
// declaration order. A media type without a schema yields raw bytes.
func (r *Resolver) resultTypes(resp *spec.Response) ([]typemap.TypeRef, error) {
	var (
		out  []typemap.TypeRef
		seen = map[string]bool{}
	)
	for mt, media := range resp.Content.All() {
		t := typemap.TypeRef{Kind: typemap.Bytes}
		if media != nil && media.Schema != nil {
			var err error
			if t, _, err = r.types.Map(media.Schema); err != nil {
				return nil, spec.Prefix(err, fmt.Sprintf("content %s", mt))
			}
		}
		if key := t.ResultName(); !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// SupportedRequestMediaType reports whether a request body of media type mt
// can be decoded at request time.
func SupportedRequestMediaType(mt string) bool {
	base, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return false
	}
	switch base {
	case "application/json", "application/yaml", "application/x-yaml", "text/yaml",
		"application/x-www-form-urlencoded", "text/plain", "application/octet-stream":
		return true
	}
	return strings.HasPrefix(base, "application/") && strings.HasSuffix(base, "+json")
}

// varSet hands out unique variable names within one operation.
type varSet map[string]int

// reservedVars are names generated handlers declare themselves, plus the
// packages they refer to.
var reservedVars = []string{"ctx", "r", "w", "svc", "rt", "data", "err", "ct", "v", "context", "http", "oasrt", "time"}

func newVarSet() varSet {
	v := varSet{}
	for _, name := range reservedVars {
		v[name] = 1
	}
	return v
}

func (v varSet) claim(name string) string {
	if name == "" {
		name = "param"
	}
	n := v[name]
	v[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, n+1)
}
