// Package artifact builds the three artifact groups of a generation run: type
// declarations, the service interface and the routing table.
package artifact

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/mark3labs/oasgen/internal/naming"
	"github.com/mark3labs/oasgen/internal/resolve"
	"github.com/mark3labs/oasgen/internal/shape"
	"github.com/mark3labs/oasgen/internal/spec"
	"github.com/mark3labs/oasgen/internal/typemap"
)

// Set is the complete, deterministic output of a run, keyed by Title.
type Set struct {
	Title     string          `json:"title" yaml:"title"`
	Version   string          `json:"version,omitempty" yaml:"version,omitempty"`
	Types     []*typemap.Decl `json:"types" yaml:"types"`
	Unions    []shape.Union   `json:"unions" yaml:"unions"`
	Interface Interface       `json:"interface" yaml:"interface"`
	Routes    []Route         `json:"routes" yaml:"routes"`
}

// Interface is the service contract: one method per operation.
type Interface struct {
	Name    string   `json:"name" yaml:"name"`
	Methods []Method `json:"methods" yaml:"methods"`
}

// Method is one interface operation. Inputs are Params followed by Body.
type Method struct {
	Name        string               `json:"name" yaml:"name"`
	OperationID string               `json:"operationId" yaml:"operationId"`
	Summary     string               `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Deprecated  bool                 `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Params      []shape.ParamBinding `json:"params,omitempty" yaml:"params,omitempty"`
	Body        *shape.BodyPlan      `json:"body,omitempty" yaml:"body,omitempty"`
	Result      shape.ResultShape    `json:"result" yaml:"result"`
}

// Route binds one (path, method) pair to its handler method.
type Route struct {
	Method  string `json:"method" yaml:"method"`
	Path    string `json:"path" yaml:"path"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Handler string `json:"handler" yaml:"handler"`
}

// Settings configures Build.
type Settings struct {
	IncludeTags []string
	ExcludeTags []string
}

// Option mutates Settings.
type Option func(*Settings)

// WithIncludeTags keeps only operations carrying one of tags.
func WithIncludeTags(tags ...string) Option {
	return func(s *Settings) { s.IncludeTags = append(s.IncludeTags, tags...) }
}

// WithExcludeTags drops operations carrying one of tags. Exclusion wins over
// inclusion.
func WithExcludeTags(tags ...string) Option {
	return func(s *Settings) { s.ExcludeTags = append(s.ExcludeTags, tags...) }
}

// Build resolves every operation of the resolver's root document and
// assembles the artifact Set. The first error aborts the build.
func Build(ctx context.Context, refs *resolve.Resolver, opts ...Option) (*Set, error) {
	var settings Settings
	for _, opt := range opts {
		opt(&settings)
	}
	doc := refs.Root()
	types := typemap.NewMapper(refs)
	shapes := shape.New(refs, types)

	set := &Set{
		Title:     doc.Info.Title,
		Version:   doc.Info.Version,
		Interface: Interface{Name: naming.Pascal(doc.Info.Title)},
	}
	if set.Interface.Name == "" {
		set.Interface.Name = "Service"
	}

	methods := map[string]string{}
	routes := map[string]string{}
	unions := map[string]string{}
	for _, e := range doc.Operations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !settings.keep(e.Operation.Tags) {
			continue
		}
		if err := checkPath(e.Path); err != nil {
			return nil, err.At(spec.Pointer("paths", e.Path))
		}
		s, err := shapes.Resolve(e)
		if err != nil {
			return nil, err
		}
		id := e.Operation.OperationID
		name := naming.Pascal(id)
		if prev, ok := methods[name]; ok {
			return nil, spec.Errorf(spec.DuplicateOperationID, "operationId %q collides with %q (both map to %s)", id, prev, name).At(e.Pointer())
		}
		methods[name] = id

		method := strings.ToUpper(string(e.Method))
		key := method + " " + templateKey(e.Path)
		if prev, ok := routes[key]; ok {
			return nil, spec.Errorf(spec.DuplicateRoute, "%s %s duplicates the route of operation %q", method, e.Path, prev).At(e.Pointer())
		}
		routes[key] = id

		for _, u := range s.Unions {
			if prev, ok := unions[u.Name]; ok {
				return nil, spec.Errorf(spec.DuplicateTypeName, "type %s of operation %q is also synthesized for %q", u.Name, id, prev).At(e.Pointer())
			}
			unions[u.Name] = id
			set.Unions = append(set.Unions, u)
		}

		set.Interface.Methods = append(set.Interface.Methods, Method{
			Name:        name,
			OperationID: id,
			Summary:     e.Operation.Summary,
			Description: e.Operation.Description,
			Deprecated:  e.Operation.Deprecated,
			Params:      s.Params,
			Body:        s.Body,
			Result:      s.Result,
		})
		set.Routes = append(set.Routes, Route{
			Method:  method,
			Path:    e.Path,
			Pattern: method + " " + muxPath(e.Path, s.Params),
			Handler: name,
		})
	}
	for _, u := range set.Unions {
		if types.Emitted(u.Name) {
			return nil, spec.Errorf(spec.DuplicateTypeName, "synthesized type %s of operation %q clashes with a schema title", u.Name, unions[u.Name])
		}
	}
	set.Types = types.Decls()
	return set, nil
}

// Method returns the interface method named name.
func (s *Set) Method(name string) (Method, bool) {
	i := slices.IndexFunc(s.Interface.Methods, func(m Method) bool { return m.Name == name })
	if i < 0 {
		return Method{}, false
	}
	return s.Interface.Methods[i], true
}

// Union returns the synthesized union named name.
func (s *Set) Union(name string) (shape.Union, bool) {
	i := slices.IndexFunc(s.Unions, func(u shape.Union) bool { return u.Name == name })
	if i < 0 {
		return shape.Union{}, false
	}
	return s.Unions[i], true
}

func (s Settings) keep(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(s.ExcludeTags, t) {
			return false
		}
	}
	if len(s.IncludeTags) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(s.IncludeTags, t) {
			return true
		}
	}
	return false
}

var (
	templateVar = regexp.MustCompile(`\{[^}/]*\}`)
	segmentVar  = regexp.MustCompile(`^\{[^{}]+\}$`)
)

// checkPath rejects templates http.ServeMux cannot express: a variable must
// fill a whole segment and appear once.
func checkPath(path string) *spec.SpecError {
	seen := map[string]bool{}
	for _, seg := range strings.Split(path, "/") {
		if !strings.ContainsAny(seg, "{}") {
			continue
		}
		if !segmentVar.MatchString(seg) {
			return spec.Errorf(spec.UnsupportedPath, "path %s: segment %q must be a single {variable}", path, seg)
		}
		if seen[seg] {
			return spec.Errorf(spec.UnsupportedPath, "path %s: variable %s appears twice", path, seg)
		}
		seen[seg] = true
	}
	return nil
}

// templateKey erases variable names so "/a/{id}" and "/a/{name}" compare equal.
func templateKey(path string) string {
	return templateVar.ReplaceAllString(path, "{}")
}

// muxPath rewrites path variables to the binding variable names, which are
// valid http.ServeMux wildcards.
func muxPath(path string, params []shape.ParamBinding) string {
	if strings.HasSuffix(path, "/") {
		// a trailing slash would otherwise match the whole subtree
		path += "{$}"
	}
	return templateVar.ReplaceAllStringFunc(path, func(m string) string {
		if m == "{$}" {
			return m
		}
		name := m[1 : len(m)-1]
		for _, p := range params {
			if p.Kind == shape.PathBinding && p.Name == name {
				return "{" + p.Var + "}"
			}
		}
		return "{" + naming.Camel(name) + "}"
	})
}
