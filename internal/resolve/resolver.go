package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasgen/internal/spec"
)

// Scope decides which components namespace a reference inside an
// externally loaded file resolves against.
type Scope int

const (
	// ScopeRoot resolves `#/components/...` references found in external
	// files against the root specification.
	ScopeRoot Scope = iota
	// ScopeDocument resolves them against the external file itself.
	ScopeDocument
)

// ParseScope maps "root" or "document" to a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "root":
		return ScopeRoot, nil
	case "document", "doc":
		return ScopeDocument, nil
	default:
		return ScopeRoot, fmt.Errorf("unknown reference scope %q (expected root or document)", s)
	}
}

func (s Scope) String() string {
	if s == ScopeDocument {
		return "document"
	}
	return "root"
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScope sets the namespace used for references inside external files.
func WithScope(s Scope) Option { return func(r *Resolver) { r.scope = s } }

// WithReadFile replaces the function used to read external files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

// Resolver turns references into concrete component values. External files
// are read at most once per absolute path. A Resolver is not safe for
// concurrent use.
type Resolver struct {
	root     *spec.Specification
	scope    Scope
	readFile func(string) ([]byte, error)

	nodes map[string]*yaml.Node
	docs  map[string]*spec.Specification
}

// New returns a Resolver over root. External paths are relative to
// root.RootDirectory.
func New(root *spec.Specification, opts ...Option) *Resolver {
	r := &Resolver{
		root:     root,
		readFile: os.ReadFile,
		nodes:    map[string]*yaml.Node{},
		docs:     map[string]*spec.Specification{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the root specification.
func (r *Resolver) Root() *spec.Specification { return r.root }

func (r *Resolver) Schema(ref *spec.Ref[spec.Schema]) (*spec.Schema, error) {
	return resolve(r, ref, spec.CategorySchema, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Schema]] { return &c.Schemas })
}

func (r *Resolver) Response(ref *spec.Ref[spec.Response]) (*spec.Response, error) {
	return resolve(r, ref, spec.CategoryResponse, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Response]] { return &c.Responses })
}

func (r *Resolver) Parameter(ref *spec.Ref[spec.Parameter]) (*spec.Parameter, error) {
	return resolve(r, ref, spec.CategoryParameter, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Parameter]] { return &c.Parameters })
}

func (r *Resolver) Example(ref *spec.Ref[spec.Example]) (*spec.Example, error) {
	return resolve(r, ref, spec.CategoryExample, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Example]] { return &c.Examples })
}

func (r *Resolver) RequestBody(ref *spec.Ref[spec.RequestBody]) (*spec.RequestBody, error) {
	return resolve(r, ref, spec.CategoryRequestBody, func(c *spec.Components) *spec.Map[*spec.Ref[spec.RequestBody]] { return &c.RequestBodies })
}

func (r *Resolver) Header(ref *spec.Ref[spec.Header]) (*spec.Header, error) {
	return resolve(r, ref, spec.CategoryHeader, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Header]] { return &c.Headers })
}

func (r *Resolver) SecurityScheme(ref *spec.Ref[spec.SecurityScheme]) (*spec.SecurityScheme, error) {
	return resolve(r, ref, spec.CategorySecurityScheme, func(c *spec.Components) *spec.Map[*spec.Ref[spec.SecurityScheme]] { return &c.SecuritySchemes })
}

func (r *Resolver) Link(ref *spec.Ref[spec.Link]) (*spec.Link, error) {
	return resolve(r, ref, spec.CategoryLink, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Link]] { return &c.Links })
}

func (r *Resolver) Callback(ref *spec.Ref[spec.Callback]) (*spec.Callback, error) {
	return resolve(r, ref, spec.CategoryCallback, func(c *spec.Components) *spec.Map[*spec.Ref[spec.Callback]] { return &c.Callbacks })
}

// section picks the components mapping of one category.
type section[T any] func(*spec.Components) *spec.Map[*spec.Ref[T]]

func resolve[T any](r *Resolver, ref *spec.Ref[T], expected spec.Category, pick section[T]) (*T, error) {
	return follow(r, ref, expected, pick, nil)
}

// follow walks one reference chain. chain holds the keys already visited on
// the way here; meeting one again is a cycle.
func follow[T any](r *Resolver, ref *spec.Ref[T], expected spec.Category, pick section[T], chain []string) (*T, error) {
	if ref == nil {
		return nil, spec.Errorf(spec.Unresolvable, "missing %s", expected)
	}
	if !ref.IsRef() {
		if ref.Value == nil {
			return nil, spec.Errorf(spec.Unresolvable, "empty %s", expected)
		}
		return ref.Value, nil
	}

	parsed, err := ParseRef(ref.Ref)
	if err != nil {
		return nil, err
	}
	key := parsed.key()
	for _, seen := range chain {
		if seen == key {
			return nil, spec.Errorf(spec.CyclicReference, "cyclic reference: %s -> %s", strings.Join(chain, " -> "), key)
		}
	}
	chain = append(chain, key)

	if !parsed.IsComponent() {
		var next spec.Ref[T]
		if err := r.decodeFile(parsed.Path, &next); err != nil {
			return nil, err
		}
		return follow(r, &next, expected, pick, chain)
	}

	if parsed.Category != expected {
		return nil, &spec.SpecError{
			Code:     spec.MismatchedType,
			Message:  fmt.Sprintf("mismatched type: cannot reference a %s as a %s (%s)", parsed.Category, expected, ref.Ref),
			Actual:   parsed.Category,
			Expected: expected,
		}
	}

	doc := r.root
	if parsed.Source != "" {
		if doc, err = r.document(parsed.Source); err != nil {
			return nil, err
		}
	}
	if doc.Components == nil {
		return nil, spec.Errorf(spec.Unresolvable, "unresolvable reference: %s", ref.Ref)
	}
	next, ok := pick(doc.Components).Get(parsed.Name)
	if !ok || next == nil {
		return nil, spec.Errorf(spec.Unresolvable, "unresolvable reference: %s", ref.Ref)
	}
	return follow(r, next, expected, pick, chain)
}

// decodeFile decodes the external file at rel into out.
func (r *Resolver) decodeFile(rel string, out any) error {
	node, abs, err := r.load(rel)
	if err != nil {
		return err
	}
	if err := node.Decode(out); err != nil {
		return &spec.SpecError{Code: spec.FileReadFailure, Message: fmt.Sprintf("decode %s: %v", rel, err), Location: abs, Cause: err}
	}
	return nil
}

// document returns the specification stored in the file rel, used as the
// components namespace for references with a source part.
func (r *Resolver) document(rel string) (*spec.Specification, error) {
	node, abs, err := r.load(rel)
	if err != nil {
		return nil, err
	}
	if doc, ok := r.docs[abs]; ok {
		return doc, nil
	}
	doc := new(spec.Specification)
	if err := node.Decode(doc); err != nil {
		return nil, &spec.SpecError{Code: spec.FileReadFailure, Message: fmt.Sprintf("decode %s: %v", rel, err), Location: abs, Cause: err}
	}
	doc.RootDirectory = r.root.RootDirectory
	r.docs[abs] = doc
	return doc, nil
}

// load reads and parses rel relative to the root directory, once per
// absolute path. With ScopeDocument, local component references inside the
// file are rewritten to point back into the file.
func (r *Resolver) load(rel string) (*yaml.Node, string, error) {
	abs := filepath.Join(r.root.RootDirectory, filepath.FromSlash(rel))
	if a, err := filepath.Abs(abs); err == nil {
		abs = a
	}
	if node, ok := r.nodes[abs]; ok {
		return node, abs, nil
	}
	raw, err := r.readFile(abs)
	if err != nil {
		return nil, abs, &spec.SpecError{Code: spec.FileReadFailure, Message: fmt.Sprintf("cannot read %s: %v", rel, err), Location: abs, Cause: err}
	}
	node := new(yaml.Node)
	if err := yaml.Unmarshal(raw, node); err != nil {
		return nil, abs, &spec.SpecError{Code: spec.FileReadFailure, Message: fmt.Sprintf("cannot parse %s: %v", rel, err), Location: abs, Cause: err}
	}
	if r.scope == ScopeDocument {
		rebase(node, cleanPath(rel))
	}
	r.nodes[abs] = node
	return node, abs, nil
}

// rebase prefixes every local `#/...` reference under n with source.
func rebase(n *yaml.Node, source string) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Value == "$ref" && v.Kind == yaml.ScalarNode && strings.HasPrefix(v.Value, "#/") {
				v.Value = source + v.Value
			}
		}
	}
	for _, c := range n.Content {
		rebase(c, source)
	}
}
