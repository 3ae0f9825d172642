// Package typemap maps resolved schemas to target type references and
// collects the named record declarations they require.
package typemap

import (
	"fmt"
	"strings"

	"github.com/mark3labs/oasgen/internal/resolve"
	"github.com/mark3labs/oasgen/internal/spec"
)

// Kind classifies a TypeRef.
type Kind string

const (
	Text      Kind = "text"
	Timestamp Kind = "timestamp"
	Int64     Kind = "int64"
	Float64   Kind = "float64"
	Bool      Kind = "bool"
	Bytes     Kind = "bytes"
	Sequence  Kind = "sequence"
	Record    Kind = "record"
	// Union refers to a sum type synthesized from several result names.
	Union Kind = "union"
)

// TypeRef is an inline reference to a type.
type TypeRef struct {
	Kind Kind     `json:"kind" yaml:"kind"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Elem *TypeRef `json:"elem,omitempty" yaml:"elem,omitempty"`
}

// Named returns a reference to a record.
func Named(name string) TypeRef { return TypeRef{Kind: Record, Name: name} }

// SequenceOf returns a sequence of elem.
func SequenceOf(elem TypeRef) TypeRef { return TypeRef{Kind: Sequence, Elem: &elem} }

// IsNamed reports whether t refers to a declared type by name.
func (t TypeRef) IsNamed() bool { return t.Kind == Record || t.Kind == Union }

// ResultName is the name used when grouping bodies and results: the declared
// name for records and unions, the kind for everything else.
func (t TypeRef) ResultName() string {
	if t.IsNamed() {
		return t.Name
	}
	return t.String()
}

func (t TypeRef) String() string {
	switch t.Kind {
	case Record, Union:
		return t.Name
	case Sequence:
		if t.Elem == nil {
			return "[]" + string(Text)
		}
		return "[]" + t.Elem.String()
	default:
		return string(t.Kind)
	}
}

// Field is one record property, in declaration order.
type Field struct {
	Name        string  `json:"name" yaml:"name"`
	Type        TypeRef `json:"type" yaml:"type"`
	Required    bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Decl is a named record declaration. Nested lists the declarations first
// emitted while mapping this record's fields.
type Decl struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
	Nested      []*Decl `json:"-" yaml:"-"`
}

type formatKey struct{ typ, format string }

// formats is keyed by (type, format). A format missing from the table falls
// back to the (type, "") entry.
var formats = map[formatKey]Kind{
	{"string", ""}:          Text,
	{"string", "date"}:      Timestamp,
	{"string", "time"}:      Timestamp,
	{"string", "date-time"}: Timestamp,
	{"string", "binary"}:    Bytes,
	{"string", "byte"}:      Bytes,
	{"number", ""}:          Float64,
	{"number", "int64"}:     Int64,
	{"integer", ""}:         Int64,
	{"boolean", ""}:         Bool,
}

// Mapper maps schemas to types. Record declarations are deduplicated by
// name across all calls on the same Mapper.
type Mapper struct {
	res     *resolve.Resolver
	emitted map[string]bool
	decls   []*Decl
	// active holds the references being mapped by enclosing Map calls.
	active map[string]bool
}

func NewMapper(r *resolve.Resolver) *Mapper {
	return &Mapper{res: r, emitted: map[string]bool{}, active: map[string]bool{}}
}

// Decls returns every declaration emitted so far, sub-declarations before
// the record that triggered them.
func (m *Mapper) Decls() []*Decl {
	return append([]*Decl(nil), m.decls...)
}

// Emitted reports whether a declaration named name exists.
func (m *Mapper) Emitted(name string) bool { return m.emitted[name] }

// Map resolves ref and maps the schema. The returned Decl is non-nil only
// when this call emitted the record for the first time. A schema that
// reaches itself again without passing through a record, e.g. an array of
// itself, yields CyclicReference.
func (m *Mapper) Map(ref *spec.Ref[spec.Schema]) (TypeRef, *Decl, error) {
	s, err := m.res.Schema(ref)
	if err != nil {
		return TypeRef{}, nil, err
	}
	// records terminate through m.emitted
	if ref.IsRef() && strings.TrimSpace(s.Type) != "object" {
		if m.active[ref.Ref] {
			return TypeRef{}, nil, spec.Errorf(spec.CyclicReference, "schema %s contains itself", ref.Ref)
		}
		m.active[ref.Ref] = true
		defer delete(m.active, ref.Ref)
	}
	return m.MapSchema(s)
}

// MapSchema maps an already resolved schema.
func (m *Mapper) MapSchema(s *spec.Schema) (TypeRef, *Decl, error) {
	typ := strings.TrimSpace(s.Type)
	switch typ {
	case "object":
		return m.record(s)
	case "array":
		if s.Items == nil {
			return SequenceOf(TypeRef{Kind: Text}), nil, nil
		}
		elem, decl, err := m.Map(s.Items)
		if err != nil {
			return TypeRef{}, nil, spec.Prefix(err, "items")
		}
		return SequenceOf(elem), decl, nil
	}
	if k, ok := formats[formatKey{typ, s.Format}]; ok {
		return TypeRef{Kind: k}, nil, nil
	}
	if k, ok := formats[formatKey{typ, ""}]; ok {
		return TypeRef{Kind: k}, nil, nil
	}
	if typ == "" {
		return TypeRef{}, nil, spec.Errorf(spec.UnsupportedSchemaType, "schema %q has no type", s.Title)
	}
	return TypeRef{}, nil, spec.Errorf(spec.UnsupportedSchemaType, "unsupported schema type %q", typ)
}

func (m *Mapper) record(s *spec.Schema) (TypeRef, *Decl, error) {
	name := strings.TrimSpace(s.Title)
	if name == "" {
		return TypeRef{}, nil, spec.Errorf(spec.MissingSchemaTitle, "object schema has no title")
	}
	ref := Named(name)
	if m.emitted[name] {
		return ref, nil, nil
	}
	// mark first so self-referencing records terminate
	m.emitted[name] = true

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	decl := &Decl{Name: name, Description: s.Description}
	for field, fref := range s.Properties.All() {
		ft, sub, err := m.Map(fref)
		if err != nil {
			return TypeRef{}, nil, spec.Prefix(err, fmt.Sprintf("%s.%s", name, field))
		}
		if sub != nil {
			decl.Nested = append(decl.Nested, sub)
		}
		decl.Fields = append(decl.Fields, Field{Name: field, Type: ft, Required: required[field], Description: describe(fref)})
	}
	m.decls = append(m.decls, decl)
	return ref, decl, nil
}

func describe(ref *spec.Ref[spec.Schema]) string {
	if ref == nil || ref.IsRef() || ref.Value == nil {
		return ""
	}
	return ref.Value.Description
}
