// Package shape computes, per operation, how request values are bound and
// what the operation returns.
package shape

import (
	"github.com/mark3labs/oasgen/internal/typemap"
)

// BindingKind says how a parameter value is extracted from a request.
type BindingKind string

const (
	// PathBinding reads a named path segment.
	PathBinding BindingKind = "path"
	// QueryValueBinding reads one query value by the parameter's name.
	QueryValueBinding BindingKind = "query-value"
	// QueryStructBinding decodes the whole query string into a record named
	// after the parameter schema's title.
	QueryStructBinding BindingKind = "query-struct"
	// HeaderBinding reads a request header by name.
	HeaderBinding BindingKind = "header"
	// CookieBinding reads a cookie by name.
	CookieBinding BindingKind = "cookie"
)

// ParamBinding is one step of a parameter-binding plan.
type ParamBinding struct {
	Name        string          `json:"name" yaml:"name"`
	Var         string          `json:"var" yaml:"var"`
	Location    string          `json:"in" yaml:"in"`
	Kind        BindingKind     `json:"binding" yaml:"binding"`
	Type        typemap.TypeRef `json:"type" yaml:"type"`
	Required    bool            `json:"required" yaml:"required"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Candidate is one media type the body may be parsed as.
type Candidate struct {
	MediaType string          `json:"mediaType" yaml:"mediaType"`
	Type      typemap.TypeRef `json:"type" yaml:"type"`
}

// BodyGroup holds the candidates that produce the same result type, in
// declaration order. At request time the first candidate whose content type
// matches and whose payload decodes wins.
type BodyGroup struct {
	Type       typemap.TypeRef `json:"type" yaml:"type"`
	Candidates []Candidate     `json:"candidates" yaml:"candidates"`
}

// BodyPlan binds the request body to a single variable. With several groups
// Type is a union and groups are tried in order.
type BodyPlan struct {
	Var      string          `json:"var" yaml:"var"`
	Type     typemap.TypeRef `json:"type" yaml:"type"`
	Required bool            `json:"required" yaml:"required"`
	Groups   []BodyGroup     `json:"groups" yaml:"groups"`
}

// MediaTypes lists every candidate media type across groups.
func (b *BodyPlan) MediaTypes() []string {
	var out []string
	for _, g := range b.Groups {
		for _, c := range g.Candidates {
			out = append(out, c.MediaType)
		}
	}
	return out
}

// ResultKind classifies a ResultShape.
type ResultKind string

const (
	NoValue ResultKind = "none"
	Single  ResultKind = "single"
	// Sum is a single status code with several distinct result types.
	Sum ResultKind = "sum"
	// Tagged is one variant per status code.
	Tagged ResultKind = "tagged"
)

// Variant is one status code of a tagged result.
type Variant struct {
	Name string           `json:"name" yaml:"name"`
	Code string           `json:"code" yaml:"code"`
	Type *typemap.TypeRef `json:"type,omitempty" yaml:"type,omitempty"`
}

// ResultShape is the inferred return type of an operation. Type is nil for
// NoValue; for Sum and Tagged it refers to the synthesized union.
type ResultShape struct {
	Kind     ResultKind       `json:"kind" yaml:"kind"`
	Type     *typemap.TypeRef `json:"type,omitempty" yaml:"type,omitempty"`
	Variants []Variant        `json:"variants,omitempty" yaml:"variants,omitempty"`
}

// UnionKind distinguishes unlabeled sums from status-code tagged unions.
type UnionKind string

const (
	SumUnion    UnionKind = "sum"
	TaggedUnion UnionKind = "tagged"
)

// Union is a type synthesized for an operation rather than declared in the
// document.
type Union struct {
	Name     string            `json:"name" yaml:"name"`
	Kind     UnionKind         `json:"kind" yaml:"kind"`
	Cases    []typemap.TypeRef `json:"cases,omitempty" yaml:"cases,omitempty"`
	Variants []Variant         `json:"variants,omitempty" yaml:"variants,omitempty"`
}

// Ref returns a type reference to u.
func (u Union) Ref() typemap.TypeRef { return typemap.TypeRef{Kind: typemap.Union, Name: u.Name} }

// Shapes is everything inferred for one operation.
type Shapes struct {
	Params []ParamBinding
	Body   *BodyPlan
	Result ResultShape
	// Unions are synthesized by this operation: the body union first, then
	// per-code sums, then the tagged result union.
	Unions []Union
}
