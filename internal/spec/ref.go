package spec

import (
	"gopkg.in/yaml.v3"
)

// Ref holds either a `$ref` string or a concrete value of T.
type Ref[T any] struct {
	Ref   string
	Value *T
}

// Inline wraps a concrete value.
func Inline[T any](v *T) *Ref[T] { return &Ref[T]{Value: v} }

// RefTo builds a reference.
func RefTo[T any](ref string) *Ref[T] { return &Ref[T]{Ref: ref} }

// IsRef reports whether r points elsewhere.
func (r *Ref[T]) IsRef() bool { return r != nil && r.Ref != "" }

func (r *Ref[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "$ref" {
				r.Ref = node.Content[i+1].Value
				return nil
			}
		}
	}
	v := new(T)
	if err := node.Decode(v); err != nil {
		return err
	}
	r.Value = v
	return nil
}

// Category is a components section a reference may point into.
type Category int

const (
	CategorySchema Category = iota + 1
	CategoryResponse
	CategoryParameter
	CategoryExample
	CategoryRequestBody
	CategoryHeader
	CategorySecurityScheme
	CategoryLink
	CategoryCallback
)

var categoryKeys = map[Category]string{
	CategorySchema:         "schemas",
	CategoryResponse:       "responses",
	CategoryParameter:      "parameters",
	CategoryExample:        "examples",
	CategoryRequestBody:    "requestBodies",
	CategoryHeader:         "headers",
	CategorySecurityScheme: "securitySchemes",
	CategoryLink:           "links",
	CategoryCallback:       "callbacks",
}

var categoryKinds = map[Category]string{
	CategorySchema:         "Schema",
	CategoryResponse:       "Response",
	CategoryParameter:      "Parameter",
	CategoryExample:        "Example",
	CategoryRequestBody:    "RequestBody",
	CategoryHeader:         "Header",
	CategorySecurityScheme: "SecurityScheme",
	CategoryLink:           "Link",
	CategoryCallback:       "Callback",
}

// ParseCategory maps a components key such as "requestBodies" to a Category.
func ParseCategory(key string) (Category, bool) {
	for c, k := range categoryKeys {
		if k == key {
			return c, true
		}
	}
	return 0, false
}

// Key returns the components key, e.g. "schemas".
func (c Category) Key() string { return categoryKeys[c] }

// String returns the component kind, e.g. "Schema".
func (c Category) String() string {
	if s, ok := categoryKinds[c]; ok {
		return s
	}
	return "Unknown"
}
