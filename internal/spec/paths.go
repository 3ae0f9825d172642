package spec

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathItem keeps its operations in the order the document declares them.
type PathItem struct {
	Summary     string
	Description string
	Parameters  []*Ref[Parameter]
	Operations  []MethodOperation
}

// MethodOperation pairs an HTTP method with its operation.
type MethodOperation struct {
	Method    HttpMethod
	Operation *Operation
}

// Operation returns the operation for m, or nil.
func (p *PathItem) Operation(m HttpMethod) *Operation {
	if p == nil {
		return nil
	}
	for _, mo := range p.Operations {
		if mo.Method == m {
			return mo.Operation
		}
	}
	return nil
}

func (p *PathItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: path item must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "summary":
			p.Summary = val.Value
		case "description":
			p.Description = val.Value
		case "parameters":
			if err := val.Decode(&p.Parameters); err != nil {
				return fmt.Errorf("parameters: %w", err)
			}
		default:
			if !isMethod(key) {
				// servers, $ref and extensions are not used by the generator
				continue
			}
			op := new(Operation)
			if err := val.Decode(op); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			p.Operations = append(p.Operations, MethodOperation{Method: HttpMethod(strings.ToLower(key)), Operation: op})
		}
	}
	return nil
}

func isMethod(key string) bool {
	for _, m := range Methods {
		if string(m) == strings.ToLower(key) {
			return true
		}
	}
	return false
}

// Callback maps runtime expressions to the path items they trigger.
type Callback struct {
	Expressions Map[*PathItem]
}

func (c *Callback) UnmarshalYAML(node *yaml.Node) error {
	return node.Decode(&c.Expressions)
}

// OperationEntry is an operation with its location in the document.
type OperationEntry struct {
	Path      string
	Method    HttpMethod
	Item      *PathItem
	Operation *Operation
}

// Pointer returns the JSON pointer of the operation, e.g. "#/paths/~1pets/get".
func (e OperationEntry) Pointer() string {
	return Pointer("paths", e.Path, string(e.Method))
}

// Operations lists every operation in path then method declaration order.
func (s *Specification) Operations() []OperationEntry {
	var out []OperationEntry
	for path, item := range s.Paths.All() {
		if item == nil {
			continue
		}
		for _, mo := range item.Operations {
			if mo.Operation == nil {
				continue
			}
			out = append(out, OperationEntry{Path: path, Method: mo.Method, Item: item, Operation: mo.Operation})
		}
	}
	return out
}

// ParameterSource is a declared parameter and the JSON pointer it was
// declared at.
type ParameterSource struct {
	Ref     *Ref[Parameter]
	Pointer string
}

// Parameters returns path-level parameters followed by operation-level
// ones, unmerged. A $ref parameter's (in, name) is unknown until it is
// resolved, so callers merge after resolution: an operation parameter
// replaces a path parameter with the same (in, name).
func (e OperationEntry) Parameters() []ParameterSource {
	var out []ParameterSource
	if e.Item != nil {
		for i, p := range e.Item.Parameters {
			if p != nil {
				out = append(out, ParameterSource{Ref: p, Pointer: Pointer("paths", e.Path, "parameters", strconv.Itoa(i))})
			}
		}
	}
	for i, p := range e.Operation.Parameters {
		if p != nil {
			out = append(out, ParameterSource{Ref: p, Pointer: Pointer("paths", e.Path, string(e.Method), "parameters", strconv.Itoa(i))})
		}
	}
	return out
}

// Pointer joins segments into a JSON pointer, escaping "~" and "/".
func Pointer(segments ...string) string {
	var b strings.Builder
	b.WriteString("#")
	for _, s := range segments {
		b.WriteString("/")
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		b.WriteString(s)
	}
	return b.String()
}
