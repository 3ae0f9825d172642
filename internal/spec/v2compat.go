package spec

import (
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// preprocessV2ForCompatibility rewrites a Swagger v2 document so that the
// converted v3 document can be typed:
//   - definitions without a title get their definition name as title, since
//     object schemas need a title to become a named record;
//   - operations with several body parameters (invalid v2) get a single body
//     parameter whose titled object schema has one property per original
//     parameter.
//
// It returns possibly-modified bytes and whether anything changed. On error
// the original bytes are returned with modified=false.
func preprocessV2ForCompatibility(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	modified := titleDefinitions(doc)

	paths, _ := doc["paths"].(map[string]any)
	for _, pim := range paths {
		pi, ok := pim.(map[string]any)
		if !ok {
			continue
		}
		for method, opm := range pi {
			if !isMethod(method) {
				continue
			}
			op, ok := opm.(map[string]any)
			if !ok {
				continue
			}
			if mergeBodyParams(op) {
				modified = true
			}
		}
	}

	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func titleDefinitions(doc map[string]any) bool {
	defs, _ := doc["definitions"].(map[string]any)
	changed := false
	for name, d := range defs {
		def, ok := d.(map[string]any)
		if !ok || def["$ref"] != nil {
			continue
		}
		if t, _ := def["title"].(string); strings.TrimSpace(t) != "" {
			continue
		}
		def["title"] = strcase.ToCamel(name)
		changed = true
	}
	return changed
}

func mergeBodyParams(op map[string]any) bool {
	params, _ := op["parameters"].([]any)
	bodies := 0
	for _, p := range params {
		if pm, _ := p.(map[string]any); pm != nil && strings.EqualFold(asString(pm["in"]), "body") {
			bodies++
		}
	}
	if bodies < 2 {
		return false
	}

	props := map[string]any{}
	var required []any
	rest := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		if pm == nil || !strings.EqualFold(asString(pm["in"]), "body") {
			rest = append(rest, p)
			continue
		}
		name := asString(pm["name"])
		if name == "" {
			name = "field"
		}
		schema, _ := pm["schema"].(map[string]any)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if req, _ := pm["required"].(bool); req {
			required = append(required, name)
		}
	}

	title := "Body"
	if id := asString(op["operationId"]); id != "" {
		title = strcase.ToCamel(id) + "Body"
	}
	schema := map[string]any{"type": "object", "title": title, "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	merged := map[string]any{"in": "body", "name": "body", "required": len(required) > 0, "schema": schema}
	op["parameters"] = append([]any{merged}, rest...)
	return true
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
