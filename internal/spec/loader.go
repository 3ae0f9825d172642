package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	invopopyaml "github.com/invopop/yaml"
	"gopkg.in/yaml.v3"
)

// Settings configures loader behavior.
type Settings struct {
	// RootDirectory overrides the base directory for external references.
	// Defaults to the directory holding the input document.
	RootDirectory string
	// Validate runs a structural validation pass over the document before
	// it is decoded into the object model.
	Validate bool
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{}
}

// Option mutates Settings.
type Option func(*Settings)

func WithRootDirectory(dir string) Option { return func(s *Settings) { s.RootDirectory = dir } }
func WithValidation(on bool) Option       { return func(s *Settings) { s.Validate = on } }

// Load reads a local OpenAPI v3 document and decodes it into a Specification.
// Swagger v2.0 input is converted to v3 first. External references are not
// followed here; the resolver loads them on demand relative to RootDirectory.
func Load(ctx context.Context, input string, opts ...Option) (*Specification, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: remote documents are not supported (%s)", u.Scheme), Location: input}
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}

	root := settings.RootDirectory
	if root == "" {
		root = filepath.Dir(abs)
	} else if root, err = filepath.Abs(root); err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve root directory: %v", err), Location: settings.RootDirectory, Cause: err}
	}

	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
	}

	switch version {
	case 3:
		if settings.Validate {
			if err := validateV3(ctx, abs, root); err != nil {
				return nil, err
			}
		}
	case 2:
		if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
			raw = fixed
		}
		v3doc, err := convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: abs, Cause: err}
		}
		if settings.Validate {
			if err := v3doc.Validate(ctx); err != nil {
				return nil, mapValidateOrParseErr(err, abs)
			}
		}
		if raw, err = json.Marshal(v3doc); err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("encode converted document: %v", err), Location: abs, Cause: err}
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: abs}
	}

	doc, err := Parse(raw)
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) {
			se.Location = abs
		}
		return nil, err
	}
	doc.RootDirectory = root
	return doc, nil
}

// Parse decodes a YAML or JSON document into a Specification. RootDirectory
// is left empty.
func Parse(raw []byte) (*Specification, error) {
	var doc Specification
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse spec: %v", err), Cause: err}
	}
	return &doc, nil
}

// validateV3 runs kin-openapi's loader and validator. External references
// are only read from inside root.
func validateV3(ctx context.Context, abs, root string) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			if rel, err := filepath.Rel(root, path); err != nil || strings.HasPrefix(rel, "..") {
				return nil, fmt.Errorf("blocked ref outside root directory: %s", path)
			}
			return os.ReadFile(path)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	doc, err := loader.LoadFromFile(abs)
	if err != nil {
		return mapValidateOrParseErr(err, abs)
	}
	if err := doc.Validate(ctx); err != nil {
		return mapValidateOrParseErr(err, abs)
	}
	return nil
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	// openapi2.T only carries json tags, so go through JSON.
	js, err := invopopyaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(js, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}
