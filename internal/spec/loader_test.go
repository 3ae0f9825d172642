package spec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func requireCode(t *testing.T, err error, code ErrorCode) *SpecError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != code {
		t.Fatalf("expected %s, got %s (%v)", code, se.Code, err)
	}
	return se
}

func TestLoad_RejectsRemoteURL(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "https://example.com/spec.yaml")
	requireCode(t, err, InputError)
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	requireCode(t, err, InputError)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	se := requireCode(t, err, InputError)
	if se.Cause == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist cause, got %v", se.Cause)
	}
}

func TestLoad_UnknownVersion(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, t.TempDir(), "odd.yaml", `
openapi: 4.0.0
info: { title: x, version: "1" }
paths: {}
`)
	_, err := Load(context.Background(), path)
	requireCode(t, err, ParseError)
}

func TestLoad_V3_DefaultsRootDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeSpec(t, dir, "api.yaml", `
openapi: 3.0.3
info: { title: Pets, version: "1.0.0" }
paths:
  /b:
    get:
      operationId: b
      responses: { "200": { description: ok } }
  /a:
    get:
      operationId: a
      responses: { "200": { description: ok } }
`)
	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.RootDirectory != dir {
		t.Fatalf("root directory = %q, want %q", doc.RootDirectory, dir)
	}
	if got := strings.Join(doc.Paths.Keys(), ","); got != "/b,/a" {
		t.Fatalf("paths out of order: %s", got)
	}
}

func TestLoad_RootDirectoryOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	other := t.TempDir()
	path := writeSpec(t, dir, "api.yaml", `
openapi: 3.0.0
info: { title: T, version: "1" }
paths: {}
`)
	doc, err := Load(context.Background(), path, WithRootDirectory(other))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.RootDirectory != other {
		t.Fatalf("root directory = %q, want %q", doc.RootDirectory, other)
	}
}

func TestLoad_V3_InvalidSpecWithValidation(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, t.TempDir(), "bad.yaml", `
openapi: 3.0.0
info:
  title: Bad
  version: "1.0.0"
paths:
  "/pet":
    get:
      responses: {}
`)
	ctx := context.Background()
	// without validation the document still decodes
	if _, err := Load(ctx, path); err != nil {
		t.Fatalf("load without validation: %v", err)
	}
	_, err := Load(ctx, path, WithValidation(true))
	se := requireCode(t, err, ValidationError)
	if se.Location != path {
		t.Fatalf("location = %q, want %q", se.Location, path)
	}
}

func TestLoad_V2_Converted(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, t.TempDir(), "swagger.yaml", `
swagger: "2.0"
info: { title: Legacy, version: "1.0.0" }
paths:
  /pets/{id}:
    get:
      operationId: getPet
      produces: [application/json]
      parameters:
        - in: path
          name: id
          required: true
          type: integer
          format: int64
      responses:
        "200":
          description: ok
          schema:
            $ref: '#/definitions/pet'
definitions:
  pet:
    type: object
    properties:
      name: { type: string }
`)
	doc, err := Load(context.Background(), path, WithValidation(true))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		t.Fatalf("expected converted v3 document, got %q", doc.OpenAPI)
	}
	ops := doc.Operations()
	if len(ops) != 1 || ops[0].Operation.OperationID != "getPet" {
		t.Fatalf("unexpected operations: %+v", ops)
	}
	resp, ok := ops[0].Operation.Responses.Get("200")
	if !ok || resp.Value == nil {
		t.Fatalf("missing 200 response")
	}
	media, ok := resp.Value.Content.Get("application/json")
	if !ok || media.Schema == nil || media.Schema.Ref != "#/components/schemas/pet" {
		t.Fatalf("unexpected response content: %+v", media)
	}
	pet, ok := doc.Components.Schemas.Get("pet")
	if !ok || pet.Value == nil || pet.Value.Title != "Pet" {
		t.Fatalf("expected titled pet schema, got %+v", pet)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte("openapi: [3.0.0\n"))
	requireCode(t, err, ParseError)
}
