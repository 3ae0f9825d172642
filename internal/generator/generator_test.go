package generator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oasgen/internal/emitter/goemitter"
	"github.com/mark3labs/oasgen/internal/spec"
)

const petstore = `openapi: 3.0.3
info:
  title: Pet Store
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      tags: [pets]
      parameters:
        - name: limit
          in: query
          schema: {type: integer}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: {$ref: "#/components/schemas/Pet"}
    post:
      operationId: createPet
      tags: [admin]
      requestBody:
        required: true
        content:
          application/json:
            schema: {$ref: "#/components/schemas/Pet"}
      responses:
        "201":
          description: created
components:
  schemas:
    Pet:
      title: Pet
      type: object
      required: [name]
      properties:
        name: {type: string}
`

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestRun_Go(t *testing.T) {
	out := filepath.Join(t.TempDir(), "petapi")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := Run(context.Background(), Config{Input: writeSpec(t, petstore), OutDir: out}, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"router.gen.go", "service.gen.go", "types.gen.go"}, res.Planned)
	assert.Equal(t, "PetStore", res.Set.Interface.Name)

	service, err := os.ReadFile(filepath.Join(out, "service.gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(service), "package petapi")
	assert.Contains(t, string(service), "ListPets(ctx context.Context, limit *int64) ([]Pet, error)")
	assert.Contains(t, string(service), "CreatePet(ctx context.Context, pet Pet) error")

	assert.Contains(t, logs.String(), "loaded document")
	assert.Contains(t, logs.String(), "built artifacts")
	assert.Contains(t, logs.String(), "rendered")
}

func TestRun_Check(t *testing.T) {
	input := writeSpec(t, petstore)
	out := t.TempDir()

	_, err := Run(context.Background(), Config{Input: input, OutDir: out, Check: true}, nil)
	require.ErrorIs(t, err, goemitter.ErrStale)

	_, err = Run(context.Background(), Config{Input: input, OutDir: out}, nil)
	require.NoError(t, err)

	res, err := Run(context.Background(), Config{Input: input, OutDir: out, Check: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Stale)
}

func TestRun_Description(t *testing.T) {
	out := t.TempDir()
	res, err := Run(context.Background(), Config{Input: writeSpec(t, petstore), OutDir: out, Format: "json"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pet_store.artifacts.json"}, res.Planned)
	assert.FileExists(t, filepath.Join(out, "pet_store.artifacts.json"))

	_, err = Run(context.Background(), Config{Input: writeSpec(t, petstore), OutDir: out, Format: "yaml", Check: true}, nil)
	assert.Error(t, err)
}

func TestRun_TagFilters(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Input:       writeSpec(t, petstore),
		OutDir:      t.TempDir(),
		ExcludeTags: []string{"admin"},
		DryRun:      true,
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Set.Interface.Methods, 1)
	assert.Equal(t, "ListPets", res.Set.Interface.Methods[0].Name)
}

func TestRun_UnknownFormat(t *testing.T) {
	_, err := Run(context.Background(), Config{Input: writeSpec(t, petstore), OutDir: t.TempDir(), Format: "rust"}, nil)
	assert.ErrorContains(t, err, "unsupported format")
}

func TestRun_StopsAtFirstError(t *testing.T) {
	input := writeSpec(t, `openapi: 3.0.3
info: {title: Broken, version: "1"}
paths:
  /a:
    get:
      responses:
        "200": {description: ok}
`)
	out := t.TempDir()
	_, err := Run(context.Background(), Config{Input: input, OutDir: out}, nil)
	require.ErrorIs(t, err, spec.ErrMissingOperationID)

	var se *spec.SpecError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "#/paths/~1a/get", se.JSONPointer)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
