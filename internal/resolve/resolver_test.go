package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oasgen/internal/spec"
)

const rootDoc = `openapi: 3.0.0
info: { title: Widgets, version: "1" }
paths: {}
components:
  schemas:
    Widget:
      type: object
      title: Widget
      properties:
        name: { type: string }
    Alias:
      $ref: '#/components/schemas/Widget'
    Loop:
      $ref: '#/components/schemas/Loop2'
    Loop2:
      $ref: '#/components/schemas/Loop'
    FromFile:
      $ref: 'schemas/gadget.yaml'
    Shared:
      $ref: 'shared.yaml#/components/schemas/Thing'
    Error:
      type: object
      title: RootError
  responses:
    NotFound:
      description: missing
`

func newResolver(t *testing.T, files map[string]string, opts ...Option) (*Resolver, *int) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	doc, err := spec.Parse([]byte(rootDoc))
	require.NoError(t, err)
	doc.RootDirectory = dir

	reads := new(int)
	opts = append(opts, WithReadFile(func(p string) ([]byte, error) {
		*reads++
		return os.ReadFile(p)
	}))
	return New(doc, opts...), reads
}

func TestParseRef(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		in     string
		want   Reference
		errIs  error
		render string
	}{
		{name: "local", in: "#/components/schemas/Foo", want: Reference{Category: spec.CategorySchema, Name: "Foo"}},
		{name: "with source", in: "common.yaml#/components/responses/Err", want: Reference{Source: "common.yaml", Category: spec.CategoryResponse, Name: "Err"}},
		{name: "nested name", in: "#/components/schemas/a/b", want: Reference{Category: spec.CategorySchema, Name: "a/b"}},
		{name: "external path", in: "schemas/widget.yaml", want: Reference{Path: "schemas/widget.yaml"}},
		{name: "other pointer", in: "#/definitions/Foo", want: Reference{Path: "#/definitions/Foo"}},
		{name: "bad category", in: "#/components/widgets/Foo", errIs: spec.ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestResolve_ConcreteValueUnchanged(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	s := &spec.Schema{Type: "string"}
	got, err := r.Schema(spec.Inline(s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestResolve_Chain(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	got, err := r.Schema(spec.RefTo[spec.Schema]("#/components/schemas/Alias"))
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Title)
}

func TestResolve_Unresolvable(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	_, err := r.Schema(spec.RefTo[spec.Schema]("#/components/schemas/Foo"))
	require.ErrorIs(t, err, spec.ErrUnresolvable)
}

func TestResolve_MismatchedType(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	_, err := r.Schema(spec.RefTo[spec.Schema]("#/components/responses/NotFound"))
	require.ErrorIs(t, err, spec.ErrMismatchedType)

	var se *spec.SpecError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, spec.CategoryResponse, se.Actual)
	assert.Equal(t, spec.CategorySchema, se.Expected)
	assert.Contains(t, se.Error(), "cannot reference a Response as a Schema")
}

func TestResolve_InvalidCategory(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	_, err := r.Response(spec.RefTo[spec.Response]("#/components/gizmos/NotFound"))
	require.ErrorIs(t, err, spec.ErrInvalidCategory)
}

func TestResolve_Cycle(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	_, err := r.Schema(spec.RefTo[spec.Schema]("#/components/schemas/Loop"))
	require.ErrorIs(t, err, spec.ErrCyclicReference)
	assert.Contains(t, err.Error(), "#/components/schemas/Loop -> #/components/schemas/Loop2 -> #/components/schemas/Loop")
}

func TestResolve_ExternalFileReadOnce(t *testing.T) {
	t.Parallel()
	r, reads := newResolver(t, map[string]string{
		"schemas/gadget.yaml": "type: object\ntitle: Gadget\nproperties:\n  size: { type: integer }\n",
	})
	for range 3 {
		got, err := r.Schema(spec.RefTo[spec.Schema]("#/components/schemas/FromFile"))
		require.NoError(t, err)
		assert.Equal(t, "Gadget", got.Title)
	}
	assert.Equal(t, 1, *reads)
}

func TestResolve_ExternalFileMissing(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, nil)
	_, err := r.Schema(spec.RefTo[spec.Schema]("schemas/none.yaml"))
	require.ErrorIs(t, err, spec.ErrFileReadFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve_ExternalFileCycle(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, map[string]string{
		"a.yaml": "$ref: b.yaml\n",
		"b.yaml": "$ref: ./a.yaml\n",
	})
	_, err := r.Schema(spec.RefTo[spec.Schema]("a.yaml"))
	require.ErrorIs(t, err, spec.ErrCyclicReference)
}

func TestResolve_SourceDocument(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, map[string]string{
		"shared.yaml": "components:\n  schemas:\n    Thing: { type: object, title: Thing }\n",
	})
	got, err := r.Schema(spec.RefTo[spec.Schema]("#/components/schemas/Shared"))
	require.NoError(t, err)
	assert.Equal(t, "Thing", got.Title)
}

// An external file referring to "#/components/schemas/Error" while also
// declaring its own Error component.
const externalWithInnerRef = `$ref: '#/components/schemas/Error'
components:
  schemas:
    Error: { type: object, title: FileError }
`

func TestResolve_ExternalScope(t *testing.T) {
	t.Parallel()
	files := map[string]string{"errors/error.yaml": externalWithInnerRef}

	t.Run("root", func(t *testing.T) {
		r, _ := newResolver(t, files)
		got, err := r.Schema(spec.RefTo[spec.Schema]("errors/error.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "RootError", got.Title)
	})
	t.Run("document", func(t *testing.T) {
		r, reads := newResolver(t, files, WithScope(ScopeDocument))
		got, err := r.Schema(spec.RefTo[spec.Schema]("errors/error.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "FileError", got.Title)
		assert.Equal(t, 1, *reads)
	})
}

func TestParseScope(t *testing.T) {
	t.Parallel()
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeRoot, s)
	s, err = ParseScope("Document")
	require.NoError(t, err)
	assert.Equal(t, ScopeDocument, s)
	assert.Equal(t, "document", s.String())
	_, err = ParseScope("galaxy")
	assert.Error(t, err)
}
