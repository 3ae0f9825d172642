// Package goemitter renders an artifact set as Go source: the type
// declarations, the service interface and a router built on pkg/oasrt.
package goemitter

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/mark3labs/oasgen/internal/artifact"
	"github.com/mark3labs/oasgen/internal/naming"
)

// DefaultRuntime is the import path of the runtime package generated routers
// depend on.
const DefaultRuntime = "github.com/mark3labs/oasgen/pkg/oasrt"

// generatedMarker starts every emitted file. Existing files carrying it may
// be overwritten without Force.
const generatedMarker = "// Code generated by oasgen. DO NOT EDIT."

//go:embed templates/*.tmpl
var tmplFS embed.FS

var tmpl = template.Must(template.ParseFS(tmplFS, "templates/*.tmpl"))

// ErrStale is returned in check mode when a file on disk differs from what
// would be generated.
var ErrStale = errors.New("generated files are out of date")

// Options controls how the Go emitter renders a set.
type Options struct {
	OutDir  string // required; target package directory
	Package string // package clause; defaults to the base name of OutDir
	Runtime string // runtime import path; defaults to DefaultRuntime
	Force   bool   // overwrite existing files that were not generated
	DryRun  bool   // don't write, only plan
	Check   bool   // don't write, compare against disk
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and, in check mode, the stale ones.
type Result struct {
	Package string
	Planned []PlannedFile
	Stale   []string
}

// Emit renders set into three files under opts.OutDir.
func Emit(ctx context.Context, set *artifact.Set, opts Options) (*Result, error) {
	if set == nil {
		return nil, fmt.Errorf("goemitter: nil artifact set")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	pkg := strings.TrimSpace(opts.Package)
	if pkg == "" {
		pkg = packageName(opts.OutDir)
	}
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("goemitter: invalid package name %q", pkg)
	}
	runtime := strings.TrimSpace(opts.Runtime)
	if runtime == "" {
		runtime = DefaultRuntime
	}

	files := map[string][]byte{}
	render := []struct {
		name string
		file string
		data any
	}{
		{"types.go.tmpl", "types.gen.go", buildTypes(pkg, set)},
		{"service.go.tmpl", "service.gen.go", buildService(pkg, set)},
		{"router.go.tmpl", "router.gen.go", buildRouter(pkg, runtime, set)},
	}
	for _, r := range render {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := execute(r.name, r.data)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.file, err)
		}
		files[r.file] = src
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	res := &Result{Package: pkg}
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	switch {
	case opts.Check:
		stale, err := staleFiles(opts.OutDir, files, rels)
		if err != nil {
			return nil, err
		}
		res.Stale = stale
		if len(stale) > 0 {
			return res, fmt.Errorf("%w: %s", ErrStale, strings.Join(stale, ", "))
		}
	case !opts.DryRun:
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format: %w\n%s", err, buf.String())
	}
	return src, nil
}

func packageName(outDir string) string {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		abs = outDir
	}
	name := strings.ToLower(strings.ReplaceAll(naming.Snake(filepath.Base(abs)), "_", ""))
	if name == "" || !token.IsIdentifier(name) || token.IsKeyword(name) {
		return "api"
	}
	return name
}

func staleFiles(outDir string, files map[string][]byte, rels []string) ([]string, error) {
	var stale []string
	for _, rel := range rels {
		have, err := os.ReadFile(filepath.Join(outDir, rel))
		if errors.Is(err, os.ErrNotExist) {
			stale = append(stale, rel)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		if !bytes.Equal(have, files[rel]) {
			stale = append(stale, rel)
		}
	}
	return stale, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: refuse to replace hand-written files unless forced.
	if !force {
		for rel := range files {
			existing, err := os.ReadFile(filepath.Join(abs, rel))
			if err == nil && !bytes.HasPrefix(existing, []byte(generatedMarker)) {
				return fmt.Errorf("goemitter: %s exists and was not generated (use --force to overwrite)", filepath.Join(abs, rel))
			}
		}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
