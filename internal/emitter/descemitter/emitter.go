// Package descemitter writes an artifact set as a single machine-readable
// description file, for tooling that does not consume Go.
package descemitter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasgen/internal/artifact"
	"github.com/mark3labs/oasgen/internal/naming"
)

// Format selects the description encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("unknown description format %q (want yaml or json)", s)
}

// Options controls how the description is written.
type Options struct {
	OutDir string // required; target directory
	Format Format // defaults to YAML
	Force  bool   // overwrite an existing description
	DryRun bool   // don't write, only plan
}

// PlannedFile describes the file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned file.
type Result struct {
	Planned []PlannedFile
}

// Emit encodes set to <title>.artifacts.<format> under opts.OutDir.
func Emit(ctx context.Context, set *artifact.Set, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("descemitter: nil artifact set")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("descemitter: OutDir is required")
	}
	format := opts.Format
	if format == "" {
		format = YAML
	}
	content, err := Encode(set, format)
	if err != nil {
		return nil, err
	}
	rel := naming.File(set.Title) + ".artifacts." + string(format)
	res := &Result{Planned: []PlannedFile{{RelPath: rel, Size: len(content), Mode: 0o644}}}
	if opts.DryRun {
		return res, nil
	}
	if err := writeFile(opts.OutDir, rel, content, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}

// Encode renders set in format.
func Encode(set *artifact.Set, format Format) ([]byte, error) {
	switch format {
	case JSON:
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(set, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return append(out, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(set); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("descemitter: unknown format %q", format)
}

func writeFile(outDir, rel string, content []byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	p := filepath.Join(abs, rel)
	if existing, err := os.ReadFile(p); err == nil && !force && !bytes.Equal(existing, content) {
		return fmt.Errorf("descemitter: %s exists (use --force to overwrite)", p)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	// atomic write via temp file + rename
	tmp := p + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", rel, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}
