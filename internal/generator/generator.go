// Package generator runs the generation pipeline: load the document, build
// the artifact set and hand it to a renderer. The first error aborts the run.
package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/oasgen/internal/artifact"
	"github.com/mark3labs/oasgen/internal/emitter/descemitter"
	"github.com/mark3labs/oasgen/internal/emitter/goemitter"
	"github.com/mark3labs/oasgen/internal/naming"
	"github.com/mark3labs/oasgen/internal/resolve"
	"github.com/mark3labs/oasgen/internal/spec"
)

// Output formats accepted by Run.
const (
	FormatGo   = "go"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Config is everything a run needs.
type Config struct {
	Input         string
	RootDirectory string
	Scope         resolve.Scope
	Validate      bool
	IncludeTags   []string
	ExcludeTags   []string

	OutDir  string // derived from the document title when empty
	Format  string
	Package string
	Runtime string
	DryRun  bool
	Force   bool
	Check   bool
}

// Result reports what a run produced.
type Result struct {
	Set     *artifact.Set
	OutDir  string
	Planned []string
	Stale   []string
}

// Build loads cfg.Input and assembles its artifact set without rendering.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*artifact.Set, error) {
	logger = orDiscard(logger)

	var opts []spec.Option
	if cfg.RootDirectory != "" {
		opts = append(opts, spec.WithRootDirectory(cfg.RootDirectory))
	}
	opts = append(opts, spec.WithValidation(cfg.Validate))
	doc, err := spec.Load(ctx, cfg.Input, opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded document",
		slog.String("input", cfg.Input),
		slog.String("title", doc.Info.Title),
		slog.String("root_dir", doc.RootDirectory),
		slog.Int("paths", doc.Paths.Len()),
	)

	refs := resolve.New(doc, resolve.WithScope(cfg.Scope))
	set, err := artifact.Build(ctx, refs,
		artifact.WithIncludeTags(cfg.IncludeTags...),
		artifact.WithExcludeTags(cfg.ExcludeTags...),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("built artifacts",
		slog.String("interface", set.Interface.Name),
		slog.Int("types", len(set.Types)),
		slog.Int("unions", len(set.Unions)),
		slog.Int("routes", len(set.Routes)),
	)
	return set, nil
}

// Run builds the artifact set and renders it in cfg.Format.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*Result, error) {
	logger = orDiscard(logger)
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = FormatGo
	}
	switch format {
	case FormatGo, FormatYAML, FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported format %q (allowed: go, yaml, json)", cfg.Format)
	}

	set, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.OutDir) == "" {
		cfg.OutDir = naming.File(set.Title)
	}
	res := &Result{Set: set, OutDir: cfg.OutDir}
	switch format {
	case FormatGo:
		out, err := goemitter.Emit(ctx, set, goemitter.Options{
			OutDir:  cfg.OutDir,
			Package: cfg.Package,
			Runtime: cfg.Runtime,
			Force:   cfg.Force,
			DryRun:  cfg.DryRun,
			Check:   cfg.Check,
		})
		if out != nil {
			for _, p := range out.Planned {
				res.Planned = append(res.Planned, p.RelPath)
			}
			res.Stale = out.Stale
		}
		if err != nil {
			return res, err
		}
	default:
		if cfg.Check {
			return nil, fmt.Errorf("--check is only supported for the go format")
		}
		out, err := descemitter.Emit(ctx, set, descemitter.Options{
			OutDir: cfg.OutDir,
			Format: descemitter.Format(format),
			Force:  cfg.Force,
			DryRun: cfg.DryRun,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range out.Planned {
			res.Planned = append(res.Planned, p.RelPath)
		}
	}
	logger.Debug("rendered",
		slog.String("format", format),
		slog.String("out", cfg.OutDir),
		slog.Int("files", len(res.Planned)),
		slog.Bool("dry_run", cfg.DryRun),
	)
	return res, nil
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
