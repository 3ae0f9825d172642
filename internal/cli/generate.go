package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oasgen/internal/emitter/goemitter"
	"github.com/mark3labs/oasgen/internal/generator"
	"github.com/mark3labs/oasgen/internal/resolve"
	genspec "github.com/mark3labs/oasgen/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	Package     string
	Format      string
	Runtime     string
	RootDir     string
	RefScope    string
	Validate    bool
	IncludeTags []string
	ExcludeTags []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Check       bool
	Verbose     bool

	// Stdout receives the plan and summary lines.
	Stdout io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Format: generator.FormatGo, RefScope: resolve.ScopeRoot.String()}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate types, a service interface and a router from an OpenAPI document",
		Long: "Generate types, a service interface and a router from an OpenAPI/Swagger document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  oasgen generate --input api.yaml --out ./internal/api
  oasgen generate --input api.yaml --format yaml --out ./docs
  oasgen --config oasgen.yaml generate --check`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Stdout = cmd.OutOrStdout()
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path to the OpenAPI/Swagger document")
	flags.String("out", "", "Output directory (derived from the document title when omitted)")
	flags.String("package", "", "Go package name; defaults to the output directory name")
	flags.String("format", "", "Output format (go|yaml|json); defaults to go")
	flags.String("runtime", "", "Import path of the runtime package used by generated routers")
	flags.String("root-dir", "", "Base directory for external references; defaults to the document's directory")
	flags.String("ref-scope", "", "Scope of references inside external files (root|document); defaults to root")
	flags.Bool("validate", false, "Run structural validation before generating")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing files that were not generated")
	flags.Bool("check", false, "Fail when generated files on disk are out of date")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":     &cfg.Input,
		"out":       &cfg.Out,
		"package":   &cfg.Package,
		"format":    &cfg.Format,
		"runtime":   &cfg.Runtime,
		"root-dir":  &cfg.RootDir,
		"ref-scope": &cfg.RefScope,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	bools := map[string]*bool{
		"validate": &cfg.Validate,
		"dry-run":  &cfg.DryRun,
		"force":    &cfg.Force,
		"check":    &cfg.Check,
		"verbose":  &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeTags(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeTags(value)
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.Package = strings.TrimSpace(c.Package)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Runtime = strings.TrimSpace(c.Runtime)
	c.RootDir = strings.TrimSpace(c.RootDir)
	c.RefScope = strings.ToLower(strings.TrimSpace(c.RefScope))
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	switch c.Format {
	case "", generator.FormatGo, generator.FormatYAML, generator.FormatJSON:
		if c.Format == "" {
			c.Format = generator.FormatGo
		}
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --format %q (allowed: go, yaml, json)", c.Format))
	}

	if _, err := resolve.ParseScope(c.RefScope); err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}

	if c.Check && c.Format != generator.FormatGo {
		return newUsageError("generate: --check is only supported with --format go")
	}
	if c.Check && c.DryRun {
		return newUsageError("generate: --check and --dry-run are mutually exclusive")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func (c *GenerateConfig) pipelineConfig() generator.Config {
	scope, _ := resolve.ParseScope(c.RefScope)
	return generator.Config{
		Input:         c.Input,
		RootDirectory: c.RootDir,
		Scope:         scope,
		Validate:      c.Validate,
		IncludeTags:   c.IncludeTags,
		ExcludeTags:   c.ExcludeTags,
		OutDir:        c.Out,
		Format:        c.Format,
		Package:       c.Package,
		Runtime:       c.Runtime,
		DryRun:        c.DryRun,
		Force:         c.Force,
		Check:         c.Check,
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logs := logsFrom(ctx)
	if cfg.Verbose {
		logs.Level.Set(slog.LevelDebug)
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	res, err := generator.Run(ctx, cfg.pipelineConfig(), logs.Logger)
	if err != nil {
		if errors.Is(err, goemitter.ErrStale) && res != nil {
			return newUsageError(fmt.Sprintf("generate: %s is out of date: %s\nHint: rerun without --check.", absPath(res.OutDir), strings.Join(res.Stale, ", ")))
		}
		if mapped := specUsageError(err); mapped != nil {
			return mapped
		}
		out := cfg.Out
		if res != nil {
			out = res.OutDir
		}
		return wrapOutputError(err, absPath(out))
	}

	switch {
	case cfg.DryRun:
		printPlan(stdout, absPath(res.OutDir), res.Planned)
	case cfg.Check:
		fmt.Fprintf(stdout, "%s is up to date (%d files)\n", absPath(res.OutDir), len(res.Planned))
	default:
		fmt.Fprintf(stdout, "Wrote %d files to %s\n", len(res.Planned), absPath(res.OutDir))
	}
	return nil
}

// specUsageError maps structured document errors into friendly messages.
func specUsageError(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return nil
	}
	msg := fmt.Sprintf("spec: %s [%s]", se.Message, se.Code)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

func absPath(p string) string {
	if ap, err := filepath.Abs(p); err == nil {
		return ap
	}
	return p
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "not generated") || strings.Contains(lower, "exists") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":    &cfg.Input,
		"out":      &cfg.Out,
		"package":  &cfg.Package,
		"format":   &cfg.Format,
		"runtime":  &cfg.Runtime,
		"rootdir":  &cfg.RootDir,
		"refscope": &cfg.RefScope,
	}
	bools := map[string]*bool{
		"validate": &cfg.Validate,
		"dryrun":   &cfg.DryRun,
		"force":    &cfg.Force,
		"check":    &cfg.Check,
		"verbose":  &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		switch normalized {
		case "includetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.IncludeTags = sanitizeTags(list)
		case "excludetags":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.ExcludeTags = sanitizeTags(list)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
