package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/mark3labs/oasgen/internal/generator"
	"github.com/mark3labs/oasgen/internal/resolve"
)

// InspectConfig captures the options for the inspect command.
type InspectConfig struct {
	Input       string
	RootDir     string
	RefScope    string
	IncludeTags []string
	ExcludeTags []string
	Out         io.Writer
}

var inspectRunner = runInspect

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump the artifact set built from an OpenAPI document",
		Long: "Load a document, build its artifact set and print it as a Go value dump. " +
			"Nothing is written to disk.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := &InspectConfig{Out: cmd.OutOrStdout()}
			var err error
			if cfg.Input, err = flags.GetString("input"); err != nil {
				return err
			}
			if cfg.RootDir, err = flags.GetString("root-dir"); err != nil {
				return err
			}
			if cfg.RefScope, err = flags.GetString("ref-scope"); err != nil {
				return err
			}
			include, err := flags.GetStringSlice("include-tags")
			if err != nil {
				return err
			}
			exclude, err := flags.GetStringSlice("exclude-tags")
			if err != nil {
				return err
			}
			cfg.IncludeTags, cfg.ExcludeTags = sanitizeTags(include), sanitizeTags(exclude)
			if strings.TrimSpace(cfg.Input) == "" {
				return newUsageError("inspect: --input is required")
			}
			return inspectRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path to the OpenAPI/Swagger document")
	flags.String("root-dir", "", "Base directory for external references")
	flags.String("ref-scope", "", "Scope of references inside external files (root|document)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")

	return cmd
}

func runInspect(ctx context.Context, cfg *InspectConfig) error {
	scope, err := resolve.ParseScope(cfg.RefScope)
	if err != nil {
		return newUsageError(fmt.Sprintf("inspect: %v", err))
	}
	set, err := generator.Build(ctx, generator.Config{
		Input:         strings.TrimSpace(cfg.Input),
		RootDirectory: strings.TrimSpace(cfg.RootDir),
		Scope:         scope,
		IncludeTags:   cfg.IncludeTags,
		ExcludeTags:   cfg.ExcludeTags,
	}, logsFrom(ctx).Logger)
	if err != nil {
		if mapped := specUsageError(err); mapped != nil {
			return mapped
		}
		return err
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	dumper := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	dumper.Fdump(out, set)
	return nil
}
