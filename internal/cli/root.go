package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the oasgen CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	var logs *logSetup
	cmd := &cobra.Command{
		Use:   "oasgen",
		Short: "Generate Go types, service interfaces and routers from OpenAPI documents",
		Long: "oasgen reads an OpenAPI 3 (or Swagger 2.0) document and generates type declarations, " +
			"a service interface with one method per operation, and a router that binds requests to it.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logs, err = newLogSetup(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(withLogSetup(cmd.Context(), logs))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logs.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file path (YAML or JSON)")
	pf.BoolP("verbose", "v", false, "Enable verbose logging output")
	pf.String("log-format", "text", "Log format on stderr (text|json)")
	pf.String("log-file", "", "Also write JSON logs at debug level to this file")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newInspectCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(flagErr)
		cmd.AddCommand(sub)
	}

	return cmd
}
