// Package cmd implements CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/otusdpi/internal/config"
	"firestige.xyz/otusdpi/plugins"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without capturing anything.

Environment overrides (OTUS_DPI_*) are applied the same way as at runtime.

Examples:
  otus-dpi validate -f config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command) error {
	checked, err := config.Load(validateConfigFile)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	var enabled []string
	for _, b := range plugins.Builtins {
		opts, err := checked.Engine.DissectorOptions(b.Name)
		if err != nil {
			return fmt.Errorf("INVALID: %w", err)
		}
		if opts.Enabled {
			enabled = append(enabled, b.Name)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "VALID: %s: %d shard(s), max %d flow(s), idle timeout %s, dissectors %v\n",
		validateConfigFile,
		checked.Engine.Shards,
		checked.Engine.MaxFlows,
		checked.Engine.IdleTimeoutDuration(),
		enabled,
	)
	return nil
}
