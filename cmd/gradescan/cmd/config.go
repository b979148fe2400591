package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/gradescan/internal/config"
)

const redacted = "<redacted>"

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect or create configuration files",
	Annotations: map[string]string{skipValidation: "true"},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with all defaults",
	Long: `Write a configuration file holding every key with its default value.
The file defaults to ./gradescan.yaml; existing files are never overwritten.`,
	Args:         cobra.MaximumNArgs(1),
	Annotations:  map[string]string{skipValidation: "true"},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.GenerateDefaultConfigFile(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Print the effective configuration",
	Annotations:  map[string]string{skipValidation: "true"},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if cfg.Recognition.GeminiAPIKey != "" {
			cfg.Recognition.GeminiAPIKey = redacted
		}
		if cfg.Store.DSN != "" {
			cfg.Store.DSN = redacted
		}

		out := cmd.OutOrStdout()
		if configLoader != nil {
			if used := configLoader.GetConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(out, "# loaded from %s\n", used)
			}
		}
		if err := config.WriteYAML(out, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
