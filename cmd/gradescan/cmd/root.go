package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gradescan/internal/config"
	"github.com/MeKo-Tech/gradescan/internal/version"
)

// skipValidation marks commands that must run on an invalid configuration.
const skipValidation = "gradescan/skip-validation"

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration, loaded in PersistentPreRunE.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gradescan",
	Short: "Report-card scanning and grade bonus calculation",
	Long: `gradescan reads photographed or scanned school report cards and turns them into
reviewed subject/grade rows, and computes the bonus a family pays for a report.

It provides:
- Two-column aware recognition of report cards (images and PDFs)
- Fuzzy matching of subject names against a configurable catalog
- Country and school-type detection
- A deterministic bonus calculator with per-user and per-child factors
- Both CLI and server modes

Examples:
  gradescan scan zeugnis.jpg
  gradescan scan report.pdf --format text --country FR
  gradescan bonus report.yaml
  gradescan serve --port 8080`,
	Version:       version.Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Annotations[skipValidation] == "true")
		if err != nil {
			return err
		}
		globalConfig = cfg
		setupLogging(cmd.ErrOrStderr(), cfg)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.SetVersionTemplate(version.String() + "\n")

	// Global flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is gradescan.yaml in ., $HOME, $XDG_CONFIG_HOME/gradescan, /etc/gradescan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("catalog", "", "subject catalog YAML (built-in catalog when empty)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
}

// loadConfig reads config file, environment and bound flags.
func loadConfig(skipValidate bool) (*config.Config, error) {
	configLoader = config.NewLoader()

	var (
		cfg *config.Config
		err error
	)
	if skipValidate {
		cfg, err = configLoader.LoadWithoutValidation(cfgFile)
	} else {
		cfg, err = configLoader.LoadWithFile(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging installs a JSON slog handler on stderr so stdout stays machine readable.
func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level

	// Check verbose flag first for backward compatibility
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

// GetConfig returns the configuration of the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}
