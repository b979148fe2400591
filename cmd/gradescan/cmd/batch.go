package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/gradescan/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-dir>...",
	Short: "Scan many report cards at once",
	Long: `Scan every report card under the given files and directories with a pool
of workers. Directories are searched for JPEG, PNG, GIF and PDF files unless
--include is given. Failed files are reported per item; the command fails only
when every file failed.

Examples:
  gradescan batch ./zeugnisse
  gradescan batch ./scans --recursive --workers 4 --format csv --output grades.csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case batch.FormatJSON, batch.FormatCSV, batch.FormatText:
		default:
			return fmt.Errorf("invalid output format: %s (must be one of: json, csv, text)", format)
		}
		workers, _ := cmd.Flags().GetInt("workers")
		recursive, _ := cmd.Flags().GetBool("recursive")
		include, _ := cmd.Flags().GetStringSlice("include")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		locale, _ := cmd.Flags().GetString("locale")
		country, _ := cmd.Flags().GetString("country")
		output, _ := cmd.Flags().GetString("output")

		cfg := GetConfig()
		pipeline, err := newPipeline(cfg, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := batch.Run(ctx, pipeline, args, batch.Config{
			Workers:         workers,
			Recursive:       recursive,
			IncludePatterns: include,
			ExcludePatterns: exclude,
			Locale:          locale,
			CountryHint:     strings.ToUpper(strings.TrimSpace(country)),
			CallerID:        "cli",
			MaxBytes:        cfg.ToScanConfig().Preprocess.MaxBytes,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output) //nolint:gosec // path comes from the --output flag
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		if err := res.Write(out, format); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}

		if res.Failed() == len(res.Items) {
			return errors.New("no report card could be scanned")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel scans (0 = number of CPUs)")
	batchCmd.Flags().BoolP("recursive", "r", false, "search directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "file name patterns to include, e.g. *.png")
	batchCmd.Flags().StringSlice("exclude", nil, "file name patterns to exclude")
	batchCmd.Flags().String("locale", "", "caller locale, e.g. de-DE (catalog default when empty)")
	batchCmd.Flags().String("country", "", "ISO country hint for grade-token recognition")
	batchCmd.Flags().StringP("format", "f", batch.FormatJSON, "output format: json, csv or text")
	batchCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
}
