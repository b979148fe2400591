package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/gradescan/internal/scan"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Extract subjects and grades from a report card",
	Long: `Scan one report card image or PDF and print the recognized subject rows,
metadata and the suggested country.

Supported formats: JPEG, PNG, GIF, PDF (first page)

Examples:
  gradescan scan zeugnis.jpg
  gradescan scan bulletin.pdf --locale fr-FR --country FR
  gradescan scan rapport.png --backend gemini --format text`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if !slices.Contains([]string{outputFormatJSON, outputFormatText}, format) {
			return fmt.Errorf("invalid output format: %s (must be one of: %s, %s)", format, outputFormatJSON, outputFormatText)
		}
		locale, _ := cmd.Flags().GetString("locale")
		country, _ := cmd.Flags().GetString("country")
		debug, _ := cmd.Flags().GetBool("debug")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		pipeline, err := newPipeline(GetConfig(), nil)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := pipeline.Scan(ctx, scan.Request{
			Image:       data,
			Locale:      locale,
			CountryHint: strings.ToUpper(strings.TrimSpace(country)),
			CallerID:    "cli",
			Progress: func(ev scan.Event) {
				slog.Debug("scan progress", "stage", ev.Stage, "path", ev.Path, "subjects", ev.Subjects)
			},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return errors.New("scan interrupted")
			}
			return fmt.Errorf("scan failed (%s): %w", scan.Outcome(err), err)
		}

		out := cmd.OutOrStdout()
		if format == outputFormatJSON {
			return writeScanJSON(out, res, debug)
		}
		return writeScanText(out, res, debug)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("locale", "", "caller locale, e.g. de-DE (catalog default when empty)")
	scanCmd.Flags().String("country", "", "ISO country hint for grade-token recognition")
	scanCmd.Flags().StringP("backend", "b", "tesseract", "recognition backend: tesseract or gemini")
	scanCmd.Flags().StringP("format", "f", outputFormatJSON, "output format: json or text")
	scanCmd.Flags().Bool("debug", false, "include debug information (attempts, gutter, raw lines)")

	_ = viper.BindPFlag("recognition.backend", scanCmd.Flags().Lookup("backend"))
}

func writeScanJSON(w io.Writer, res *scan.Result, debug bool) error {
	var v any = res
	if !debug {
		// debug_info stays out of the default output
		v = struct {
			*scan.Result
			Debug *scan.Debug `json:"debug_info,omitempty"`
		}{Result: res}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeScanText(w io.Writer, res *scan.Result, debug bool) error {
	md := res.Metadata
	_, _ = fmt.Fprintf(w, "Path: %s  Confidence: %.1f", res.Debug.Path, res.OverallConfidence)
	if res.SuggestedCountryCode != "" {
		_, _ = fmt.Fprintf(w, "  Country: %s", res.SuggestedCountryCode)
	}
	_, _ = fmt.Fprintln(w)
	if md.SchoolName != "" {
		_, _ = fmt.Fprintf(w, "School: %s\n", md.SchoolName)
	}
	if md.StudentName != "" {
		_, _ = fmt.Fprintf(w, "Student: %s\n", md.StudentName)
	}
	if md.SchoolYear != "" || md.ClassLevel > 0 || md.TermType != "" {
		_, _ = fmt.Fprintf(w, "Year: %s  Class: %d  Term: %s\n", md.SchoolYear, md.ClassLevel, md.TermType)
	}
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SUBJECT\tGRADE\tMATCH\tCONFIDENCE")
	for _, row := range res.Subjects {
		match := row.MatchedSubjectName
		if match == "" {
			match = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.OriginalName, row.Grade, match, row.Confidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if debug {
		_, _ = fmt.Fprintf(w, "\nAttempts:\n")
		for _, a := range res.Debug.Attempts {
			status := "rejected"
			if a.Accepted {
				status = "accepted"
			}
			if a.Error != "" {
				status = "failed: " + a.Error
			}
			_, _ = fmt.Fprintf(w, "  %-14s %2d subjects  %s\n", a.Path, a.Subjects, status)
		}
		for _, row := range res.Debug.DroppedNoise {
			_, _ = fmt.Fprintf(w, "Dropped noise: %q\n", row.OriginalName)
		}
	}
	return nil
}
