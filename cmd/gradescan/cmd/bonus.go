package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
)

// bonusCmd represents the bonus command.
var bonusCmd = &cobra.Command{
	Use:   "bonus <input.yaml|input.json>",
	Short: "Calculate the bonus for reviewed grades",
	Long: `Calculate the bonus for a report from a YAML or JSON file holding the grading
system, the factor table, the scope (user and child) and the reviewed subjects.

With --subject the file holds a single "subject" instead of "subjects" and the
term factor is not applied.

Examples:
  gradescan bonus report.yaml
  gradescan bonus report.json --format text
  gradescan bonus maths.yaml --subject`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if !slices.Contains([]string{outputFormatJSON, outputFormatText}, format) {
			return fmt.Errorf("invalid output format: %s (must be one of: %s, %s)", format, outputFormatJSON, outputFormatText)
		}
		single, _ := cmd.Flags().GetBool("subject")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if single {
			var in bonus.SingleInput
			if err := decodeInput(args[0], data, &in); err != nil {
				return err
			}
			if err := in.Factors.Validate(); err != nil {
				return err
			}
			res, err := bonus.CalculateSingle(in)
			if err != nil {
				return err
			}
			if format == outputFormatJSON {
				return writeJSON(out, res)
			}
			return writeBonusText(out, &bonus.Result{Total: res.Bonus, Breakdown: []bonus.SubjectResult{*res}})
		}

		var in bonus.Input
		if err := decodeInput(args[0], data, &in); err != nil {
			return err
		}
		if err := in.Factors.Validate(); err != nil {
			return err
		}
		res, err := bonus.Calculate(in)
		if err != nil {
			return err
		}
		if format == outputFormatJSON {
			return writeJSON(out, res)
		}
		return writeBonusText(out, res)
	},
}

func init() {
	rootCmd.AddCommand(bonusCmd)
	bonusCmd.Flags().StringP("format", "f", outputFormatJSON, "output format: json or text")
	bonusCmd.Flags().Bool("subject", false, "calculate a single subject without the term factor")
}

// decodeInput picks JSON for .json files and YAML otherwise.
func decodeInput(path string, data []byte, v any) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeBonusText(w io.Writer, res *bonus.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SUBJECT\tGRADE\tNORMALIZED\tTIER\tWEIGHT\tBONUS")
	for _, s := range res.Breakdown {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%.2f\t%.2f\n",
			s.SubjectName, s.RawGrade, s.Normalized, s.Tier, s.Weight, s.Bonus)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal: %.2f\n", res.Total)
	return err
}
