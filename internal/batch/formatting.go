package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// Write renders the result in format.
func (r *Result) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCSV:
		return r.writeCSV(w)
	case FormatText:
		return r.writeText(w)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// writeCSV emits one row per subject, or one empty row for files without subjects.
func (r *Result) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"file", "subject", "grade", "matched_subject_id", "match_confidence", "score", "country", "error",
	})
	for _, it := range r.Items {
		if it.Result == nil || len(it.Result.Subjects) == 0 {
			country := ""
			if it.Result != nil {
				country = it.Result.SuggestedCountryCode
			}
			_ = cw.Write([]string{it.File, "", "", "", "", "", country, it.Error})
			continue
		}
		for _, row := range it.Result.Subjects {
			_ = cw.Write([]string{
				it.File,
				row.OriginalName,
				row.Grade,
				row.MatchedSubjectID,
				string(row.Confidence),
				strconv.FormatFloat(row.Score, 'f', 3, 64),
				it.Result.SuggestedCountryCode,
				"",
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Result) writeText(w io.Writer) error {
	var b strings.Builder
	for i, it := range r.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", it.File)
		if it.Result == nil {
			fmt.Fprintf(&b, "error (%s): %s\n", it.Outcome, it.Error)
			continue
		}
		for _, row := range it.Result.Subjects {
			name := row.MatchedSubjectName
			if name == "" {
				name = row.OriginalName
			}
			fmt.Fprintf(&b, "%s: %s\n", name, row.Grade)
		}
	}
	fmt.Fprintf(&b, "\n%d files, %d failed, %d workers, %v\n",
		len(r.Items), r.Failed(), r.Workers, r.Duration.Round(time.Millisecond))
	_, err := io.WriteString(w, b.String())
	return err
}
