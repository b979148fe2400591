// Package parser turns recognized report-card text into candidate subject rows and
// document metadata.
package parser

import (
	"math"
	"strings"
	"unicode"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
)

// Row is a candidate subject/grade pair as it appeared on the card.
type Row struct {
	OriginalName string `json:"original_name"`
	Grade        string `json:"grade"`
	Line         int    `json:"line"`
}

// Options steer grade-token recognition.
type Options struct {
	CountryCode string
	Locale      string
}

// Result is the outcome of Parse.
type Result struct {
	Subjects          []Row    `json:"subjects"`
	Metadata          Metadata `json:"metadata"`
	OverallConfidence float64  `json:"overall_confidence"`
	Lines             []string `json:"lines"`
}

// ignoredLabels never name a subject even when followed by a number.
var ignoredLabels = map[string]bool{
	"klasse": true, "class": true, "grade": true, "year": true, "jahrgangsstufe": true,
	"schuljahr": true, "datum": true, "date": true, "fehltage": true, "versäumte": true,
	"tage": true, "days": true, "absences": true, "seite": true, "page": true,
	"zeugnis": true, "note": true, "noten": true, "fach": true, "subject": true,
}

// Parse extracts rows and metadata from recognized text. confidence is the recognizer's
// 0..100 confidence; the overall confidence scales it by the share of lines that parsed.
func Parse(text string, confidence float64, cfg *catalog.ScanConfig, opts Options) *Result {
	lines := splitLines(text)
	kinds := kindsFor(opts)

	res := &Result{
		Subjects: []Row{},
		Metadata: extractMetadata(lines, cfg),
		Lines:    lines,
	}

	seen := make(map[string]bool)
	for i, line := range lines {
		if metadataLine(line) {
			continue
		}
		row, ok := parseRow(stripClass(line), kinds)
		if !ok {
			continue
		}
		key := strings.ToLower(row.OriginalName) + "\x00" + row.Grade
		if seen[key] {
			continue
		}
		seen[key] = true
		row.Line = i
		res.Subjects = append(res.Subjects, row)
	}

	res.OverallConfidence = OverallConfidence(confidence, len(res.Subjects), len(lines))
	return res
}

// OverallConfidence is confidence × (0.5 + 0.5 × parsed/lines), clamped to [0,100].
func OverallConfidence(confidence float64, parsed, lines int) float64 {
	c := math.Max(0, math.Min(100, confidence))
	frac := 0.0
	if lines > 0 {
		frac = math.Min(1, float64(parsed)/float64(lines))
	}
	return c * (0.5 + 0.5*frac)
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// parseRow reads "label … grade". Two-word grades ("sehr gut") are tried first.
func parseRow(line string, kinds []gradeKind) (Row, bool) {
	fields := strings.Fields(line)
	for _, n := range []int{2, 1} {
		if len(fields) <= n {
			continue
		}
		grade, ok := matchGrade(strings.Join(fields[len(fields)-n:], " "), kinds)
		if !ok {
			continue
		}
		label, ok := cleanLabel(fields[:len(fields)-n])
		if ok {
			return Row{OriginalName: label, Grade: grade}, true
		}
	}
	return Row{}, false
}

// cleanLabel drops leaders and separators and rejects labels that cannot name a subject.
func cleanLabel(tokens []string) (string, bool) {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) && r != '(' && r != ')' || unicode.IsSymbol(r)
		})
		if tok == "" {
			continue
		}
		if isNumber(tok) {
			return "", false
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return "", false
	}

	label := strings.Join(kept, " ")
	letters := 0
	for _, r := range label {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return "", false
	}
	if ignoredLabels[strings.ToLower(kept[0])] {
		return "", false
	}
	return label, true
}

func isNumber(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '+' && r != '-' {
			return false
		}
	}
	return true
}
