package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
)

// Metadata is what the parser could tell about the document. Zero values mean unknown.
type Metadata struct {
	SchoolName  string `json:"school_name,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	SchoolYear  string `json:"school_year,omitempty"`
	ClassLevel  int    `json:"class_level,omitempty"`
	TermType    string `json:"term_type,omitempty"`
}

var (
	studentRe  = regexp.MustCompile(`(?i)^(?:vorname und name|name des schülers|name der schülerin|schüler/in|schülerin|schüler|student name|student|pupil|élève|eleve|leerling|name)\s*[:\-–]\s*(.+)$`)
	schoolRe   = regexp.MustCompile(`(?i)^(?:name der schule|schule|school|école|ecole|school name)\s*[:\-–]\s*(.+)$`)
	yearRe     = regexp.MustCompile(`\b((?:19|20)\d{2})\s*[/\-–]\s*(\d{4}|\d{2})\b`)
	classRe    = regexp.MustCompile(`(?i)\b(?:klassenstufe|klasse|jahrgangsstufe|jahrgang|grade|class|year|classe|groep|stufe)\s*:?\s*(\d{1,2})[a-z]?\b`)
	classPreRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\.\s*(?:klasse|jahrgangsstufe|schulstufe)`)
)

// schoolWords mark a line as naming the school.
var schoolWords = []string{
	"schule", "gymnasium", "school", "collège", "college", "lycée", "lycee",
	"academy", "akademie", "école", "ecole", "basisschool",
}

// metadataLine reports whether a line names the student, the school or the school year.
// Such lines never yield a subject row.
func metadataLine(line string) bool {
	return studentRe.MatchString(line) || schoolRe.MatchString(line) || yearRe.MatchString(line)
}

// stripClass removes class-level tokens, so "Year 9 History B" still yields History while
// a bare "Klasse 7b" leaves nothing to parse.
func stripClass(line string) string {
	line = classRe.ReplaceAllString(line, " ")
	return classPreRe.ReplaceAllString(line, " ")
}

func extractMetadata(lines []string, cfg *catalog.ScanConfig) Metadata {
	var meta Metadata
	for _, line := range lines {
		if meta.StudentName == "" {
			if m := studentRe.FindStringSubmatch(line); m != nil {
				meta.StudentName = strings.TrimSpace(m[1])
				continue
			}
		}
		if meta.SchoolName == "" {
			if m := schoolRe.FindStringSubmatch(line); m != nil {
				meta.SchoolName = strings.TrimSpace(m[1])
				continue
			}
			if isSchoolLine(line) {
				meta.SchoolName = line
			}
		}
		if meta.SchoolYear == "" {
			if m := yearRe.FindStringSubmatch(line); m != nil {
				meta.SchoolYear = schoolYear(m[1], m[2])
			}
		}
		if meta.ClassLevel == 0 {
			meta.ClassLevel = classLevel(line)
		}
	}
	meta.TermType = termType(strings.ToLower(strings.Join(lines, "\n")), cfg)
	return meta
}

func isSchoolLine(line string) bool {
	if len(line) > 80 {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "school year") || strings.Contains(lower, "schuljahr") || yearRe.MatchString(line) {
		return false
	}
	for _, w := range schoolWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// schoolYear canonicalizes "2023/24" and "2023-2024" to "2023/2024".
func schoolYear(first, second string) string {
	if len(second) == 2 {
		second = first[:2] + second
	}
	return first + "/" + second
}

func classLevel(line string) int {
	for _, re := range []*regexp.Regexp{classRe, classPreRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 13 {
				return n
			}
		}
	}
	return 0
}

func termType(lower string, cfg *catalog.ScanConfig) string {
	rules := catalog.DefaultTermRules()
	if cfg != nil && len(cfg.TermTypes) > 0 {
		rules = cfg.TermTypes
	}
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return r.Type
			}
		}
	}
	return ""
}
