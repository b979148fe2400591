package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// gradeKind recognizes grade tokens of one national scale.
type gradeKind int

const (
	kindGerman gradeKind = iota
	kindAustrian
	kindSwiss
	kindFrench
	kindDutch
	kindLetter
	kindPercent
	kindVerbal
)

var allKinds = []gradeKind{kindGerman, kindAustrian, kindSwiss, kindFrench, kindDutch, kindLetter, kindPercent, kindVerbal}

var (
	percentRe = regexp.MustCompile(`^(\d{1,3}(?:[.,]\d+)?)\s*%$`)
	letterRe  = regexp.MustCompile(`^(?:A\*|[A-F][+-]?)$`)
	numberRe  = regexp.MustCompile(`^(\d{1,2}(?:[.,]\d{1,2})?)([+-]?)$`)
)

// verbalGrades maps German and Austrian verbal grades to their numeric grade.
var verbalGrades = map[string]string{
	"sehr gut":       "1",
	"gut":            "2",
	"befriedigend":   "3",
	"ausreichend":    "4",
	"genügend":       "4",
	"genugend":       "4",
	"mangelhaft":     "5",
	"nicht genügend": "5",
	"nicht genugend": "5",
	"ungenügend":     "6",
	"ungenugend":     "6",
}

// kindsFor picks the active grade scales: country hint first, then locale, then all.
func kindsFor(opts Options) []gradeKind {
	country := strings.ToUpper(strings.TrimSpace(opts.CountryCode))
	if country == "" {
		country = countryFromLocale(opts.Locale)
	}
	switch country {
	case "DE":
		return []gradeKind{kindGerman, kindPercent, kindVerbal}
	case "AT":
		return []gradeKind{kindAustrian, kindPercent, kindVerbal}
	case "CH":
		return []gradeKind{kindSwiss, kindPercent, kindVerbal}
	case "FR", "BE", "LU":
		return []gradeKind{kindFrench, kindPercent}
	case "NL":
		return []gradeKind{kindDutch, kindPercent}
	case "GB", "UK", "US", "IE", "CA", "AU":
		return []gradeKind{kindLetter, kindPercent}
	}
	return allKinds
}

// countryFromLocale takes the region of "de-AT"/"en_GB"; a bare "de" means DE.
func countryFromLocale(locale string) string {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return ""
	}
	parts := strings.Split(locale, "-")
	if len(parts) > 1 {
		return strings.ToUpper(parts[len(parts)-1])
	}
	switch strings.ToLower(parts[0]) {
	case "de":
		return "DE"
	case "fr":
		return "FR"
	case "nl":
		return "NL"
	}
	return ""
}

// matchGrade reports whether tok is a grade of any active kind, returning it normalized.
func matchGrade(tok string, kinds []gradeKind) (string, bool) {
	tok = strings.TrimSpace(tok)
	tok = strings.Trim(tok, "()[]")
	tok = strings.TrimSuffix(tok, ".")
	if tok == "" {
		return "", false
	}
	for _, k := range kinds {
		if g, ok := k.match(tok); ok {
			return g, true
		}
	}
	return "", false
}

func (k gradeKind) match(tok string) (string, bool) {
	switch k {
	case kindGerman:
		// 1..6 with tendency, or 0..15 upper-school points
		if g, ok := numeric(tok, 1, 6, false, true); ok {
			return g, true
		}
		return numeric(tok, 0, 15, false, false)
	case kindAustrian:
		return numeric(tok, 1, 5, false, false)
	case kindSwiss:
		return numeric(tok, 1, 6, true, false)
	case kindFrench:
		return numeric(tok, 0, 20, true, false)
	case kindDutch:
		return numeric(tok, 1, 10, true, false)
	case kindLetter:
		if letterRe.MatchString(tok) {
			return tok, true
		}
	case kindPercent:
		if m := percentRe.FindStringSubmatch(tok); m != nil {
			v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
			if err == nil && v <= 100 {
				return strings.Replace(m[1], ",", ".", 1) + "%", true
			}
		}
	case kindVerbal:
		if g, ok := verbalGrades[strings.ToLower(tok)]; ok {
			return g, true
		}
	}
	return "", false
}

func numeric(tok string, lo, hi float64, decimals, tendency bool) (string, bool) {
	m := numberRe.FindStringSubmatch(tok)
	if m == nil {
		return "", false
	}
	num := strings.Replace(m[1], ",", ".", 1)
	if strings.Contains(num, ".") && !decimals {
		return "", false
	}
	if m[2] != "" && !tendency {
		return "", false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < lo || v > hi {
		return "", false
	}
	return num + m[2], true
}
