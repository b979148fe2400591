// Package matcher maps candidate subject names onto the subject catalog.
package matcher

import (
	"fmt"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/parser"
)

// Tier grades how sure a match is.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// Config holds the score thresholds of each tier.
type Config struct {
	High   float64 `mapstructure:"high"   yaml:"high"   json:"high"`
	Medium float64 `mapstructure:"medium" yaml:"medium" json:"medium"`
	Low    float64 `mapstructure:"low"    yaml:"low"    json:"low"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{High: 0.9, Medium: 0.75, Low: 0.5}
}

// Row is a candidate row plus its best catalog match.
type Row struct {
	parser.Row
	MatchedSubjectID   string  `json:"matched_subject_id,omitempty"`
	MatchedSubjectName string  `json:"matched_subject_name,omitempty"`
	IsCore             bool    `json:"is_core_subject,omitempty"`
	Confidence         Tier    `json:"match_confidence"`
	Score              float64 `json:"score"`
	Rationale          string  `json:"rationale"`
}

// Matched reports whether the row resolved to a catalog subject.
func (r Row) Matched() bool {
	return r.Confidence != TierNone && r.MatchedSubjectID != ""
}

// Matcher scores rows against a catalog.
type Matcher struct {
	cfg Config
}

// New creates a matcher with the given thresholds.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Tier classifies a similarity score.
func (m *Matcher) Tier(score float64) Tier {
	switch {
	case score >= m.cfg.High:
		return TierHigh
	case score >= m.cfg.Medium:
		return TierMedium
	case score >= m.cfg.Low:
		return TierLow
	default:
		return TierNone
	}
}

// Match resolves every row. Rows below the low threshold keep no subject and tier none.
func (m *Matcher) Match(rows []parser.Row, cfg *catalog.ScanConfig) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, m.MatchRow(r, cfg))
	}
	return out
}

// MatchRow resolves a single row against every subject name and alias.
func (m *Matcher) MatchRow(r parser.Row, cfg *catalog.ScanConfig) Row {
	name := Normalize(r.OriginalName)

	var (
		best      catalog.Subject
		bestScore float64
		bestVia   string
	)
	if cfg != nil {
		for _, s := range cfg.Subjects {
			for _, candidate := range append([]string{s.Name}, s.Aliases...) {
				score := Similarity(name, Normalize(candidate))
				if score > bestScore {
					best, bestScore, bestVia = s, score, candidate
				}
			}
		}
	}

	tier := m.Tier(bestScore)
	out := Row{Row: r, Confidence: tier, Score: bestScore}
	if tier == TierNone {
		if bestVia == "" {
			out.Rationale = fmt.Sprintf("no catalog candidate for %q", name)
		} else {
			out.Rationale = fmt.Sprintf("best candidate %q scored %.2f, below %.2f", bestVia, bestScore, m.cfg.Low)
		}
		return out
	}

	out.MatchedSubjectID = best.ID
	out.MatchedSubjectName = best.Name
	out.IsCore = best.Core
	out.Rationale = fmt.Sprintf("%q ~ %q (%s) score %.2f", name, bestVia, tier, bestScore)
	return out
}
