package bonus

import (
	"fmt"
	"strings"
)

// ScaleType identifies how raw grades of a grading system are expressed.
type ScaleType string

const (
	// ScalePercentage means raw grades are already 0..100.
	ScalePercentage ScaleType = "percentage"
	// ScaleNumeric means raw grades live on a [MinValue, MaxValue] scale.
	ScaleNumeric ScaleType = "numeric"
)

// Tier is the quality tier of a grade.
type Tier string

const (
	TierBest   Tier = "best"
	TierSecond Tier = "second"
	TierThird  Tier = "third"
	TierBelow  Tier = "below"
)

// GradeDefinition pins a raw grade to its normalized value and tier.
type GradeDefinition struct {
	Grade         string  `json:"grade"          yaml:"grade"`
	Normalized100 float64 `json:"normalized_100" yaml:"normalized_100"`
	QualityTier   Tier    `json:"quality_tier"   yaml:"quality_tier"`
}

// GradingSystem describes one grading scale.
type GradingSystem struct {
	ID            string            `json:"id,omitempty"    yaml:"id,omitempty"`
	Name          string            `json:"name,omitempty"  yaml:"name,omitempty"`
	ScaleType     ScaleType         `json:"scale_type"      yaml:"scale_type"`
	MinValue      float64           `json:"min_value"       yaml:"min_value"`
	MaxValue      float64           `json:"max_value"       yaml:"max_value"`
	BestIsHighest bool              `json:"best_is_highest" yaml:"best_is_highest"`
	Grades        []GradeDefinition `json:"grades"          yaml:"grades"`
}

// definition returns the explicit definition for a raw grade, if any. Matching ignores case.
func (g GradingSystem) definition(grade string) (GradeDefinition, bool) {
	grade = strings.TrimSpace(grade)
	for _, d := range g.Grades {
		if strings.EqualFold(strings.TrimSpace(d.Grade), grade) {
			return d, true
		}
	}
	return GradeDefinition{}, false
}

// FactorType names a family of bonus factors.
type FactorType string

const (
	FactorBaseAmount  FactorType = "base_amount"
	FactorGradeTier   FactorType = "grade_tier"
	FactorTermType    FactorType = "term_type"
	FactorClassLevel  FactorType = "class_level"
	FactorCoreSubject FactorType = "core_subject_bonus"
)

// Well-known factor keys.
const (
	KeyPerSubject = "per_subject"
	KeyMultiplier = "multiplier"
)

// Factor is a single (type, key) → value entry.
type Factor struct {
	Type  FactorType `json:"factor_type"  yaml:"factor_type"`
	Key   string     `json:"factor_key"   yaml:"factor_key"`
	Value float64    `json:"factor_value" yaml:"factor_value"`
}

// Override scopes a factor to a user, or to one child of a user.
type Override struct {
	Factor  `yaml:",inline"`
	UserID  string `json:"user_id"            yaml:"user_id"`
	ChildID string `json:"child_id,omitempty" yaml:"child_id,omitempty"`
}

// FactorTable holds default factors plus scoped overrides.
type FactorTable struct {
	Defaults  []Factor   `json:"defaults"            yaml:"defaults"`
	Overrides []Override `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Validate reports duplicate (type, key) pairs at the same scope.
func (t FactorTable) Validate() error {
	seen := make(map[string]bool, len(t.Defaults)+len(t.Overrides))
	for _, f := range t.Defaults {
		k := fmt.Sprintf("default/%s/%s", f.Type, f.Key)
		if seen[k] {
			return fmt.Errorf("duplicate default factor %s/%s", f.Type, f.Key)
		}
		seen[k] = true
	}
	for _, o := range t.Overrides {
		if o.UserID == "" && o.ChildID == "" {
			return fmt.Errorf("override %s/%s has neither user nor child scope", o.Type, o.Key)
		}
		k := fmt.Sprintf("%s/%s/%s/%s", o.UserID, o.ChildID, o.Type, o.Key)
		if seen[k] {
			return fmt.Errorf("duplicate override %s/%s for user %q child %q", o.Type, o.Key, o.UserID, o.ChildID)
		}
		seen[k] = true
	}
	return nil
}

// Scope identifies whose overrides apply.
type Scope struct {
	UserID  string `json:"user_id,omitempty"  yaml:"user_id,omitempty"`
	ChildID string `json:"child_id,omitempty" yaml:"child_id,omitempty"`
}

// SubjectInput is one reviewed subject grade.
type SubjectInput struct {
	SubjectID   string   `json:"subject_id"            yaml:"subject_id"`
	SubjectName string   `json:"subject_name"          yaml:"subject_name"`
	Grade       string   `json:"grade"                 yaml:"grade"`
	Weight      *float64 `json:"weight,omitempty"      yaml:"weight,omitempty"`
	IsCore      bool     `json:"is_core_subject"       yaml:"is_core_subject"`
}

// Input is a whole-report calculation request.
type Input struct {
	GradingSystem GradingSystem  `json:"grading_system"        yaml:"grading_system"`
	Factors       FactorTable    `json:"factors"               yaml:"factors"`
	Scope         Scope          `json:"scope"                 yaml:"scope"`
	ClassLevel    int            `json:"class_level,omitempty" yaml:"class_level,omitempty"`
	TermType      string         `json:"term_type,omitempty"   yaml:"term_type,omitempty"`
	Subjects      []SubjectInput `json:"subjects"              yaml:"subjects"`
}

// SingleInput is a one-subject calculation request. The term factor is not applied.
type SingleInput struct {
	GradingSystem GradingSystem `json:"grading_system"        yaml:"grading_system"`
	Factors       FactorTable   `json:"factors"               yaml:"factors"`
	Scope         Scope         `json:"scope"                 yaml:"scope"`
	ClassLevel    int           `json:"class_level,omitempty" yaml:"class_level,omitempty"`
	Subject       SubjectInput  `json:"subject"               yaml:"subject"`
}

// SubjectResult is the per-subject breakdown entry.
type SubjectResult struct {
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	RawGrade    string  `json:"raw_grade"`
	Normalized  float64 `json:"normalized_grade"`
	Tier        Tier    `json:"tier"`
	Weight      float64 `json:"weight"`
	Bonus       float64 `json:"bonus"`
}

// Result is the outcome of Calculate.
type Result struct {
	Total     float64         `json:"total"`
	Breakdown []SubjectResult `json:"breakdown"`
}

// MissingFactorError reports a required factor that no scope provides.
type MissingFactorError struct {
	Type FactorType
	Key  string
}

func (e *MissingFactorError) Error() string {
	return fmt.Sprintf("missing bonus factor %s/%s", e.Type, e.Key)
}
