// Package bonus computes reward amounts from reviewed report-card grades.
//
// A bonus for one subject is
//
//	base_amount/per_subject × grade_tier/<tier> × class_level/class_<n> × term_type/<term> × core × weight
//
// where every factor is resolved with child override → user override → default precedence.
// Calculations are pure: identical inputs always give identical results.
package bonus

import (
	"fmt"
	"math"
)

// Calculate computes the bonus for every subject of a report.
func Calculate(in Input) (*Result, error) {
	r := NewResolver(in.Factors, in.Scope)

	base, err := r.Require(FactorBaseAmount, KeyPerSubject)
	if err != nil {
		return nil, err
	}

	multiplier := classMultiplier(r, in.ClassLevel)
	if in.TermType != "" {
		multiplier *= r.Optional(FactorTermType, in.TermType, 1)
	}

	res := &Result{Breakdown: make([]SubjectResult, 0, len(in.Subjects))}
	var total float64
	for _, s := range in.Subjects {
		sr, err := subjectBonus(r, in.GradingSystem, base, multiplier, s)
		if err != nil {
			return nil, fmt.Errorf("subject %q: %w", s.SubjectName, err)
		}
		res.Breakdown = append(res.Breakdown, sr)
		total += sr.Bonus
	}
	res.Total = roundCents(math.Max(0, total))
	return res, nil
}

// CalculateSingle computes the bonus for one subject without a term factor.
func CalculateSingle(in SingleInput) (*SubjectResult, error) {
	r := NewResolver(in.Factors, in.Scope)

	base, err := r.Require(FactorBaseAmount, KeyPerSubject)
	if err != nil {
		return nil, err
	}

	sr, err := subjectBonus(r, in.GradingSystem, base, classMultiplier(r, in.ClassLevel), in.Subject)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

// ClassKey returns the class_level factor key for a class.
func ClassKey(level int) string {
	return fmt.Sprintf("class_%d", level)
}

func classMultiplier(r *Resolver, level int) float64 {
	if level <= 0 {
		return 1
	}
	return r.Optional(FactorClassLevel, ClassKey(level), 1)
}

func subjectBonus(r *Resolver, gs GradingSystem, base, multiplier float64, s SubjectInput) (SubjectResult, error) {
	tier := DeriveTier(gs, s.Grade)
	gradeFactor, err := r.Require(FactorGradeTier, string(tier))
	if err != nil {
		return SubjectResult{}, err
	}

	core := 1.0
	if s.IsCore {
		core = r.Optional(FactorCoreSubject, KeyMultiplier, 1)
	}
	weight := 1.0
	if s.Weight != nil {
		weight = *s.Weight
	}

	amount := base * gradeFactor * multiplier * core * weight
	return SubjectResult{
		SubjectID:   s.SubjectID,
		SubjectName: s.SubjectName,
		RawGrade:    s.Grade,
		Normalized:  NormalizeGrade(gs, s.Grade),
		Tier:        tier,
		Weight:      weight,
		Bonus:       roundCents(math.Max(0, amount)),
	}, nil
}
