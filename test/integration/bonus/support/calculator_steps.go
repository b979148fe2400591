package support

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
)

const epsilon = 1e-9

// aPercentageGradingSystem sets up a 0..100 system where higher is better.
func (testCtx *TestContext) aPercentageGradingSystem() error {
	testCtx.GradingSystem = bonus.GradingSystem{
		ID:            "percentage",
		ScaleType:     bonus.ScalePercentage,
		MinValue:      0,
		MaxValue:      100,
		BestIsHighest: true,
	}
	return nil
}

// aNumericGradingSystem sets up a numeric system such as the German 1..6 scale.
func (testCtx *TestContext) aNumericGradingSystem(lowest, highest int, direction string) error {
	testCtx.GradingSystem = bonus.GradingSystem{
		ID:            "numeric",
		ScaleType:     bonus.ScaleNumeric,
		MinValue:      float64(lowest),
		MaxValue:      float64(highest),
		BestIsHighest: direction == "higher",
	}
	return nil
}

// theGradeDefinitions adds explicit grade definitions from a grade | normalized | tier table.
func (testCtx *TestContext) theGradeDefinitions(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 3 {
			return fmt.Errorf("grade row %d: want 3 cells, got %d", i, len(row.Cells))
		}
		normalized, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return fmt.Errorf("grade row %d: %w", i, err)
		}
		testCtx.GradingSystem.Grades = append(testCtx.GradingSystem.Grades, bonus.GradeDefinition{
			Grade:         row.Cells[0].Value,
			Normalized100: normalized,
			QualityTier:   bonus.Tier(row.Cells[2].Value),
		})
	}
	return nil
}

// theDefaultFactors reads a type | key | value table.
func (testCtx *TestContext) theDefaultFactors(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 3 {
			return fmt.Errorf("factor row %d: want 3 cells, got %d", i, len(row.Cells))
		}
		value, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return fmt.Errorf("factor row %d: %w", i, err)
		}
		testCtx.Factors.Defaults = append(testCtx.Factors.Defaults, bonus.Factor{
			Type:  bonus.FactorType(row.Cells[0].Value),
			Key:   row.Cells[1].Value,
			Value: value,
		})
	}
	return nil
}

func (testCtx *TestContext) aUserOverride(user, factorType, key string, value float64) error {
	return testCtx.addOverride(user, "", factorType, key, value)
}

func (testCtx *TestContext) aChildOverride(user, child, factorType, key string, value float64) error {
	return testCtx.addOverride(user, child, factorType, key, value)
}

func (testCtx *TestContext) addOverride(user, child, factorType, key string, value float64) error {
	testCtx.Factors.Overrides = append(testCtx.Factors.Overrides, bonus.Override{
		Factor:  bonus.Factor{Type: bonus.FactorType(factorType), Key: key, Value: value},
		UserID:  user,
		ChildID: child,
	})
	return testCtx.Factors.Validate()
}

func (testCtx *TestContext) theCalculationIsForUser(user string) error {
	testCtx.Scope.UserID = user
	return nil
}

func (testCtx *TestContext) theCalculationIsForChild(user, child string) error {
	testCtx.Scope = bonus.Scope{UserID: user, ChildID: child}
	return nil
}

func (testCtx *TestContext) theReportIsFor(class int, term string) error {
	testCtx.ClassLevel = class
	testCtx.TermType = term
	return nil
}

func (testCtx *TestContext) theSubjectGraded(name, grade string) error {
	testCtx.Subjects = append(testCtx.Subjects, bonus.SubjectInput{SubjectID: name, SubjectName: name, Grade: grade})
	return nil
}

func (testCtx *TestContext) theCoreSubjectGraded(name, grade string) error {
	testCtx.Subjects = append(testCtx.Subjects, bonus.SubjectInput{SubjectID: name, SubjectName: name, Grade: grade, IsCore: true})
	return nil
}

func (testCtx *TestContext) theWeightedSubjectGraded(name, grade string, weight float64) error {
	testCtx.Subjects = append(testCtx.Subjects, bonus.SubjectInput{SubjectID: name, SubjectName: name, Grade: grade, Weight: &weight})
	return nil
}

func (testCtx *TestContext) iCalculateTheBonus() error {
	testCtx.LastResult, testCtx.LastError = bonus.Calculate(testCtx.input())
	return nil
}

func (testCtx *TestContext) iCalculateTheBonusOfSubject(name string) error {
	for _, s := range testCtx.Subjects {
		if s.SubjectName != name {
			continue
		}
		testCtx.LastSubjectResult, testCtx.LastError = bonus.CalculateSingle(bonus.SingleInput{
			GradingSystem: testCtx.GradingSystem,
			Factors:       testCtx.Factors,
			Scope:         testCtx.Scope,
			ClassLevel:    testCtx.ClassLevel,
			Subject:       s,
		})
		return nil
	}
	return fmt.Errorf("no subject %q in the report", name)
}

func (testCtx *TestContext) theTotalBonusShouldBe(want float64) error {
	if testCtx.LastError != nil {
		return fmt.Errorf("calculation failed: %w", testCtx.LastError)
	}
	if math.Abs(testCtx.LastResult.Total-want) > epsilon {
		return fmt.Errorf("expected total %.2f, got %.2f", want, testCtx.LastResult.Total)
	}
	return nil
}

func (testCtx *TestContext) theSubjectBonusShouldBe(want float64) error {
	if testCtx.LastError != nil {
		return fmt.Errorf("calculation failed: %w", testCtx.LastError)
	}
	if math.Abs(testCtx.LastSubjectResult.Bonus-want) > epsilon {
		return fmt.Errorf("expected subject bonus %.2f, got %.2f", want, testCtx.LastSubjectResult.Bonus)
	}
	return nil
}

func (testCtx *TestContext) breakdownEntry(name string) (*bonus.SubjectResult, error) {
	if testCtx.LastError != nil {
		return nil, fmt.Errorf("calculation failed: %w", testCtx.LastError)
	}
	for i := range testCtx.LastResult.Breakdown {
		if testCtx.LastResult.Breakdown[i].SubjectName == name {
			return &testCtx.LastResult.Breakdown[i], nil
		}
	}
	return nil, fmt.Errorf("no breakdown entry for %q", name)
}

func (testCtx *TestContext) theBonusOfShouldBe(name string, want float64) error {
	entry, err := testCtx.breakdownEntry(name)
	if err != nil {
		return err
	}
	if math.Abs(entry.Bonus-want) > epsilon {
		return fmt.Errorf("expected bonus %.2f for %s, got %.2f", want, name, entry.Bonus)
	}
	return nil
}

func (testCtx *TestContext) theTierOfShouldBe(name, tier string) error {
	entry, err := testCtx.breakdownEntry(name)
	if err != nil {
		return err
	}
	if string(entry.Tier) != tier {
		return fmt.Errorf("expected tier %s for %s, got %s", tier, name, entry.Tier)
	}
	return nil
}

func (testCtx *TestContext) theNormalizedGradeOfShouldBe(name string, want float64) error {
	entry, err := testCtx.breakdownEntry(name)
	if err != nil {
		return err
	}
	if math.Abs(entry.Normalized-want) > epsilon {
		return fmt.Errorf("expected normalized grade %.2f for %s, got %.2f", want, name, entry.Normalized)
	}
	return nil
}

func (testCtx *TestContext) theCalculationShouldFailWithMissingFactor(factorType, key string) error {
	var missing *bonus.MissingFactorError
	if !errors.As(testCtx.LastError, &missing) {
		return fmt.Errorf("expected a missing factor error, got %v", testCtx.LastError)
	}
	if string(missing.Type) != factorType || missing.Key != key {
		return fmt.Errorf("expected missing %s/%s, got %s/%s", factorType, key, missing.Type, missing.Key)
	}
	return nil
}

// RegisterCalculatorSteps registers the calculator step definitions.
func (testCtx *TestContext) RegisterCalculatorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a percentage grading system$`, testCtx.aPercentageGradingSystem)
	sc.Step(`^a numeric grading system from (\d+) to (\d+) where (higher|lower) is better$`, testCtx.aNumericGradingSystem)
	sc.Step(`^the grade definitions:$`, testCtx.theGradeDefinitions)
	sc.Step(`^the default factors:$`, testCtx.theDefaultFactors)
	sc.Step(`^user "([^"]*)" overrides ([a-z_]+)/([a-z0-9_]+) with (-?[\d.]+)$`, testCtx.aUserOverride)
	sc.Step(`^user "([^"]*)" overrides ([a-z_]+)/([a-z0-9_]+) for child "([^"]*)" with (-?[\d.]+)$`,
		func(user, factorType, key, child string, value float64) error {
			return testCtx.aChildOverride(user, child, factorType, key, value)
		})
	sc.Step(`^the calculation is for user "([^"]*)"$`, testCtx.theCalculationIsForUser)
	sc.Step(`^the calculation is for user "([^"]*)" and child "([^"]*)"$`, testCtx.theCalculationIsForChild)
	sc.Step(`^the report is for class (\d+) in term "([^"]*)"$`, testCtx.theReportIsFor)
	sc.Step(`^the subject "([^"]*)" graded "([^"]*)"$`, testCtx.theSubjectGraded)
	sc.Step(`^the core subject "([^"]*)" graded "([^"]*)"$`, testCtx.theCoreSubjectGraded)
	sc.Step(`^the subject "([^"]*)" graded "([^"]*)" with weight (-?[\d.]+)$`, testCtx.theWeightedSubjectGraded)

	sc.Step(`^I calculate the bonus$`, testCtx.iCalculateTheBonus)
	sc.Step(`^I calculate the bonus of subject "([^"]*)"$`, testCtx.iCalculateTheBonusOfSubject)

	sc.Step(`^the total bonus should be (-?[\d.]+)$`, testCtx.theTotalBonusShouldBe)
	sc.Step(`^the subject bonus should be (-?[\d.]+)$`, testCtx.theSubjectBonusShouldBe)
	sc.Step(`^the bonus of "([^"]*)" should be (-?[\d.]+)$`, testCtx.theBonusOfShouldBe)
	sc.Step(`^the tier of "([^"]*)" should be "([^"]*)"$`, testCtx.theTierOfShouldBe)
	sc.Step(`^the normalized grade of "([^"]*)" should be (-?[\d.]+)$`, testCtx.theNormalizedGradeOfShouldBe)
	sc.Step(`^the calculation should fail with a missing ([a-z_]+)/([a-z0-9_]+) factor$`,
		testCtx.theCalculationShouldFailWithMissingFactor)
}
