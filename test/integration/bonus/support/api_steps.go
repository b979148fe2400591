package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
)

func (testCtx *TestContext) theAPIServerIsRunning() error {
	testCtx.startServer()
	return nil
}

func (testCtx *TestContext) post(path string, body any) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("API server is not running")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(testCtx.HTTPServer.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse, err = io.ReadAll(resp.Body)
	return err
}

func (testCtx *TestContext) iPostTheReport() error {
	return testCtx.post("/v1/bonus", testCtx.input())
}

func (testCtx *TestContext) iPostTheSubject(name string) error {
	for _, s := range testCtx.Subjects {
		if s.SubjectName == name {
			return testCtx.post("/v1/bonus/subject", bonus.SingleInput{
				GradingSystem: testCtx.GradingSystem,
				Factors:       testCtx.Factors,
				Scope:         testCtx.Scope,
				ClassLevel:    testCtx.ClassLevel,
				Subject:       s,
			})
		}
	}
	return fmt.Errorf("no subject %q in the report", name)
}

func (testCtx *TestContext) iPostARawBody(path string, body *godog.DocString) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("API server is not running")
	}
	resp, err := http.Post(testCtx.HTTPServer.URL+path, "application/json", strings.NewReader(body.Content))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse, err = io.ReadAll(resp.Body)
	return err
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseTotalShouldBe(want float64) error {
	var res bonus.Result
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &res); err != nil {
		return fmt.Errorf("response is not a bonus result: %w", err)
	}
	if math.Abs(res.Total-want) > epsilon {
		return fmt.Errorf("expected total %.2f, got %.2f", want, res.Total)
	}
	return nil
}

func (testCtx *TestContext) theResponseSubjectBonusShouldBe(want float64) error {
	var res bonus.SubjectResult
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &res); err != nil {
		return fmt.Errorf("response is not a subject result: %w", err)
	}
	if math.Abs(res.Bonus-want) > epsilon {
		return fmt.Errorf("expected bonus %.2f, got %.2f", want, res.Bonus)
	}
	return nil
}

func (testCtx *TestContext) theResponseErrorShouldBe(code string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &body); err != nil {
		return fmt.Errorf("response is not an error body: %w", err)
	}
	if body.Error != code {
		return fmt.Errorf("expected error %q, got %q", code, body.Error)
	}
	return nil
}

// RegisterAPISteps registers the HTTP step definitions.
func (testCtx *TestContext) RegisterAPISteps(sc *godog.ScenarioContext) {
	sc.Step(`^the API server is running$`, testCtx.theAPIServerIsRunning)
	sc.Step(`^I post the report to the bonus endpoint$`, testCtx.iPostTheReport)
	sc.Step(`^I post the subject "([^"]*)" to the subject bonus endpoint$`, testCtx.iPostTheSubject)
	sc.Step(`^I post to "([^"]*)":$`, testCtx.iPostARawBody)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response total should be (-?[\d.]+)$`, testCtx.theResponseTotalShouldBe)
	sc.Step(`^the response subject bonus should be (-?[\d.]+)$`, testCtx.theResponseSubjectBonusShouldBe)
	sc.Step(`^the response error should be "([^"]*)"$`, testCtx.theResponseErrorShouldBe)
}
