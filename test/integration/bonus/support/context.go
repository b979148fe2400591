// Package support holds the step definitions of the bonus feature suite.
package support

import (
	"net/http/httptest"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
	"github.com/MeKo-Tech/gradescan/internal/server"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Calculation input
	GradingSystem bonus.GradingSystem
	Factors       bonus.FactorTable
	Scope         bonus.Scope
	ClassLevel    int
	TermType      string
	Subjects      []bonus.SubjectInput

	// Calculation outcome
	LastResult        *bonus.Result
	LastSubjectResult *bonus.SubjectResult
	LastError         error

	// HTTP state
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
}

// NewTestContext creates an empty scenario context.
func NewTestContext() *TestContext {
	return &TestContext{}
}

// Cleanup stops the scenario's HTTP server, if any.
func (testCtx *TestContext) Cleanup() {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
}

// input assembles the whole-report request.
func (testCtx *TestContext) input() bonus.Input {
	return bonus.Input{
		GradingSystem: testCtx.GradingSystem,
		Factors:       testCtx.Factors,
		Scope:         testCtx.Scope,
		ClassLevel:    testCtx.ClassLevel,
		TermType:      testCtx.TermType,
		Subjects:      testCtx.Subjects,
	}
}

// startServer serves the API without a scanner or store.
func (testCtx *TestContext) startServer() {
	if testCtx.HTTPServer == nil {
		testCtx.HTTPServer = httptest.NewServer(server.NewServer(server.Config{Version: "test"}, nil, nil).Routes())
	}
}
