package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/scan"
)

const maxJSONBody = 1 << 20

var (
	errNoStore   = errors.New("no factor store configured")
	errNoScanner = errors.New("scan pipeline not initialized")
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// scanHandler accepts a multipart upload with an "image" file and optional "locale"
// and "country" fields.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, errNoScanner)
		return
	}

	limit := s.maxUploadMB << 20
	// form framing gets one extra megabyte so the pipeline reports the exact cap
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, fmt.Errorf("%w: upload exceeds %d MB", imageprep.ErrImageTooLarge, s.maxUploadMB))
			return
		}
		badRequest(w, "invalid_request", "Failed to parse form data")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "invalid_request", "No image file provided")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "invalid_request", "Failed to read image data")
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.scanner.Scan(ctx, scan.Request{
		Image:       data,
		Locale:      r.FormValue("locale"),
		CountryHint: strings.ToUpper(strings.TrimSpace(r.FormValue("country"))),
		CallerID:    callerID(r),
	})
	if err != nil {
		slog.Warn("scan failed", "outcome", scan.Outcome(err), "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// bonusHandler calculates the bonus of a whole report.
func (s *Server) bonusHandler(w http.ResponseWriter, r *http.Request) {
	var req BonusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request", err.Error())
		return
	}

	in := req.Input
	if err := s.prepareBonus(r.Context(), req.GradingSystemID, &in.GradingSystem, &in.Factors, in.Scope); err != nil {
		bonusCalculations.WithLabelValues("report", "error").Inc()
		writeBonusError(w, err)
		return
	}

	res, err := bonus.Calculate(in)
	if err != nil {
		bonusCalculations.WithLabelValues("report", "error").Inc()
		writeError(w, err)
		return
	}
	bonusCalculations.WithLabelValues("report", "ok").Inc()
	writeJSON(w, http.StatusOK, res)
}

// bonusSubjectHandler calculates the bonus of one subject without the term factor.
func (s *Server) bonusSubjectHandler(w http.ResponseWriter, r *http.Request) {
	var req BonusSubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request", err.Error())
		return
	}

	in := req.SingleInput
	if err := s.prepareBonus(r.Context(), req.GradingSystemID, &in.GradingSystem, &in.Factors, in.Scope); err != nil {
		bonusCalculations.WithLabelValues("subject", "error").Inc()
		writeBonusError(w, err)
		return
	}

	res, err := bonus.CalculateSingle(in)
	if err != nil {
		bonusCalculations.WithLabelValues("subject", "error").Inc()
		writeError(w, err)
		return
	}
	bonusCalculations.WithLabelValues("subject", "ok").Inc()
	writeJSON(w, http.StatusOK, res)
}

// invalidInput marks request validation failures.
type invalidInput struct{ msg string }

func (e invalidInput) Error() string { return e.msg }

// prepareBonus loads stored definitions when the request only names a grading system,
// then validates the input.
func (s *Server) prepareBonus(ctx context.Context, id string, gs *bonus.GradingSystem, factors *bonus.FactorTable, scope bonus.Scope) error {
	if id != "" && gs.ScaleType == "" {
		if s.store == nil {
			return errNoStore
		}
		stored, err := s.store.GradingSystem(ctx, id)
		if err != nil {
			return fmt.Errorf("grading system %q: %w", id, err)
		}
		*gs = *stored

		if len(factors.Defaults) == 0 && len(factors.Overrides) == 0 {
			table, err := s.store.FactorTable(ctx, scope.UserID, scope.ChildID)
			if err != nil {
				return fmt.Errorf("factor table: %w", err)
			}
			*factors = *table
		}
	}

	switch gs.ScaleType {
	case bonus.ScalePercentage, bonus.ScaleNumeric:
	default:
		return invalidInput{fmt.Sprintf("unknown scale type %q", gs.ScaleType)}
	}
	if err := factors.Validate(); err != nil {
		return invalidInput{err.Error()}
	}
	return nil
}

func writeBonusError(w http.ResponseWriter, err error) {
	var invalid invalidInput
	switch {
	case errors.As(err, &invalid):
		badRequest(w, "invalid_request", invalid.msg)
	case errors.Is(err, errNoStore):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "store_unavailable", Message: err.Error()})
	default:
		writeError(w, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
