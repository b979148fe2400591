package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/gradescan/internal/columns"
	"github.com/MeKo-Tech/gradescan/internal/country"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/matcher"
	"github.com/MeKo-Tech/gradescan/internal/parser"
	"github.com/MeKo-Tech/gradescan/internal/pdf"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// Scan runs the cascade for one request. Size and quota are checked before any
// decoding. Only the full-page recognition is allowed to fail the request; column
// failures degrade to whatever succeeded.
func (p *Pipeline) Scan(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() { observeScan(time.Since(start), err) }()

	if err := p.pre.CheckSize(req.Image); err != nil {
		return nil, err
	}
	if err := p.consume(ctx, req.CallerID); err != nil {
		return nil, err
	}

	page, isPDF, err := p.load(req.Image)
	if err != nil {
		return nil, err
	}
	emit(req, Event{Stage: StagePreprocessed})

	opts := recognition.Options{Locale: req.Locale, CountryCode: req.CountryHint}
	if opts.Locale == "" {
		opts.Locale = p.catalog.Locale.Locale
	}
	parseOpts := parser.Options{Locale: opts.Locale, CountryCode: opts.CountryCode}

	dbg := Debug{Image: &ImageInfo{Width: page.Width, Height: page.Height, PDF: isPDF}}

	full, err := p.recognize(ctx, page, "full", opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, recognition.Unavailable("full page", err)
	}
	fullParse := parser.Parse(full.Text, full.Confidence, p.catalog, parseOpts)
	best, bestPath := fullParse, PathFull
	dbg.Attempts = append(dbg.Attempts, Attempt{
		Path:     PathFull,
		Subjects: len(fullParse.Subjects),
		Accepted: true,
		Lines:    fullParse.Lines,
	})
	emit(req, Event{Stage: StageFull, Path: PathFull, Subjects: len(fullParse.Subjects)})

	analysis := p.splitter.Analyze(page.Pixels)
	dbg.Gutter = &analysis

	split := false
	if analysis.Found {
		if cols, ok := p.splitter.SplitAt(page.Pixels, analysis.GutterX); ok {
			split = true
			slog.Debug("column split", "gutter_x", analysis.GutterX, "brightness", analysis.Brightness)
			best, bestPath = p.tryColumns(ctx, PathColumns, cols, opts, parseOpts, best, bestPath, &dbg)
			emit(req, Event{Stage: StageColumns, Path: bestPath, Subjects: len(best.Subjects)})
		}
	}

	if !split && len(best.Subjects) < p.cfg.ColumnFallbackThreshold {
		if cols, ok := p.splitter.ForceSplitCenter(page.Pixels); ok {
			slog.Debug("forced centre split", "x", cols.SplitX, "subjects", len(best.Subjects))
			best, bestPath = p.tryColumns(ctx, PathForcedCenter, cols, opts, parseOpts, best, bestPath, &dbg)
			emit(req, Event{Stage: StageForcedCenter, Path: bestPath, Subjects: len(best.Subjects)})
		}
	}

	rows := p.matcher.Match(best.Subjects, p.catalog)
	kept, dropped := matcher.FilterNoise(rows)
	if len(dropped) > 0 {
		noiseRowsDropped.Add(float64(len(dropped)))
	}
	code, _ := country.Detect(fullParse.Metadata, full.Text, p.catalog.SchoolTypes)

	dbg.Path = bestPath
	dbg.CandidateRows = best.Subjects
	dbg.DroppedNoise = nonNil(dropped)
	dbg.DurationMs = time.Since(start).Milliseconds()

	scanPath.WithLabelValues(string(bestPath)).Inc()
	scanSubjects.Observe(float64(len(kept)))
	emit(req, Event{Stage: StageMatched, Path: bestPath, Subjects: len(kept)})

	return &Result{
		Subjects:             nonNil(kept),
		Metadata:             fullParse.Metadata,
		OverallConfidence:    best.OverallConfidence,
		SuggestedCountryCode: code,
		Debug:                dbg,
	}, nil
}

func (p *Pipeline) consume(ctx context.Context, callerID string) error {
	if p.limiter == nil {
		return nil
	}
	d, err := p.limiter.TryConsume(ctx, callerID)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if err := d.Err(time.Now()); err != nil {
		rateLimitHits.Inc()
		return err
	}
	return nil
}

// load decodes the upload. PDFs contribute the largest image of their first page.
func (p *Pipeline) load(raw []byte) (*imageprep.Image, bool, error) {
	if !pdf.IsPDF(raw) {
		img, err := p.pre.Preprocess(raw)
		return img, false, err
	}

	src, err := pdf.PageImage(raw, 1)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", imageprep.ErrInvalidImage, err)
	}
	img, err := p.pre.Normalize(src)
	return img, true, err
}

func (p *Pipeline) recognize(ctx context.Context, img *imageprep.Image, region string, opts recognition.Options) (*recognition.Result, error) {
	start := time.Now()
	res, err := p.adapter.Recognize(ctx, img, opts, p.catalog)
	recognitionDuration.WithLabelValues(region).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &recognition.Result{}
	}
	return res, nil
}

// tryColumns recognizes both halves, parses their merged text and keeps the result
// only when it has strictly more subjects than the current best.
func (p *Pipeline) tryColumns(
	ctx context.Context,
	path Path,
	cols columns.Columns,
	opts recognition.Options,
	parseOpts parser.Options,
	best *parser.Result,
	bestPath Path,
	dbg *Debug,
) (*parser.Result, Path) {
	attempt := Attempt{Path: path, Lines: []string{}}

	merged, err := p.recognizeColumns(ctx, cols, opts)
	if err != nil {
		slog.Warn("column recognition failed", "path", path, "error", err)
		attempt.Error = err.Error()
		dbg.Attempts = append(dbg.Attempts, attempt)
		return best, bestPath
	}

	parsed := parser.Parse(merged.Text, merged.Confidence, p.catalog, parseOpts)
	attempt.Subjects = len(parsed.Subjects)
	attempt.Lines = parsed.Lines
	if len(parsed.Subjects) > len(best.Subjects) {
		attempt.Accepted = true
		best, bestPath = parsed, path
	}
	dbg.Attempts = append(dbg.Attempts, attempt)
	return best, bestPath
}

// recognizeColumns runs the left and right recognitions concurrently. One failing half
// is logged and skipped; both failing is an error.
func (p *Pipeline) recognizeColumns(ctx context.Context, cols columns.Columns, opts recognition.Options) (*recognition.Result, error) {
	halves := [2]image.Image{cols.Left, cols.Right}
	regions := [2]string{"left", "right"}

	var (
		results [2]*recognition.Result
		errs    [2]error
		wg      sync.WaitGroup
	)
	for i := range halves {
		wg.Add(1)
		go func() {
			defer wg.Done()
			crop, err := imageprep.FromImage(halves[i])
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = p.recognize(ctx, crop, regions[i], opts)
		}()
	}
	wg.Wait()

	if results[0] == nil && results[1] == nil {
		return nil, errors.Join(errs[0], errs[1])
	}
	for i, err := range errs {
		if err != nil {
			slog.Warn("column degraded", "column", regions[i], "error", err)
		}
	}
	return recognition.Merge(results[0], results[1]), nil
}

func emit(req Request, ev Event) {
	if req.Progress != nil {
		req.Progress(ev)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
