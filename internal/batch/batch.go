// Package batch scans many report cards from files and directories with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/scan"
)

// ErrNoFiles is returned when discovery finds nothing to scan.
var ErrNoFiles = errors.New("no report card files found")

// Scanner runs one scan. *scan.Pipeline satisfies it.
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (*scan.Result, error)
}

// Config controls discovery and scanning.
type Config struct {
	Workers         int
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	Locale          string
	CountryHint     string
	// CallerID is charged against the pipeline's rate limiter for every file.
	CallerID string
	// MaxBytes skips larger files without reading them. Zero disables the check.
	MaxBytes int64
}

// Item is the outcome for one file. Exactly one of Result and Error is set.
type Item struct {
	File     string       `json:"file"`
	Result   *scan.Result `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
	Outcome  string       `json:"outcome"`
	Duration int64        `json:"duration_ms"`
}

// Result holds the items in discovery order.
type Result struct {
	Items    []Item        `json:"items"`
	Duration time.Duration `json:"-"`
	Workers  int           `json:"workers"`
}

// Failed counts items that did not scan.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Result == nil {
			n++
		}
	}
	return n
}

// Run discovers files under paths and scans them concurrently. Per-file failures are
// recorded on their item; only discovery problems and cancellation fail the run.
func Run(ctx context.Context, s Scanner, paths []string, cfg Config) (*Result, error) {
	files, err := discoverFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	start := time.Now()
	items := make([]Item, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = scanFile(ctx, s, files[i], cfg)
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Items: items, Duration: time.Since(start), Workers: workers}
	slog.Info("batch finished", "files", len(files), "failed", res.Failed(),
		"workers", workers, "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

func scanFile(ctx context.Context, s Scanner, path string, cfg Config) Item {
	start := time.Now()
	item := Item{File: path}

	data, err := readFile(path, cfg.MaxBytes)
	if err == nil {
		item.Result, err = s.Scan(ctx, scan.Request{
			Image:       data,
			Locale:      cfg.Locale,
			CountryHint: cfg.CountryHint,
			CallerID:    cfg.CallerID,
		})
	}
	item.Duration = time.Since(start).Milliseconds()
	item.Outcome = scan.Outcome(err)
	if err != nil {
		item.Result = nil
		item.Error = err.Error()
		slog.Warn("scan failed", "file", path, "outcome", item.Outcome, "error", err)
	}
	return item
}

// readFile stats path first so oversized files are rejected before they are loaded.
func readFile(path string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", imageprep.ErrImageTooLarge, info.Size(), maxBytes)
	}
	return os.ReadFile(path)
}
