package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/matcher"
	"github.com/MeKo-Tech/gradescan/internal/parser"
	"github.com/MeKo-Tech/gradescan/internal/scan"
)

// fakeScanner fails for images whose content is "bad" and records request metadata.
type fakeScanner struct {
	active, peak atomic.Int32
	mu           sync.Mutex
	callers      []string
}

func (f *fakeScanner) Scan(ctx context.Context, req scan.Request) (*scan.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.callers = append(f.callers, req.CallerID+"/"+req.CountryHint)
	f.mu.Unlock()

	if string(req.Image) == "bad" {
		return nil, imageprep.ErrInvalidImage
	}
	return &scan.Result{
		Subjects: []matcher.Row{{
			Row:                parser.Row{OriginalName: "Mathe", Grade: string(req.Image)},
			MatchedSubjectID:   "math",
			MatchedSubjectName: "Mathematik",
			Confidence:         matcher.TierHigh,
			Score:              0.9,
		}},
		SuggestedCountryCode: "DE",
	}, nil
}

func writeCards(t *testing.T, contents ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, c := range contents {
		p := filepath.Join(dir, string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(p, []byte(c), 0o600))
		paths = append(paths, p)
	}
	return dir, paths
}

func TestRun_KeepsDiscoveryOrderAndRecordsFailures(t *testing.T) {
	dir, paths := writeCards(t, "1", "bad", "2")
	s := &fakeScanner{}

	res, err := Run(context.Background(), s, []string{dir}, Config{Workers: 2, CallerID: "cli", CountryHint: "DE"})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	for i, it := range res.Items {
		assert.Equal(t, paths[i], it.File)
	}
	assert.Equal(t, "1", res.Items[0].Result.Subjects[0].Grade)
	assert.Nil(t, res.Items[1].Result)
	assert.Equal(t, "invalid_image", res.Items[1].Outcome)
	assert.NotEmpty(t, res.Items[1].Error)
	assert.Equal(t, "ok", res.Items[2].Outcome)
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, 2, res.Workers)
	assert.ElementsMatch(t, []string{"cli/DE", "cli/DE", "cli/DE"}, s.callers)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	dir, _ := writeCards(t, "1", "2", "3", "4", "5", "6")
	s := &fakeScanner{}

	_, err := Run(context.Background(), s, []string{dir}, Config{Workers: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, s.peak.Load(), int32(2))
}

func TestRun_OversizedFilesAreNotScanned(t *testing.T) {
	dir, paths := writeCards(t, "1", "this file is too large")
	s := &fakeScanner{}

	res, err := Run(context.Background(), s, []string{dir}, Config{Workers: 1, MaxBytes: 4})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	assert.Equal(t, "ok", res.Items[0].Outcome)
	assert.Equal(t, paths[1], res.Items[1].File)
	assert.Nil(t, res.Items[1].Result)
	assert.Equal(t, "too_large", res.Items[1].Outcome)
	assert.Contains(t, res.Items[1].Error, "exceeds limit of 4")
	assert.Len(t, s.callers, 1)
}

func TestRun_WorkersCappedByFiles(t *testing.T) {
	dir, _ := writeCards(t, "1")
	res, err := Run(context.Background(), &fakeScanner{}, []string{dir}, Config{Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Workers)
}

func TestRun_Errors(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		_, err := Run(context.Background(), &fakeScanner{}, []string{t.TempDir()}, Config{})
		assert.ErrorIs(t, err, ErrNoFiles)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Run(context.Background(), &fakeScanner{}, []string{"/nonexistent"}, Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot access")
	})

	t.Run("canceled", func(t *testing.T) {
		dir, _ := writeCards(t, "1", "2")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, &fakeScanner{}, []string{dir}, Config{Workers: 1})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func sampleResult(t *testing.T) *Result {
	t.Helper()
	dir, _ := writeCards(t, "2", "bad")
	res, err := Run(context.Background(), &fakeScanner{}, []string{dir}, Config{Workers: 1})
	require.NoError(t, err)
	return res
}

func TestWrite_JSON(t *testing.T) {
	res := sampleResult(t)
	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf, FormatJSON))

	var decoded struct {
		Items []struct {
			File    string       `json:"file"`
			Result  *scan.Result `json:"result"`
			Error   string       `json:"error"`
			Outcome string       `json:"outcome"`
		} `json:"items"`
		Workers int `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Items, 2)
	assert.NotNil(t, decoded.Items[0].Result)
	assert.Equal(t, "invalid_image", decoded.Items[1].Outcome)
	assert.Equal(t, 1, decoded.Workers)
}

func TestWrite_CSV(t *testing.T) {
	res := sampleResult(t)
	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf, FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "file", records[0][0])
	assert.Equal(t, []string{"Mathe", "2", "math", "high", "0.900", "DE", ""}, records[1][1:])
	assert.Empty(t, records[2][1])
	assert.NotEmpty(t, records[2][7])
}

func TestWrite_Text(t *testing.T) {
	res := sampleResult(t)
	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf, FormatText))

	out := buf.String()
	assert.Contains(t, out, "# "+res.Items[0].File)
	assert.Contains(t, out, "Mathematik: 2")
	assert.Contains(t, out, "error (invalid_image)")
	assert.Contains(t, out, "2 files, 1 failed, 1 workers")
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := (&Result{}).Write(&bytes.Buffer{}, "xml")
	require.Error(t, err)
}
