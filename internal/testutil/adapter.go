package testutil

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// Region names the part of a page an adapter call received.
type Region string

const (
	RegionFull  Region = "full"
	RegionLeft  Region = "left"
	RegionRight Region = "right"
)

// Reply is a scripted recognition outcome.
type Reply struct {
	Text       string
	Confidence float64
	Err        error
}

// ScriptedAdapter answers recognition calls from a per-region script. Regions are told
// apart by width (full pages) and by the corner marker (left crops).
type ScriptedAdapter struct {
	FullWidth int
	Replies   map[Region]Reply
	// OnCall, when set, runs before the reply is returned.
	OnCall func(Region)

	mu    sync.Mutex
	calls []Region
}

// RegionOf classifies an image handed to the adapter.
func RegionOf(img *imageprep.Image, fullWidth int) Region {
	switch {
	case img.Width >= fullWidth:
		return RegionFull
	case HasMarker(img.Pixels):
		return RegionLeft
	default:
		return RegionRight
	}
}

// Recognize implements recognition.Adapter.
func (s *ScriptedAdapter) Recognize(ctx context.Context, img *imageprep.Image, _ recognition.Options, _ *catalog.ScanConfig) (*recognition.Result, error) {
	region := RegionOf(img, s.FullWidth)

	s.mu.Lock()
	s.calls = append(s.calls, region)
	s.mu.Unlock()

	if s.OnCall != nil {
		s.OnCall(region)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := s.Replies[region]
	if r.Err != nil {
		return nil, r.Err
	}
	return &recognition.Result{Text: r.Text, Confidence: r.Confidence}, nil
}

// Calls returns the regions recognized so far.
func (s *ScriptedAdapter) Calls() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Region(nil), s.calls...)
}
