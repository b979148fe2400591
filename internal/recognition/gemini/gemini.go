// Package gemini transcribes report cards with a Gemini vision model.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/MeKo-Tech/gradescan/internal/catalog"
	"github.com/MeKo-Tech/gradescan/internal/imageprep"
	"github.com/MeKo-Tech/gradescan/internal/recognition"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

const systemPrompt = `You transcribe photographed school report cards.
Return every printed or handwritten line exactly as it appears, top to bottom, left column before right column.
Do not translate, correct spelling, merge lines or invent content.
Respond only with JSON of the form {"lines":[{"text":"...","confidence":0-100}],"confidence":0-100}.`

// Adapter calls the Gemini API once per image.
type Adapter struct {
	apiKey string
	model  string
}

// New creates an adapter. An empty model selects DefaultModel.
func New(apiKey, model string) *Adapter {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{apiKey: strings.TrimSpace(apiKey), model: model}
}

// Recognize implements recognition.Adapter.
func (a *Adapter) Recognize(ctx context.Context, img *imageprep.Image, opts recognition.Options, cfg *catalog.ScanConfig) (*recognition.Result, error) {
	if a.apiKey == "" {
		return nil, recognition.Unavailable("gemini", errors.New("api key is empty"))
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return nil, recognition.Unavailable("gemini", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(a.model)
	temperature := float32(0)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := m.GenerateContent(ctx,
		genai.Text(userPrompt(opts, cfg)),
		&genai.Blob{MIMEType: "image/png", Data: img.Data},
	)
	if err != nil {
		return nil, recognition.Unavailable("gemini", err)
	}

	txt := firstText(resp)
	if txt == "" {
		return nil, recognition.Unavailable("gemini", errors.New("empty response"))
	}
	res, err := decodeTranscript(txt)
	if err != nil {
		return nil, recognition.Unavailable("gemini", err)
	}
	return res, nil
}

func userPrompt(opts recognition.Options, cfg *catalog.ScanConfig) string {
	var b strings.Builder
	b.WriteString("Transcribe this report card.")
	if opts.Locale != "" {
		fmt.Fprintf(&b, " Locale: %s.", opts.Locale)
	}
	if opts.CountryCode != "" {
		fmt.Fprintf(&b, " Country: %s.", opts.CountryCode)
	}
	if cfg != nil {
		if names := cfg.SubjectNames(); len(names) > 0 {
			fmt.Fprintf(&b, " Subject names that may appear: %s.", strings.Join(names, ", "))
		}
	}
	return b.String()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok && strings.TrimSpace(string(t)) != "" {
				return string(t)
			}
		}
	}
	return ""
}

type transcript struct {
	Lines []struct {
		Text       string   `json:"text"`
		Confidence *float64 `json:"confidence"`
	} `json:"lines"`
	Confidence *float64 `json:"confidence"`
}

// decodeTranscript turns the model's JSON into a Result. Words inherit their line's
// confidence; the overall confidence falls back to the line mean.
func decodeTranscript(txt string) (*recognition.Result, error) {
	var t transcript
	if err := json.Unmarshal([]byte(stripCodeFences(txt)), &t); err != nil {
		return nil, fmt.Errorf("bad transcript JSON: %w", err)
	}

	res := &recognition.Result{}
	lines := make([]string, 0, len(t.Lines))
	var sum float64
	for _, l := range t.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		conf := 100.0
		if l.Confidence != nil {
			conf = *l.Confidence
		}
		sum += conf
		lines = append(lines, text)
		for _, w := range strings.Fields(text) {
			res.Words = append(res.Words, recognition.Word{Text: w, Confidence: conf})
		}
	}
	res.Text = strings.Join(lines, "\n")

	switch {
	case t.Confidence != nil:
		res.Confidence = *t.Confidence
	case len(lines) > 0:
		res.Confidence = sum / float64(len(lines))
	}
	res.Confidence = max(0, min(100, res.Confidence))
	return res, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
