package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"video-tutor/internal/tutor"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Transcript is the speech-to-text result for one video.
type Transcript struct {
	Segments []tutor.RecordSegment
	Text     string
	// Duration is the end of the last segment, in seconds.
	Duration float64
	Language string
}

// Transcriber turns a local media file into timed transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*Transcript, error)
}

// OpenAITranscriber uses the Whisper transcription endpoint with segment
// timestamps.
type OpenAITranscriber struct {
	client   oai.Client
	model    string
	language string
}

// NewOpenAITranscriber returns a transcriber for model (e.g. whisper-1) that
// assumes the given spoken language. Extra request options are passed to
// the client, e.g. option.WithBaseURL in tests.
func NewOpenAITranscriber(apiKey, model, language string, opts ...option.RequestOption) *OpenAITranscriber {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAITranscriber{client: oai.NewClient(reqOpts...), model: model, language: language}
}

// verboseTranscription is the verbose_json response body.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe implements Transcriber.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open media: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  oai.AudioModel(t.model),
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if t.language != "" {
		params.Language = oai.String(t.language)
	}

	var body verboseTranscription
	if _, err := t.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&body)); err != nil {
		return nil, fmt.Errorf("ingest: transcribe: %w", err)
	}

	tr := &Transcript{
		Text:     body.Text,
		Language: t.language,
		Segments: make([]tutor.RecordSegment, 0, len(body.Segments)),
	}
	for _, seg := range body.Segments {
		tr.Segments = append(tr.Segments, tutor.RecordSegment{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
	}
	if n := len(tr.Segments); n > 0 {
		tr.Duration = tr.Segments[n-1].End
	}
	return tr, nil
}
