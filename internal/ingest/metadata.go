package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// VideoMetadata is the searchable description of a video.
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Keywords    []string `json:"keywords"`
}

// MetadataExtractor derives VideoMetadata from a file name and transcript.
type MetadataExtractor interface {
	Extract(ctx context.Context, key, transcript string) (VideoMetadata, error)
}

const maxPromptTranscript = 4000

const metadataPrompt = `Kamu adalah asisten yang menganalisis konten video pembelajaran FISIKA.
Berdasarkan nama file dan transkrip video, ekstrak informasi berikut dalam format JSON:

{
    "title": "Judul video yang deskriptif dalam Bahasa Indonesia",
    "description": "Deskripsi singkat 2-3 kalimat tentang isi video",
    "topics": ["topik1", "topik2", ...],
    "keywords": ["keyword1", "keyword2", ...]
}

ATURAN PENTING untuk topics dan keywords (HARUS 30-50 item total):

1. **Topics** (15-25 item) - Konsep dan topik utama:
   - Topik utama: "hukum newton", "gaya", "gerak"
   - Sub-topik: "hukum 1 newton", "hukum 2 newton", "hukum 3 newton", "inersia"
   - Konsep terkait: "percepatan", "kecepatan", "massa", "momentum"
   - Kategori: "mekanika", "dinamika", "kinematika"

2. **Keywords** (15-25 item) - Kata kunci pencarian:
   - Terminologi: "f=ma", "gaya gesek", "gaya normal"
   - Sinonim Indonesia: "tenaga", "dorongan", "tarikan"
   - Sinonim Inggris: "newton", "force", "motion", "acceleration"
   - Query umum: "rumus newton", "contoh hukum newton", "pengertian gaya"
   - Variasi penulisan: "hkm newton", "newton 1", "newton pertama"

3. Semua dalam lowercase
4. Sertakan variasi ejaan dan singkatan yang umum digunakan siswa
5. Sertakan istilah yang mungkin dicari siswa SD/SMP

Balas HANYA dengan JSON, tanpa penjelasan tambahan.`

// OpenAIExtractor asks a chat model for rich topics and keywords.
type OpenAIExtractor struct {
	client oai.Client
	model  string
}

// NewOpenAIExtractor returns an extractor using the chat model.
func NewOpenAIExtractor(apiKey, model string, opts ...option.RequestOption) *OpenAIExtractor {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIExtractor{client: oai.NewClient(reqOpts...), model: model}
}

// Extract implements MetadataExtractor. Missing fields in the reply are
// filled from the file name.
func (e *OpenAIExtractor) Extract(ctx context.Context, key, transcript string) (VideoMetadata, error) {
	resp, err := e.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(metadataPrompt),
			oai.UserMessage("Filename: " + key + "\n\nTranskrip:\n" + truncateTranscript(transcript)),
		},
	})
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("ingest: metadata completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return VideoMetadata{}, errors.New("ingest: metadata completion: empty choices")
	}
	return parseMetadataReply(key, resp.Choices[0].Message.Content)
}

func truncateTranscript(s string) string {
	r := []rune(s)
	if len(r) <= maxPromptTranscript {
		return s
	}
	return string(r[:maxPromptTranscript]) + "..."
}

// stripCodeFence removes a Markdown code fence (``` or ```json) around a reply.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	s = strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(s)
}

func parseMetadataReply(key, reply string) (VideoMetadata, error) {
	var raw struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Topics      []string `json:"topics"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &raw); err != nil {
		return VideoMetadata{}, fmt.Errorf("ingest: metadata reply: %w", err)
	}

	md := VideoMetadata{
		Title:       TitleFromFilename(key),
		Description: "Video pembelajaran: " + key,
		Topics:      normalizeTerms(raw.Topics),
		Keywords:    normalizeTerms(raw.Keywords),
	}
	if raw.Title != nil {
		md.Title = *raw.Title
	}
	if raw.Description != nil {
		md.Description = *raw.Description
	}
	if len(md.Topics) == 0 {
		md.Topics = KeywordsFromFilename(key)
	}
	return md, nil
}

// FallbackMetadata is used when extraction fails.
func FallbackMetadata(key string) VideoMetadata {
	title := TitleFromFilename(key)
	return VideoMetadata{
		Title:       title,
		Description: "Video pembelajaran: " + title,
		Topics:      KeywordsFromFilename(key),
		Keywords:    []string{},
	}
}

// normalizeTerms lower-cases and trims terms, dropping blanks and repeats.
func normalizeTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
