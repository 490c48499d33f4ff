package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultInstructions is used when no prompt file can be read.
const DefaultInstructions = "Kamu adalah tutor fisika yang ramah dan berpengetahuan untuk anak SD."

// DefaultGreeting asks the assistant to speak first once a session opens.
const DefaultGreeting = "[SYSTEM: User just connected. Please greet them warmly in Indonesian and ask what physics topic they want to learn today.]"

// Assistant describes the voice tutor persona and realtime model settings.
type Assistant struct {
	Model              string `yaml:"model" validate:"required"`
	Voice              string `yaml:"voice" validate:"required,oneof=alloy ash ballad coral echo sage shimmer verse"`
	TranscriptionModel string `yaml:"transcription_model" validate:"required"`
	PromptFile         string `yaml:"prompt_file"`
	Greeting           string `yaml:"greeting"`

	// Instructions is the resolved prompt text; it is never read from YAML.
	Instructions string `yaml:"-"`
}

// DefaultAssistant returns the built-in persona.
func DefaultAssistant() Assistant {
	return Assistant{
		Model:              "gpt-4o-realtime-preview-2024-12-17",
		Voice:              "alloy",
		TranscriptionModel: "whisper-1",
		PromptFile:         "system_prompt.md",
		Greeting:           DefaultGreeting,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadAssistant reads the persona file at path. A missing file yields the
// defaults. The prompt file, if relative, is resolved against the directory
// of path and falls back to DefaultInstructions when unreadable.
func LoadAssistant(path string) (Assistant, error) {
	a := DefaultAssistant()
	baseDir := "."

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Assistant{}, fmt.Errorf("config: open %q: %w", path, err)
	default:
		defer f.Close()
		a, err = LoadAssistantFromReader(f)
		if err != nil {
			return Assistant{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
		baseDir = filepath.Dir(path)
	}

	prompt := a.PromptFile
	if prompt != "" && !filepath.IsAbs(prompt) {
		prompt = filepath.Join(baseDir, prompt)
	}
	a.Instructions = LoadInstructions(prompt)
	return a, nil
}

// LoadAssistantFromReader decodes YAML over the defaults and validates it.
func LoadAssistantFromReader(r io.Reader) (Assistant, error) {
	a := DefaultAssistant()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return Assistant{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if a.Greeting == "" {
		a.Greeting = DefaultGreeting
	}
	if err := validate.Struct(a); err != nil {
		return Assistant{}, fmt.Errorf("config: invalid assistant: %w", err)
	}
	return a, nil
}

// LoadInstructions reads a markdown prompt file, returning DefaultInstructions
// if path is empty, unreadable, or blank.
func LoadInstructions(path string) string {
	if path == "" {
		return DefaultInstructions
	}
	b, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(b)) == "" {
		return DefaultInstructions
	}
	return string(b)
}

// Validate runs struct-tag validation on v. Exposed so other packages share
// one validator instance.
func Validate(v any) error {
	return validate.Struct(v)
}
