package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

const fallbackSystemPrompt = "You are a helpful assistant."

// Prompts maps a prompt type to its system prompt text.
type Prompts map[string]string

// DefaultPrompts returns the bundled prompt set.
func DefaultPrompts() Prompts {
	p, err := ParsePrompts(defaultPrompts)
	if err != nil {
		// bundled file is validated by tests
		panic(err)
	}
	return p
}

// ParsePrompts decodes a YAML mapping of prompt type to text.
func ParsePrompts(data []byte) (Prompts, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	p := make(Prompts, len(raw))
	for k, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			p[k] = v
		}
	}
	return p, nil
}

// LoadPrompts reads prompts from path on top of the bundled set.
// An empty path returns the bundled set.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	override, err := ParsePrompts(data)
	if err != nil {
		return nil, err
	}
	for k, v := range override {
		p[k] = v
	}
	return p, nil
}

// System returns the system prompt for promptType, falling back to the
// tutor prompt and then to a generic assistant prompt.
func (p Prompts) System(promptType string) string {
	if s, ok := p[promptType]; ok {
		return s
	}
	if s, ok := p[PromptTutor]; ok {
		return s
	}
	return fallbackSystemPrompt
}
