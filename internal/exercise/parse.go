package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	ErrEmptyOutput     = errors.New("empty generator output")
	ErrMalformedOutput = errors.New("malformed generator output")
)

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	letterPattern = regexp.MustCompile(`[^A-D]`)
)

// itemSchema is the output contract for one generated exercise.
var itemSchema = map[string]any{
	"type":     "object",
	"required": []any{"question", "options", "correct_answer", "explanation"},
	"properties": map[string]any{
		"question": map[string]any{"type": "string", "minLength": 1},
		"options": map[string]any{
			"type":     "array",
			"minItems": 4,
			"maxItems": 4,
			"items":    map[string]any{"type": "string"},
		},
		"correct_answer": map[string]any{"type": "string"},
		"explanation":    map[string]any{"type": "string"},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value, not Go maps
		// with typed slices, so round-trip through encoding/json.
		raw, err := json.Marshal(itemSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://exercise-item.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// ParseResult is the outcome of parsing one generator response.
type ParseResult struct {
	Items   []models.ExerciseItem
	Skipped []string // reasons for rejected elements
}

// Parse extracts exercise items from raw generator text. It accepts a bare
// JSON array or an object with an "exercises" array, optionally wrapped in a
// code fence or surrounded by prose. Elements that break the contract are
// skipped; an unusable response as a whole is an error.
func Parse(raw string, subject models.Subject, token string) (*ParseResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyOutput
	}

	elements, err := extractElements(raw)
	if err != nil {
		return nil, err
	}

	sch, err := schema()
	if err != nil {
		return nil, err
	}

	res := &ParseResult{}
	for i, el := range elements {
		if err := sch.Validate(el); err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		obj := el.(map[string]any)

		letter := NormalizeLetter(obj["correct_answer"].(string))
		if letter == "" {
			res.Skipped = append(res.Skipped, fmt.Sprintf("item %d: unparseable answer %q", i, obj["correct_answer"]))
			continue
		}

		rawOpts := obj["options"].([]any)
		opts := make([]string, len(rawOpts))
		for j, o := range rawOpts {
			opts[j] = strings.TrimSpace(o.(string))
		}

		res.Items = append(res.Items, models.ExerciseItem{
			ID:            itemID(subject, token, len(res.Items)),
			Subject:       subject,
			Question:      strings.TrimSpace(obj["question"].(string)),
			Options:       opts,
			CorrectAnswer: letter,
			Explanation:   strings.TrimSpace(obj["explanation"].(string)),
		})
	}
	return res, nil
}

func extractElements(raw string) ([]any, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		text := raw
		if m := fencePattern.FindStringSubmatch(text); m != nil {
			text = m[1]
		}
		match := arrayPattern.FindString(text)
		if match == "" {
			return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedOutput)
		}
		if err := json.Unmarshal([]byte(match), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["exercises"].([]any); ok {
			return list, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected JSON shape %T", ErrMalformedOutput, doc)
}

// NormalizeLetter upper-cases s, drops everything outside A-D and returns
// the first remaining letter, or "" if none is left.
func NormalizeLetter(s string) string {
	s = letterPattern.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
	if s == "" {
		return ""
	}
	return s[:1]
}
