// Package bank loads the fixed diagnostic question bank.
package bank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
)

//go:embed fixed_test.json
var embeddedBank []byte

// DefaultName is the title of the bundled test.
const DefaultName = "Пробный вариант ЕГЭ по английскому языку"

// ErrInvalidBank is wrapped by every validation failure.
var ErrInvalidBank = errors.New("invalid question bank")

// Bank is the ordered, read-only set of diagnostic questions.
type Bank struct {
	Name      string            `json:"test_name"`
	Total     int               `json:"total_questions"`
	Questions []models.TestItem `json:"questions"`
}

// Default returns the bundled 25-question bank.
func Default() *Bank {
	b, err := decodeJSON(embeddedBank)
	if err != nil {
		// bundled file is validated by tests
		panic(err)
	}
	return b
}

// Load reads a bank from a .json, .csv or .xlsx file and validates it.
func Load(path string) (*Bank, error) {
	var (
		b   *Bank
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read question bank: %w", err)
		}
		b, err = decodeJSON(data)
	case ".csv", ".xlsx":
		cfg := DefaultImportConfig()
		cfg.FilePath = path
		var res *ImportResult
		res, err = ImportQuestions(cfg)
		if err == nil {
			if len(res.Errors) > 0 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidBank, strings.Join(res.Errors, "; "))
			}
			b = &Bank{Name: DefaultName, Questions: res.Questions}
		}
	default:
		return nil, fmt.Errorf("unsupported question bank format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	b.Total = len(b.Questions)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeJSON(data []byte) (*Bank, error) {
	var b Bank
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if b.Name == "" {
		b.Name = DefaultName
	}
	b.Total = len(b.Questions)
	return &b, nil
}

// Validate checks ids, sections, options and correct labels.
func (b *Bank) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	seen := make(map[int]bool, len(b.Questions))
	for i, q := range b.Questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: question %d: duplicate id %d", ErrInvalidBank, i+1, q.ID)
		}
		seen[q.ID] = true

		if !q.Section.Valid() {
			return fmt.Errorf("%w: question %d: unknown section %q", ErrInvalidBank, q.ID, q.Section)
		}
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d: empty text", ErrInvalidBank, q.ID)
		}
		labels := q.Labels()
		if len(labels) < 2 || len(labels) != len(q.Options) {
			return fmt.Errorf("%w: question %d: options must be labeled a) to d)", ErrInvalidBank, q.ID)
		}
		found := false
		for _, l := range labels {
			if l == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: question %d: correct answer %q is not an option", ErrInvalidBank, q.ID, q.CorrectAnswer)
		}
	}
	return nil
}

// Items returns a deep copy of the questions.
func (b *Bank) Items() []models.TestItem {
	out := make([]models.TestItem, len(b.Questions))
	for i, q := range b.Questions {
		out[i] = q.Clone()
	}
	return out
}

// SectionCounts returns the number of questions per section.
func (b *Bank) SectionCounts() map[models.Section]int {
	counts := make(map[models.Section]int)
	for _, q := range b.Questions {
		counts[q.Section]++
	}
	return counts
}
