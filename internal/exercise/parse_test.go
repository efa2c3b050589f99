package exercise

import (
	"errors"
	"testing"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBatch = `[
 {"question":"q1","options":["a","b","c","d"],"correct_answer":"A","explanation":"e1"},
 {"question":"q2","options":["a","b","c","d"],"correct_answer":"b","explanation":"e2"},
 {"question":"q3","options":["a","b","c","d"],"correct_answer":"C) third","explanation":"e3"},
 {"question":"q4","options":["a","b","c","d"],"correct_answer":" d ","explanation":"e4"},
 {"question":"q5","options":["a","b","c","d"],"correct_answer":"(B)","explanation":"e5"}
]`

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare array", validBatch},
		{"fenced", "```json\n" + validBatch + "\n```"},
		{"fenced without language", "```\n" + validBatch + "\n```"},
		{"prose around", "Вот упражнения:\n" + validBatch + "\nУдачи!"},
		{"exercises object", `{"exercises": ` + validBatch + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, models.SubjectGrammar, "0123456789")
			require.NoError(t, err)
			require.Len(t, res.Items, 5)
			assert.Empty(t, res.Skipped)

			letters := make([]string, 0, 5)
			for _, it := range res.Items {
				letters = append(letters, it.CorrectAnswer)
				assert.Len(t, it.Options, 4)
				assert.Equal(t, models.SubjectGrammar, it.Subject)
			}
			assert.Equal(t, []string{"A", "B", "C", "D", "B"}, letters)
			assert.Equal(t, "grammar_012345_0", res.Items[0].ID)
		})
	}
}

func TestParseSkipsBrokenItems(t *testing.T) {
	raw := `[
	 {"question":"three options","options":["a","b","c"],"correct_answer":"A","explanation":"e"},
	 {"question":"bad letter","options":["a","b","c","d"],"correct_answer":"Z","explanation":"e"},
	 {"question":"no explanation","options":["a","b","c","d"],"correct_answer":"A"},
	 {"question":"","options":["a","b","c","d"],"correct_answer":"A","explanation":"e"},
	 {"question":"ok","options":["a","b","c","d"],"correct_answer":"d","explanation":"e"},
	 "not an object"
	]`
	res, err := Parse(raw, models.SubjectVocabulary, "tok-123456")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ok", res.Items[0].Question)
	assert.Equal(t, "D", res.Items[0].CorrectAnswer)
	assert.Len(t, res.Skipped, 5)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "   ", ErrEmptyOutput},
		{"prose only", "Sorry, I cannot help with that.", ErrMalformedOutput},
		{"broken array", "[{\"question\": ]", ErrMalformedOutput},
		{"wrong object", `{"items": []}`, ErrMalformedOutput},
		{"scalar", `42`, ErrMalformedOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, models.SubjectGrammar, "token")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNormalizeLetter(t *testing.T) {
	tests := map[string]string{
		"A":       "A",
		"b":       "B",
		" c) ":    "C",
		"(D)":     "D",
		"E":       "",
		"":        "",
		"1":       "",
		"BC":      "B",
		"xyz d a": "D",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLetter(in), "input %q", in)
	}
}

func TestFallbackBatches(t *testing.T) {
	for _, subject := range []models.Subject{models.SubjectVocabulary, models.SubjectGrammar} {
		items := Fallback(subject, "abcdef123")
		require.Len(t, items, BatchSize)
		for i, it := range items {
			assert.Len(t, it.Options, 4)
			assert.Contains(t, models.OptionLetters, it.CorrectAnswer)
			assert.Equal(t, subject, it.Subject)
			assert.Equal(t, itemID(subject, "abcdef123", i), it.ID)
		}
	}

	// callers get copies
	a := Fallback(models.SubjectGrammar, "t")
	a[0].Options[0] = "changed"
	assert.NotEqual(t, "changed", Fallback(models.SubjectGrammar, "t")[0].Options[0])
}
