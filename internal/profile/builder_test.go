package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeHistory struct {
	results []models.TestResult
	err     error
}

func (f fakeHistory) TestHistory(context.Context, int64) ([]models.TestResult, error) {
	return f.results, f.err
}

func TestBuildNoHistory(t *testing.T) {
	b := NewBuilder(fakeHistory{}, zap.NewNop())
	assert.Equal(t, NoData, b.Build(context.Background(), 1))
}

func TestBuildReadFailureDegrades(t *testing.T) {
	b := NewBuilder(fakeHistory{err: errors.New("disk on fire")}, zap.NewNop())
	assert.Equal(t, NoData, b.Build(context.Background(), 1))
}

func TestBuildUsesLatestResult(t *testing.T) {
	old := models.TestResult{CorrectAnswers: 1, TotalQuestions: 25, Percentage: 4}
	latest := models.TestResult{
		CorrectAnswers: 20,
		TotalQuestions: 25,
		Percentage:     80,
		Weaknesses:     []string{"Modals", "Articles"},
		Answers: []models.TestAnswer{
			{QuestionID: 1, CorrectAnswer: "a", IsCorrect: false, Section: "grammar", Topic: "Modals"},
			{QuestionID: 2, CorrectAnswer: "c", IsCorrect: false, Section: "grammar", Topic: "Modals"},
			{QuestionID: 3, CorrectAnswer: "b", IsCorrect: true, Section: "grammar", Topic: "Articles"},
			{QuestionID: 4, CorrectAnswer: "d", IsCorrect: false, Section: "reading"},
		},
	}
	b := NewBuilder(fakeHistory{results: []models.TestResult{old, latest}}, zap.NewNop())

	got := b.Build(context.Background(), 1)
	want := "Результат последнего теста: 20/25 (80.0%)\n" +
		"Слабые темы: Modals, Articles\n" +
		"Ошибки по теме Modals: a, c\n" +
		"Ошибки по теме reading: d"
	assert.Equal(t, want, got)
}
