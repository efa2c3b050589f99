// Package profile summarizes a user's test history into a short
// personalization context for content generation.
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"go.uber.org/zap"
)

// NoData is returned when nothing is known about the user.
const NoData = "Нет данных о пользователе"

// HistoryReader is the part of the record store the builder needs.
type HistoryReader interface {
	TestHistory(ctx context.Context, userID int64) ([]models.TestResult, error)
}

// Builder derives context from the latest diagnostic result.
type Builder struct {
	history HistoryReader
	log     *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(history HistoryReader, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{history: history, log: log.Named("profile")}
}

// Build returns the context text for userID. Read failures degrade to NoData.
func (b *Builder) Build(ctx context.Context, userID int64) string {
	history, err := b.history.TestHistory(ctx, userID)
	if err != nil {
		b.log.Warn("load test history", zap.Int64("user_id", userID), zap.Error(err))
		return NoData
	}
	if len(history) == 0 {
		return NoData
	}
	return Summarize(history[len(history)-1])
}

// Summarize renders one result as context lines: score, weak topics and the
// correct labels of missed questions per topic.
func Summarize(latest models.TestResult) string {
	lines := []string{fmt.Sprintf("Результат последнего теста: %d/%d (%.1f%%)",
		latest.CorrectAnswers, latest.TotalQuestions, latest.Percentage)}

	if len(latest.Weaknesses) > 0 {
		lines = append(lines, "Слабые темы: "+strings.Join(latest.Weaknesses, ", "))
	}

	patterns := make(map[string][]string)
	var order []string
	for _, a := range latest.Answers {
		if a.IsCorrect {
			continue
		}
		topic := a.Topic
		if topic == "" {
			topic = a.Section
		}
		if topic == "" {
			topic = "unknown"
		}
		if _, ok := patterns[topic]; !ok {
			order = append(order, topic)
		}
		patterns[topic] = append(patterns[topic], a.CorrectAnswer)
	}
	sort.Strings(order)
	for _, topic := range order {
		lines = append(lines, fmt.Sprintf("Ошибки по теме %s: %s", topic, strings.Join(patterns[topic], ", ")))
	}
	return strings.Join(lines, "\n")
}
