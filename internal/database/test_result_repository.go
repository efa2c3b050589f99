package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
)

// AppendTestResult inserts a history row for the user.
func (s *SQLStore) AppendTestResult(ctx context.Context, userID int64, result models.TestResult) error {
	document, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode test result: %w", err)
	}

	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	query := s.db.Rebind(`
		INSERT INTO test_history (user_id, test_id, percentage, document, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query, userID, result.TestID, result.Percentage, string(document), completedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save test result: %w", err)
	}
	return nil
}

// TestHistory returns the user's results, oldest first.
func (s *SQLStore) TestHistory(ctx context.Context, userID int64) ([]models.TestResult, error) {
	var documents []string
	err := s.db.SelectContext(ctx, &documents,
		s.db.Rebind("SELECT document FROM test_history WHERE user_id = ? ORDER BY id"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test results: %w", err)
	}

	history := make([]models.TestResult, 0, len(documents))
	for _, doc := range documents {
		var r models.TestResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("failed to parse test result: %w", err)
		}
		history = append(history, r)
	}
	return history, nil
}
