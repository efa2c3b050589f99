package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SQLStore keeps user records and test history in a SQL database.
// The user record is stored as a JSON document next to its indexed flag.
type SQLStore struct {
	db  *sqlx.DB
	log *zap.Logger
	now func() time.Time
}

// NewSQLStore wraps an open connection.
func NewSQLStore(db *sqlx.DB, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{db: db, log: log.Named("store"), now: time.Now}
}

// GetUser returns the user record or a fresh default one.
func (s *SQLStore) GetUser(ctx context.Context, userID int64) *models.User {
	var document string
	err := s.db.GetContext(ctx, &document,
		s.db.Rebind("SELECT document FROM user_records WHERE user_id = ?"), userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("read user record", zap.Int64("user_id", userID), zap.Error(err))
		}
		return models.NewUser(userID, s.now())
	}

	var user models.User
	if err := json.Unmarshal([]byte(document), &user); err != nil {
		s.log.Warn("corrupt user record, using default", zap.Int64("user_id", userID), zap.Error(err))
		return models.NewUser(userID, s.now())
	}
	if user.TestResults == nil {
		user.TestResults = []models.TestResult{}
	}
	return &user
}

// SaveUser inserts or replaces the user record.
func (s *SQLStore) SaveUser(ctx context.Context, user *models.User) error {
	document, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user %d: %w", user.UserID, err)
	}

	query := s.db.Rebind(`
		INSERT INTO user_records (user_id, has_completed_test, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			has_completed_test = excluded.has_completed_test,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, user.UserID, user.HasCompletedTest, string(document), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.UserID, err)
	}
	return nil
}

// MarkTestCompleted sets the completion flag on the stored record.
func (s *SQLStore) MarkTestCompleted(ctx context.Context, userID int64) error {
	user := s.GetUser(ctx, userID)
	user.MarkTestCompleted(s.now())
	return s.SaveUser(ctx, user)
}

// HasCompletedTest reads the indexed completion flag.
func (s *SQLStore) HasCompletedTest(ctx context.Context, userID int64) bool {
	var done bool
	err := s.db.GetContext(ctx, &done,
		s.db.Rebind("SELECT has_completed_test FROM user_records WHERE user_id = ?"), userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("read completion flag", zap.Int64("user_id", userID), zap.Error(err))
	}
	return done
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
