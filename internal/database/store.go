// Package database persists user records and diagnostic test history.
package database

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"go.uber.org/zap"
)

// Store is the durable per-user record store.
//
// GetUser never fails: a missing or unreadable record is replaced with a
// fresh default one. Write failures are returned to the caller.
type Store interface {
	GetUser(ctx context.Context, userID int64) *models.User
	SaveUser(ctx context.Context, user *models.User) error
	MarkTestCompleted(ctx context.Context, userID int64) error
	HasCompletedTest(ctx context.Context, userID int64) bool
	AppendTestResult(ctx context.Context, userID int64, result models.TestResult) error
	TestHistory(ctx context.Context, userID int64) ([]models.TestResult, error)
	Close() error
}

// Open returns the store for driver: "file" (JSON documents under dataDir),
// "sqlite3" or "postgres". An empty sqlite3 DSN means dataDir/engbot.db.
func Open(driver, dsn, dataDir string, log *zap.Logger) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(dataDir, log), nil
	case "sqlite3":
		if dsn == "" {
			dsn = filepath.Join(dataDir, "engbot.db")
		}
		fallthrough
	case "postgres":
		db, err := Connect(driver, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, log), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
