package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"go.uber.org/zap"
)

// FileStore keeps one JSON document per user under <dir>/users and one JSON
// array of test results per user under <dir>/tests.
type FileStore struct {
	dir   string
	locks *session.Locker
	log   *zap.Logger
	now   func() time.Time
}

// NewFileStore creates a store rooted at dir. Directories are created on
// first write.
func NewFileStore(dir string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		dir:   dir,
		locks: session.NewLocker(),
		log:   log.Named("store"),
		now:   time.Now,
	}
}

func (s *FileStore) userPath(userID int64) string {
	return filepath.Join(s.dir, "users", fmt.Sprintf("%d.json", userID))
}

func (s *FileStore) historyPath(userID int64) string {
	return filepath.Join(s.dir, "tests", fmt.Sprintf("user_%d.json", userID))
}

// GetUser loads the user record, repairing it to a default on any read error.
func (s *FileStore) GetUser(_ context.Context, userID int64) *models.User {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.readUser(userID)
}

func (s *FileStore) readUser(userID int64) *models.User {
	data, err := os.ReadFile(s.userPath(userID))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("read user record", zap.Int64("user_id", userID), zap.Error(err))
		}
		return models.NewUser(userID, s.now())
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.log.Warn("corrupt user record, using default", zap.Int64("user_id", userID), zap.Error(err))
		return models.NewUser(userID, s.now())
	}
	if user.UserID == 0 {
		user.UserID = userID
	}
	if user.TestResults == nil {
		user.TestResults = []models.TestResult{}
	}
	return &user
}

// SaveUser replaces the user document atomically.
func (s *FileStore) SaveUser(_ context.Context, user *models.User) error {
	unlock := s.locks.Lock(user.UserID)
	defer unlock()
	return s.writeUser(user)
}

func (s *FileStore) writeUser(user *models.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user %d: %w", user.UserID, err)
	}
	return writeFileAtomic(s.userPath(user.UserID), data)
}

// MarkTestCompleted sets the completion flag on the stored record.
func (s *FileStore) MarkTestCompleted(_ context.Context, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	user := s.readUser(userID)
	user.MarkTestCompleted(s.now())
	return s.writeUser(user)
}

// HasCompletedTest reports the stored completion flag.
func (s *FileStore) HasCompletedTest(ctx context.Context, userID int64) bool {
	return s.GetUser(ctx, userID).HasCompletedTest
}

// AppendTestResult appends result to the user's history file.
func (s *FileStore) AppendTestResult(_ context.Context, userID int64, result models.TestResult) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	history, err := s.readHistory(userID)
	if err != nil {
		// the unreadable file is kept next to the new one
		path := s.historyPath(userID)
		aside := fmt.Sprintf("%s.corrupt-%s", path, s.now().UTC().Format("20060102T150405"))
		if rerr := os.Rename(path, aside); rerr != nil {
			return fmt.Errorf("failed to move aside unreadable test history for %d: %w", userID, errors.Join(err, rerr))
		}
		s.log.Warn("unreadable test history moved aside, starting over",
			zap.Int64("user_id", userID), zap.String("path", aside), zap.Error(err))
		history = nil
	}
	history = append(history, result)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode test history for %d: %w", userID, err)
	}
	return writeFileAtomic(s.historyPath(userID), data)
}

// TestHistory returns the stored results, oldest first. A missing file is
// an empty history.
func (s *FileStore) TestHistory(_ context.Context, userID int64) ([]models.TestResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.readHistory(userID)
}

func (s *FileStore) readHistory(userID int64) ([]models.TestResult, error) {
	data, err := os.ReadFile(s.historyPath(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read test history: %w", err)
	}
	var history []models.TestResult
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse test history: %w", err)
	}
	return history, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
