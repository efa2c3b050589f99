// Package diagnostic runs the fixed placement test and turns its answer
// log into a persisted TestResult.
package diagnostic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"go.uber.org/zap"
)

// Accuracy bands for strengths and weaknesses. Topics between the two
// thresholds are reported as neither.
const (
	StrengthThreshold = 0.7
	WeaknessThreshold = 0.6
)

var ErrNoSession = errors.New("no active test session")

// ResultStore persists finished tests. database.Store satisfies it.
type ResultStore interface {
	GetUser(ctx context.Context, userID int64) *models.User
	SaveUser(ctx context.Context, user *models.User) error
	MarkTestCompleted(ctx context.Context, userID int64) error
	AppendTestResult(ctx context.Context, userID int64, result models.TestResult) error
}

// Session is the per-user test state.
type Session struct {
	Items     []models.TestItem
	Cursor    int
	Score     int
	Log       []models.TestAnswer
	StartedAt time.Time
	shownAt   time.Time
}

// Engine owns test sessions for all users.
type Engine struct {
	items    []models.TestItem
	store    ResultStore
	sessions *session.Store[*Session]
	log      *zap.Logger
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// NewEngine creates an Engine over the given question bank. store may be nil,
// in which case results are only returned.
func NewEngine(items []models.TestItem, store ResultStore, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		items:    items,
		store:    store,
		sessions: session.NewStore[*Session](),
		log:      log.Named("diagnostic"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Total is the number of questions in the bank.
func (e *Engine) Total() int {
	return len(e.items)
}

// SectionCounts returns how many bank questions belong to each section.
func (e *Engine) SectionCounts() map[models.Section]int {
	counts := make(map[models.Section]int)
	for _, it := range e.items {
		counts[it.Section]++
	}
	return counts
}

// Start begins a new test for the user, discarding any previous one. It
// reports false and creates no session when the bank is empty.
func (e *Engine) Start(userID int64) bool {
	if len(e.items) == 0 {
		e.log.Warn("test not started: question bank is empty", zap.Int64("user_id", userID))
		return false
	}
	items := make([]models.TestItem, len(e.items))
	for i, it := range e.items {
		items[i] = it.Clone()
	}
	now := e.now()
	e.sessions.Put(userID, &Session{
		Items:     items,
		Log:       make([]models.TestAnswer, 0, len(items)),
		StartedAt: now,
		shownAt:   now,
	})
	e.log.Info("test started", zap.Int64("user_id", userID), zap.Int("questions", len(items)))
	return true
}

// Current returns the question at the cursor and its zero-based index.
// ok is false when there is no session or every question is answered.
func (e *Engine) Current(userID int64) (item models.TestItem, index int, ok bool) {
	e.sessions.With(userID, func(s *Session, exists bool) (*Session, bool) {
		if !exists {
			return s, false
		}
		if s.Cursor < len(s.Items) {
			item, index, ok = s.Items[s.Cursor].Clone(), s.Cursor, true
		}
		return s, true
	})
	return item, index, ok
}

// ProcessAnswer records label for the current question and moves on.
// Without a session or past the last question it does nothing.
func (e *Engine) ProcessAnswer(userID int64, label string) bool {
	recorded := false
	e.sessions.With(userID, func(s *Session, exists bool) (*Session, bool) {
		if !exists {
			return s, false
		}
		recorded = e.record(s, label)
		return s, true
	})
	return recorded
}

// AnswerAt records label only if index is still the current question.
// A repeated press on an already answered question is ignored.
func (e *Engine) AnswerAt(userID int64, index int, label string) bool {
	recorded := false
	e.sessions.With(userID, func(s *Session, exists bool) (*Session, bool) {
		if !exists {
			return s, false
		}
		if index != s.Cursor {
			return s, true
		}
		recorded = e.record(s, label)
		return s, true
	})
	if !recorded {
		e.log.Info("test answer ignored", zap.Int64("user_id", userID), zap.Int("index", index))
	}
	return recorded
}

func (e *Engine) record(s *Session, label string) bool {
	if s.Cursor >= len(s.Items) {
		return false
	}
	q := s.Items[s.Cursor]
	label = strings.ToLower(strings.TrimSpace(label))
	correct := label != "" && strings.EqualFold(label, q.CorrectAnswer)

	now := e.now()
	s.Log = append(s.Log, models.TestAnswer{
		QuestionID:    q.ID,
		UserAnswer:    label,
		CorrectAnswer: q.CorrectAnswer,
		IsCorrect:     correct,
		TimeSpent:     now.Sub(s.shownAt).Seconds(),
		Section:       string(q.Section),
		Topic:         InferTopic(q.Section, q.Question, q.Explanation, q.Options),
	})
	if correct {
		s.Score++
	}
	s.Cursor++
	s.shownAt = now
	return true
}

// IsComplete reports whether the user has answered every question.
func (e *Engine) IsComplete(userID int64) bool {
	complete := false
	e.sessions.With(userID, func(s *Session, exists bool) (*Session, bool) {
		if exists {
			complete = s.Cursor >= len(s.Items)
		}
		return s, exists
	})
	return complete
}

// Active reports whether the user has a test in progress.
func (e *Engine) Active(userID int64) bool {
	return e.sessions.Has(userID)
}

// Progress returns the cursor and the number of questions.
func (e *Engine) Progress(userID int64) (cursor, total int, ok bool) {
	e.sessions.With(userID, func(s *Session, exists bool) (*Session, bool) {
		if exists {
			cursor, total, ok = s.Cursor, len(s.Items), true
		}
		return s, exists
	})
	return cursor, total, ok
}

// Cancel drops the session without producing results.
func (e *Engine) Cancel(userID int64) bool {
	cancelled := e.sessions.Delete(userID)
	if cancelled {
		e.log.Info("test cancelled", zap.Int64("user_id", userID))
	}
	return cancelled
}

// Sweep drops sessions idle for longer than idle.
func (e *Engine) Sweep(idle time.Duration) int {
	return e.sessions.Sweep(idle)
}

// Finish scores the session, persists the result and removes the session.
// Persistence failures are logged; the result is returned either way.
func (e *Engine) Finish(ctx context.Context, userID int64) (*models.TestResult, error) {
	var s *Session
	e.sessions.With(userID, func(cur *Session, exists bool) (*Session, bool) {
		if exists {
			s = cur
		}
		return nil, false
	})
	if s == nil {
		return nil, ErrNoSession
	}

	now := e.now()
	result := Score(s.Log, len(s.Items))
	result.TestID = "test_" + now.Format("20060102_150405")
	result.TimeSpent = now.Sub(s.StartedAt).Seconds()
	result.CompletedAt = now

	e.persist(ctx, userID, result, now)

	e.log.Info("test finished",
		zap.Int64("user_id", userID),
		zap.Int("correct", result.CorrectAnswers),
		zap.Int("total", result.TotalQuestions),
		zap.Strings("weaknesses", result.Weaknesses))
	return &result, nil
}

func (e *Engine) persist(ctx context.Context, userID int64, result models.TestResult, now time.Time) {
	if e.store == nil {
		return
	}

	user := e.store.GetUser(ctx, userID)
	user.AddTestResult(result, now)
	if err := e.store.SaveUser(ctx, user); err != nil {
		e.log.Error("failed to save test result on user record", zap.Int64("user_id", userID), zap.Error(err))
		if err := e.store.MarkTestCompleted(ctx, userID); err != nil {
			e.log.Error("failed to mark test completed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	if err := e.store.AppendTestResult(ctx, userID, result); err != nil {
		e.log.Error("failed to append test history", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Score aggregates an answer log over total questions. Topics keep the
// order in which they were first answered.
func Score(answers []models.TestAnswer, total int) models.TestResult {
	res := models.TestResult{
		TotalQuestions: total,
		Answers:        append([]models.TestAnswer(nil), answers...),
		Strengths:      []string{},
		Weaknesses:     []string{},
		SectionStats:   make(map[string]models.TopicStat),
		TopicStats:     make(map[string]models.TopicStat),
	}

	var topics []string
	for _, a := range answers {
		if a.IsCorrect {
			res.CorrectAnswers++
		}

		sec := res.SectionStats[a.Section]
		sec.Total++
		topic := a.Topic
		if topic == "" {
			topic = "Unknown"
		}
		st, seen := res.TopicStats[topic]
		if !seen {
			topics = append(topics, topic)
		}
		st.Total++
		if a.IsCorrect {
			sec.Correct++
			st.Correct++
		}
		res.SectionStats[a.Section] = sec
		res.TopicStats[topic] = st
	}
	res.Score = res.CorrectAnswers
	if total > 0 {
		res.Percentage = float64(res.CorrectAnswers) / float64(total) * 100
	}

	for _, topic := range topics {
		acc := res.TopicStats[topic].Accuracy()
		switch {
		case acc >= StrengthThreshold:
			res.Strengths = append(res.Strengths, topic)
		case acc <= WeaknessThreshold:
			res.Weaknesses = append(res.Weaknesses, topic)
		}
	}
	return res
}
