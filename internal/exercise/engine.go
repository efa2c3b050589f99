// Package exercise runs generated multiple-choice practice sessions.
package exercise

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/ai"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchSize is the number of items in every session.
const BatchSize = 5

// ShortTokenLen is the token prefix length carried in callbacks.
const ShortTokenLen = 6

const generationTemperature = 0.9

var (
	ErrNoSession      = errors.New("no active exercise session")
	ErrStaleSession   = errors.New("stale exercise session")
	ErrUnknownSubject = errors.New("unknown exercise subject")
)

// SubmitStatus is the outcome of an answer submission.
type SubmitStatus int

const (
	Accepted SubmitStatus = iota
	Duplicate
	OutOfRange
)

func (s SubmitStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case OutOfRange:
		return "out_of_range"
	}
	return fmt.Sprintf("SubmitStatus(%d)", int(s))
}

// Level is the qualitative tier of a finished session.
type Level string

const (
	LevelExcellent        Level = "excellent"
	LevelGood             Level = "good"
	LevelFair             Level = "fair"
	LevelNeedsImprovement Level = "needs improvement"
)

// LevelFor maps a percentage to its tier.
func LevelFor(percentage float64) Level {
	switch {
	case percentage >= 80:
		return LevelExcellent
	case percentage >= 60:
		return LevelGood
	case percentage >= 40:
		return LevelFair
	default:
		return LevelNeedsImprovement
	}
}

// ContextBuilder produces personalization text for a user.
type ContextBuilder interface {
	Build(ctx context.Context, userID int64) string
}

// Session is the per-user exercise state.
type Session struct {
	Token     string
	Subject   models.Subject
	Items     []models.ExerciseItem
	Answers   map[int]string
	Cursor    int
	Fallback  bool
	StartedAt time.Time
}

func (s *Session) clone() Session {
	out := *s
	out.Items = append([]models.ExerciseItem(nil), s.Items...)
	out.Answers = make(map[int]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return out
}

// Batch is what StartSession hands back to the caller.
type Batch struct {
	Token    string
	Items    []models.ExerciseItem
	Fallback bool
}

// ItemResult is the per-item part of Results.
type ItemResult struct {
	Item       models.ExerciseItem
	UserAnswer string
	IsCorrect  bool
}

// Results summarizes a finished session.
type Results struct {
	Subject    models.Subject
	Total      int
	Correct    int
	Percentage float64
	Level      Level
	Items      []ItemResult
}

// Engine owns exercise sessions for all users.
type Engine struct {
	gen      ai.Generator
	profile  ContextBuilder
	sessions *session.Store[*Session]
	log      *zap.Logger
	newToken func() string
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTokenSource overrides session token generation.
func WithTokenSource(fn func() string) Option {
	return func(e *Engine) { e.newToken = fn }
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// NewEngine creates an Engine. profile may be nil.
func NewEngine(gen ai.Generator, profile ContextBuilder, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		gen:      gen,
		profile:  profile,
		sessions: session.NewStore[*Session](),
		log:      log.Named("exercise"),
		newToken: func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession generates a new batch for subject and replaces any previous
// session of the user. Unusable generator output falls back to the built-in
// batch, so the only error is an unknown subject.
func (e *Engine) StartSession(ctx context.Context, userID int64, subject models.Subject) (*Batch, error) {
	if !subject.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}

	token := e.newToken()
	items, err := e.generate(ctx, userID, subject, token)
	fallback := false
	if err != nil {
		e.log.Warn("using fallback exercises",
			zap.Int64("user_id", userID),
			zap.String("subject", string(subject)),
			zap.Error(err))
		items = Fallback(subject, token)
		fallback = true
	}

	s := &Session{
		Token:     token,
		Subject:   subject,
		Items:     items,
		Answers:   make(map[int]string),
		Fallback:  fallback,
		StartedAt: e.now(),
	}
	e.sessions.Put(userID, s)

	e.log.Info("exercise session started",
		zap.Int64("user_id", userID),
		zap.String("subject", string(subject)),
		zap.String("session", shortToken(token)),
		zap.Bool("fallback", fallback))

	return &Batch{
		Token:    token,
		Items:    append([]models.ExerciseItem(nil), items...),
		Fallback: fallback,
	}, nil
}

func (e *Engine) generate(ctx context.Context, userID int64, subject models.Subject, token string) ([]models.ExerciseItem, error) {
	userContext := profileNoData
	if e.profile != nil {
		if c := e.profile.Build(ctx, userID); c != "" {
			userContext = c
		}
	}

	raw, err := e.gen.Generate(ctx, ai.Request{
		PromptType:        ai.PromptTutor,
		UserMessage:       buildPrompt(subject, userContext),
		AdditionalContext: fmt.Sprintf("Ответ строго в формате JSON массива из %d объектов без комментариев или пояснений. nonce=%s ts=%s", BatchSize, uuid.NewString()[:8], e.now().UTC().Format(time.RFC3339)),
		Temperature:       generationTemperature,
		MaxTokens:         ai.DefaultMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	res, err := Parse(raw, subject, token)
	if err != nil {
		return nil, err
	}
	for _, reason := range res.Skipped {
		e.log.Debug("skipped generated item", zap.Int64("user_id", userID), zap.String("reason", reason))
	}
	if len(res.Items) < BatchSize {
		return nil, fmt.Errorf("%w: %d valid items, need %d", ErrMalformedOutput, len(res.Items), BatchSize)
	}
	return res.Items[:BatchSize], nil
}

const profileNoData = "нет данных"

func buildPrompt(subject models.Subject, userContext string) string {
	return fmt.Sprintf(`Создай %d упражнений по %s для подготовки к ЕГЭ.

Контекст пользователя:
%s

Верни ТОЛЬКО JSON-массив из %d объектов без текста вне JSON. Каждый объект:
{
  "question": "Короткий вопрос или предложение с пропуском (без нумерации и без a)/b)/c)/d) в самом вопросе)",
  "options": ["вариант 1", "вариант 2", "вариант 3", "вариант 4"],
  "correct_answer": "A|B|C|D",
  "explanation": "Краткое объяснение"
}

Требования:
- options ровно из 4 строк;
- correct_answer: одна буква из A,B,C,D;
- не добавляй номера 1.,2. и не встраивай метки a),b),c),d) в текст вопроса;
- никаких комментариев вне JSON.`, BatchSize, subject, userContext, BatchSize)
}

// Submit records letter for the item at index. token may be the full
// session token or its short prefix. A second answer for the same index in
// the same session is reported as Duplicate and ignored.
func (e *Engine) Submit(userID int64, token string, index int, letter string) (SubmitStatus, error) {
	var (
		status SubmitStatus
		err    error
	)
	e.sessions.With(userID, func(s *Session, ok bool) (*Session, bool) {
		if !ok {
			err = ErrNoSession
			return s, false
		}
		if !matchToken(s.Token, token) {
			err = ErrStaleSession
			return s, true
		}
		if index < 0 || index >= len(s.Items) {
			status = OutOfRange
			return s, true
		}
		if _, done := s.Answers[index]; done {
			status = Duplicate
			return s, true
		}
		s.Answers[index] = strings.ToUpper(strings.TrimSpace(letter))
		status = Accepted
		return s, true
	})
	if err == nil && status != Accepted {
		e.log.Info("answer ignored",
			zap.Int64("user_id", userID),
			zap.Int("index", index),
			zap.Stringer("status", status))
	}
	return status, err
}

// Advance moves past the item at index, which the caller takes from the
// pressed button. It returns the next item and its index, or done=true when
// index was the last item. The internal cursor only ever moves forward.
func (e *Engine) Advance(userID int64, index int) (next models.ExerciseItem, nextIndex int, done bool, err error) {
	e.sessions.With(userID, func(s *Session, ok bool) (*Session, bool) {
		if !ok {
			err = ErrNoSession
			return s, false
		}
		nextIndex = index + 1
		if nextIndex > s.Cursor {
			s.Cursor = min(nextIndex, len(s.Items))
		}
		if nextIndex < 0 || nextIndex >= len(s.Items) {
			done = true
			return s, true
		}
		next = s.Items[nextIndex]
		return s, true
	})
	return next, nextIndex, done, err
}

// Finish scores the session and removes it.
func (e *Engine) Finish(userID int64) (*Results, error) {
	var snapshot *Session
	e.sessions.With(userID, func(s *Session, ok bool) (*Session, bool) {
		if ok {
			snapshot = s
		}
		return nil, false
	})
	if snapshot == nil {
		return nil, ErrNoSession
	}

	res := &Results{
		Subject: snapshot.Subject,
		Total:   len(snapshot.Items),
		Items:   make([]ItemResult, 0, len(snapshot.Items)),
	}
	for i, item := range snapshot.Items {
		answer := snapshot.Answers[i]
		correct := strings.EqualFold(answer, item.CorrectAnswer)
		if correct {
			res.Correct++
		}
		res.Items = append(res.Items, ItemResult{Item: item, UserAnswer: answer, IsCorrect: correct})
	}
	if res.Total > 0 {
		res.Percentage = float64(res.Correct) / float64(res.Total) * 100
	}
	res.Level = LevelFor(res.Percentage)

	e.log.Info("exercise session finished",
		zap.Int64("user_id", userID),
		zap.String("subject", string(res.Subject)),
		zap.Int("correct", res.Correct),
		zap.Int("total", res.Total))
	return res, nil
}

// Reset drops the user's session and reports whether one existed.
func (e *Engine) Reset(userID int64) bool {
	return e.sessions.Delete(userID)
}

// Active reports whether the user has a non-empty session.
func (e *Engine) Active(userID int64) bool {
	s, ok := e.sessions.Get(userID)
	return ok && len(s.Items) > 0
}

// Snapshot returns a copy of the user's session.
func (e *Engine) Snapshot(userID int64) (Session, bool) {
	var (
		out   Session
		found bool
	)
	e.sessions.With(userID, func(s *Session, ok bool) (*Session, bool) {
		if ok {
			out, found = s.clone(), true
		}
		return s, ok
	})
	return out, found
}

// ShortToken returns the callback prefix of the user's current token, or "".
func (e *Engine) ShortToken(userID int64) string {
	s, ok := e.Snapshot(userID)
	if !ok {
		return ""
	}
	return shortToken(s.Token)
}

// Sweep drops sessions idle for longer than idle.
func (e *Engine) Sweep(idle time.Duration) int {
	return e.sessions.Sweep(idle)
}

func shortToken(token string) string {
	if len(token) <= ShortTokenLen {
		return token
	}
	return token[:ShortTokenLen]
}

func matchToken(current, got string) bool {
	if current == "" || got == "" {
		return false
	}
	if got == current {
		return true
	}
	return len(got) >= ShortTokenLen && strings.HasPrefix(current, got)
}
