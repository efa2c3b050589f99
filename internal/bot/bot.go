// Package bot routes Telegram updates to the test, exercise and
// conversation flows and renders their state back to the user.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/ai"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/database"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/diagnostic"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/exercise"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/history"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Mode selects the prompt used for free-form messages.
type Mode string

const (
	ModeTutor Mode = "tutor"
	ModeChat  Mode = "chat"
)

// Deps are the collaborators of a Bot.
type Deps struct {
	Sender    Sender
	Store     database.Store
	Tests     *diagnostic.Engine
	Exercises *exercise.Engine
	Generator ai.Generator
	History   *history.Tracker
	Config    *Config
	Log       *zap.Logger
}

// Bot represents the Telegram bot application
type Bot struct {
	api       Sender
	store     database.Store
	tests     *diagnostic.Engine
	exercises *exercise.Engine
	gen       ai.Generator
	history   *history.Tracker
	modes     *session.Store[Mode]
	locks     *session.Locker
	config    *Config
	log       *zap.Logger
	now       func() time.Time
	inflight  sync.WaitGroup
}

// New creates a bot from its dependencies
func New(d Deps) (*Bot, error) {
	switch {
	case d.Sender == nil:
		return nil, errors.New("bot: sender is required")
	case d.Store == nil:
		return nil, errors.New("bot: store is required")
	case d.Tests == nil || d.Exercises == nil:
		return nil, errors.New("bot: test and exercise engines are required")
	case d.Generator == nil:
		return nil, errors.New("bot: generator is required")
	}
	if d.Config == nil {
		d.Config = DefaultConfig()
	}
	if d.History == nil {
		d.History = history.NewTracker(d.Config.HistoryLimit)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Bot{
		api:       d.Sender,
		store:     d.Store,
		tests:     d.Tests,
		exercises: d.Exercises,
		gen:       d.Generator,
		history:   d.History,
		modes:     session.NewStore[Mode](),
		locks:     session.NewLocker(),
		config:    d.Config,
		log:       d.Log.Named("bot"),
		now:       time.Now,
	}, nil
}

// Run handles updates until ctx is done or the channel is closed, then
// waits for in-flight handlers. Updates of one user are handled one at a
// time; different users proceed in parallel.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes a single update under the user's lock. Handler
// errors and panics are logged and answered with a generic message.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	userID, chatID := updateOwner(update)
	if userID == 0 {
		return
	}

	unlock := b.locks.Lock(userID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panicked", zap.Int64("user_id", userID), zap.Any("panic", r), zap.Stack("stack"))
			b.replyFallback(chatID)
		}
	}()

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.log.Error("failed to handle update", zap.Int64("user_id", userID), zap.Error(err))
		b.replyFallback(chatID)
	}
}

func updateOwner(update tgbotapi.Update) (userID, chatID int64) {
	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		return update.Message.From.ID, update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID
	}
	return 0, 0
}

// Mode returns the conversation mode of the user.
func (b *Bot) Mode(userID int64) Mode {
	if m, ok := b.modes.Get(userID); ok {
		return m
	}
	return ModeTutor
}

func (b *Bot) setMode(userID int64, m Mode) {
	if m == ModeTutor {
		b.modes.Delete(userID)
		return
	}
	b.modes.Put(userID, m)
}

// Sweep drops mode flags idle for longer than idle.
func (b *Bot) Sweep(idle time.Duration) int {
	return b.modes.Sweep(idle)
}

// sendMessage sends msg, splitting long text into several messages. Only
// the last part carries the keyboard.
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	parts := splitMessage(msg.Text, b.config.MaxMessageLength)
	for i, part := range parts {
		m := msg
		m.Text = part
		if i < len(parts)-1 {
			m.ReplyMarkup = nil
		}
		if _, err := b.api.Send(m); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainKeyboard()
	return b.sendMessage(msg)
}

func (b *Bot) replyFallback(chatID int64) {
	if chatID == 0 {
		return
	}
	if err := b.reply(chatID, textError); err != nil {
		b.log.Warn("failed to send fallback message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editMessage(msg tgbotapi.EditMessageTextConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (b *Bot) answerCallback(callback *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, text)); err != nil {
		b.log.Warn("failed to answer callback", zap.Int64("user_id", callback.From.ID), zap.Error(err))
	}
}
