package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/exercise"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// startExercises replaces any running session with a fresh batch and
// shows its first item.
func (b *Bot) startExercises(ctx context.Context, message *tgbotapi.Message, subject models.Subject) error {
	userID := message.From.ID
	restarted := b.exercises.Reset(userID)

	if err := b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, exerciseIntroText(subject, restarted))); err != nil {
		return err
	}

	batch, err := b.exercises.StartSession(ctx, userID, subject)
	if err != nil {
		return fmt.Errorf("start %s exercises: %w", subject, err)
	}
	if len(batch.Items) == 0 {
		return b.reply(message.Chat.ID, "❌ Не удалось создать упражнения. Попробуйте позже.")
	}

	b.log.Info("exercises created",
		zap.Int64("user_id", userID),
		zap.String("subject", string(subject)),
		zap.Int("count", len(batch.Items)),
		zap.Bool("fallback", batch.Fallback))
	return b.showExercise(message.Chat.ID, userID, batch.Items[0], 0, len(batch.Items))
}

func (b *Bot) showExercise(chatID, userID int64, item models.ExerciseItem, index, total int) error {
	msg := tgbotapi.NewMessage(chatID, exerciseText(item, index, total))
	msg.ReplyMarkup = exerciseKeyboard(item, b.exercises.ShortToken(userID), index, total)
	return b.sendMessage(msg)
}

// handleExerciseAnswer applies an "ex:" callback. The item index comes
// from the button, not from the engine cursor.
func (b *Bot) handleExerciseAnswer(callback *tgbotapi.CallbackQuery) error {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	cb, err := parseExerciseCallback(callback.Data)
	if err != nil {
		b.log.Warn("invalid exercise callback", zap.Int64("user_id", userID), zap.String("data", callback.Data), zap.Error(err))
		if errors.Is(err, ErrCallbackIndex) {
			return b.reply(chatID, textCallbackIndex)
		}
		return b.reply(chatID, textCallbackFormat)
	}

	status, err := b.exercises.Submit(userID, cb.Session, cb.Index, cb.Letter)
	switch {
	case errors.Is(err, exercise.ErrNoSession), errors.Is(err, exercise.ErrStaleSession):
		b.log.Info("stale exercise callback", zap.Int64("user_id", userID), zap.String("session", cb.Session))
		return b.reply(chatID, textStaleSession)
	case err != nil:
		return err
	}

	switch status {
	case exercise.Duplicate:
		return nil
	case exercise.OutOfRange:
		return b.reply(chatID, textIndexOutOfRange)
	}

	// Drop the keyboard so the item cannot be answered again
	if err := b.editMessage(tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, "Ответ принят: "+cb.Letter)); err != nil {
		b.log.Debug("could not acknowledge answer", zap.Int64("user_id", userID), zap.Error(err))
	}

	next, nextIndex, done, err := b.exercises.Advance(userID, cb.Index)
	if err != nil {
		return b.reply(chatID, textStaleSession)
	}
	if !done {
		snap, _ := b.exercises.Snapshot(userID)
		return b.showExercise(chatID, userID, next, nextIndex, len(snap.Items))
	}
	return b.finishExercises(chatID, userID)
}

// handleExerciseFinish scores the running batch. The finish data carries no
// session token, so the pressed message must show the last item of the
// current batch; a button left over from an earlier batch is stale.
func (b *Bot) handleExerciseFinish(callback *tgbotapi.CallbackQuery) error {
	userID := callback.From.ID
	if snap, ok := b.exercises.Snapshot(userID); ok && len(snap.Items) > 0 {
		last := len(snap.Items) - 1
		want := exerciseText(snap.Items[last], last, len(snap.Items))
		shown := callback.Message.Text
		if shown == "" || !strings.HasSuffix(want, shown) {
			b.log.Info("stale finish callback", zap.Int64("user_id", userID), zap.String("session", b.exercises.ShortToken(userID)))
			return b.reply(callback.Message.Chat.ID, textStaleSession)
		}
	}
	return b.finishExercises(callback.Message.Chat.ID, userID)
}

func (b *Bot) finishExercises(chatID, userID int64) error {
	results, err := b.exercises.Finish(userID)
	if errors.Is(err, exercise.ErrNoSession) {
		return b.reply(chatID, textNoExercises)
	}
	if err != nil {
		return err
	}
	return b.reply(chatID, exerciseResultsText(results))
}
