package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// requireTestCompletion runs next only for users who finished the
// diagnostic test and have no test in progress. Otherwise the user is sent
// to the test entry point and next is not called.
func (b *Bot) requireTestCompletion(ctx context.Context, message *tgbotapi.Message, next func() error) error {
	userID := message.From.ID

	if b.tests.Active(userID) {
		msg := tgbotapi.NewMessage(message.Chat.ID, textGateInProgress)
		msg.ReplyMarkup = testActionsKeyboard()
		return b.sendMessage(msg)
	}

	if b.hasCompletedTest(ctx, userID) {
		return next()
	}

	b.log.Info("exercise blocked until the test is completed", zap.Int64("user_id", userID))
	if err := b.reply(message.Chat.ID, textGateRequired); err != nil {
		return err
	}
	return b.showTestIntro(message.Chat.ID)
}

// hasCompletedTest trusts the stored flag and falls back to the test
// history, repairing the flag when a result exists.
func (b *Bot) hasCompletedTest(ctx context.Context, userID int64) bool {
	if b.store.HasCompletedTest(ctx, userID) {
		return true
	}

	results, err := b.store.TestHistory(ctx, userID)
	if err != nil {
		b.log.Warn("failed to read test history", zap.Int64("user_id", userID), zap.Error(err))
	}

	user := b.store.GetUser(ctx, userID)
	repaired := user.Reconcile()
	if !repaired && len(results) == 0 {
		return false
	}
	if !repaired {
		user.MarkTestCompleted(b.now())
	}
	if err := b.store.SaveUser(ctx, user); err != nil {
		b.log.Warn("failed to repair completion flag", zap.Int64("user_id", userID), zap.Error(err))
	} else {
		b.log.Info("completion flag repaired from history", zap.Int64("user_id", userID))
	}
	return true
}
