package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleTest offers resume, restart or cancel for a test in progress, and
// the intro otherwise.
func (b *Bot) handleTest(message *tgbotapi.Message) error {
	if b.tests.Active(message.From.ID) {
		msg := tgbotapi.NewMessage(message.Chat.ID, textTestPending)
		msg.ReplyMarkup = testActionsKeyboard()
		return b.sendMessage(msg)
	}
	return b.showTestIntro(message.Chat.ID)
}

func (b *Bot) showTestIntro(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, testIntroText(b.tests.Total(), b.tests.SectionCounts()))
	msg.ReplyMarkup = testIntroKeyboard()
	return b.sendMessage(msg)
}

// handleTestStart begins a test from the intro. A test in progress is
// never replaced here; the user gets the continue/restart/cancel choice.
func (b *Bot) handleTestStart(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	userID := callback.From.ID
	if b.tests.Active(userID) {
		b.log.Info("start pressed during a test", zap.Int64("user_id", userID))
		msg := tgbotapi.NewMessage(callback.Message.Chat.ID, textTestPending)
		msg.ReplyMarkup = testActionsKeyboard()
		return b.sendMessage(msg)
	}
	if !b.tests.Start(userID) {
		return b.reply(callback.Message.Chat.ID, textNoQuestions)
	}
	return b.showCurrentQuestion(ctx, callback)
}

func (b *Bot) handleTestRestart(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	b.log.Info("test restarted", zap.Int64("user_id", callback.From.ID))
	if !b.tests.Start(callback.From.ID) {
		return b.reply(callback.Message.Chat.ID, textNoQuestions)
	}
	return b.showCurrentQuestion(ctx, callback)
}

func (b *Bot) handleTestContinue(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if !b.tests.Active(callback.From.ID) {
		return b.reply(callback.Message.Chat.ID, textNoTest)
	}
	return b.showCurrentQuestion(ctx, callback)
}

func (b *Bot) handleTestCancel(callback *tgbotapi.CallbackQuery) error {
	b.tests.Cancel(callback.From.ID)
	return b.editMessage(tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID, textTestCancelled))
}

// handleTestAnswer records the pressed option. The question number shown
// in the pressed message must still be the current one, so a repeated tap
// cannot answer the next question.
func (b *Bot) handleTestAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	userID := callback.From.ID
	label, err := parseTestAnswer(callback.Data)
	if err != nil {
		b.log.Warn("invalid test answer callback", zap.Int64("user_id", userID), zap.Error(err))
		return b.reply(callback.Message.Chat.ID, textCallbackFormat)
	}
	if !b.tests.Active(userID) {
		return b.reply(callback.Message.Chat.ID, textNoTest)
	}

	var recorded bool
	if n, ok := questionNumber(callback.Message.Text); ok {
		recorded = b.tests.AnswerAt(userID, n-1, label)
	} else {
		recorded = b.tests.ProcessAnswer(userID, label)
	}
	if !recorded {
		return nil
	}
	return b.showCurrentQuestion(ctx, callback)
}

// showCurrentQuestion edits the pressed message into the current question,
// or into the results when the test is over.
func (b *Bot) showCurrentQuestion(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	if b.tests.IsComplete(userID) {
		return b.finishTest(ctx, callback)
	}

	item, index, ok := b.tests.Current(userID)
	if !ok {
		return b.reply(chatID, textNoQuestions)
	}
	_, total, _ := b.tests.Progress(userID)

	return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(
		chatID, callback.Message.MessageID, questionText(item, index, total), questionKeyboard(item)))
}

func (b *Bot) finishTest(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	if err := b.editMessage(tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, textSummarizing)); err != nil {
		b.log.Debug("could not edit message before results", zap.Error(err))
	}

	result, err := b.tests.Finish(ctx, callback.From.ID)
	if err != nil {
		return b.reply(chatID, textNoTest)
	}
	return b.reply(chatID, testResultsText(result))
}
