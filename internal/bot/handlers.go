package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/ai"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/history"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.IsCommand() {
		return b.handleCommand(ctx, message)
	}
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}
	if isMenuLabel(text) {
		return b.handleMenu(ctx, message, text)
	}
	return b.handleConversation(ctx, message, text)
}

// handleCommand handles slash commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		return b.reply(message.Chat.ID, textHelp)
	case "tutor":
		return b.handleTutorMode(message)
	case "chat":
		return b.handleChatMode(message)
	case "test":
		return b.handleTest(message)
	case "vocabulary":
		return b.requireTestCompletion(ctx, message, func() error {
			return b.startExercises(ctx, message, models.SubjectVocabulary)
		})
	case "grammar":
		return b.requireTestCompletion(ctx, message, func() error {
			return b.startExercises(ctx, message, models.SubjectGrammar)
		})
	case "motivate":
		return b.handleMotivate(ctx, message)
	case "teacher":
		return b.handleTeacher(message)
	case "reset":
		return b.handleReset(message)
	default:
		return b.reply(message.Chat.ID, textUnknown)
	}
}

// handleMenu dispatches a main keyboard label
func (b *Bot) handleMenu(ctx context.Context, message *tgbotapi.Message, label string) error {
	switch label {
	case LabelTest:
		return b.handleTest(message)
	case LabelVocabulary:
		return b.requireTestCompletion(ctx, message, func() error {
			return b.startExercises(ctx, message, models.SubjectVocabulary)
		})
	case LabelGrammar:
		return b.requireTestCompletion(ctx, message, func() error {
			return b.startExercises(ctx, message, models.SubjectGrammar)
		})
	case LabelChat:
		return b.handleChatMode(message)
	case LabelMotivate:
		return b.handleMotivate(ctx, message)
	case LabelTeacher:
		return b.handleTeacher(message)
	case LabelReset:
		return b.handleReset(message)
	}
	return nil
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	from := message.From
	user := b.store.GetUser(ctx, from.ID)
	user.Touch(from.UserName, from.FirstName, from.LastName, b.now())
	if err := b.store.SaveUser(ctx, user); err != nil {
		b.log.Warn("failed to save user profile", zap.Int64("user_id", from.ID), zap.Error(err))
	}

	return b.reply(message.Chat.ID, welcomeText(from.FirstName, b.config.BatchSize, b.tests.Total()))
}

// handleChatMode switches to chat mode with an empty transcript
func (b *Bot) handleChatMode(message *tgbotapi.Message) error {
	userID := message.From.ID
	b.history.Clear(userID)
	b.setMode(userID, ModeChat)
	b.log.Info("mode switched", zap.Int64("user_id", userID), zap.String("mode", string(ModeChat)))
	return b.reply(message.Chat.ID, textChatMode)
}

func (b *Bot) handleTutorMode(message *tgbotapi.Message) error {
	userID := message.From.ID
	b.history.Clear(userID)
	b.setMode(userID, ModeTutor)
	b.log.Info("mode switched", zap.Int64("user_id", userID), zap.String("mode", string(ModeTutor)))
	return b.reply(message.Chat.ID, textTutorMode)
}

func (b *Bot) handleMotivate(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, textMotivating)); err != nil {
		return err
	}
	text := ai.GenerateWithFallback(ctx, b.gen, ai.Request{PromptType: ai.PromptMotivate, Temperature: ai.DefaultTemperature}, textMotivateFallback)
	return b.reply(message.Chat.ID, text)
}

func (b *Bot) handleTeacher(message *tgbotapi.Message) error {
	text := textTeacher
	if b.config.TeacherContact != "" {
		text = b.config.TeacherContact
	}
	return b.reply(message.Chat.ID, text)
}

func (b *Bot) handleReset(message *tgbotapi.Message) error {
	if b.exercises.Reset(message.From.ID) {
		b.log.Info("exercise session reset", zap.Int64("user_id", message.From.ID))
		return b.reply(message.Chat.ID, textResetDone)
	}
	return b.reply(message.Chat.ID, textNothingToReset)
}

// handleConversation answers free text with the tutor or chat prompt,
// passing the recent transcript as context.
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, text string) error {
	userID := message.From.ID
	mode := b.Mode(userID)

	promptType, progress, fallback := ai.PromptTutor, textThinking, textTutorFallback
	if mode == ModeChat {
		promptType, progress, fallback = ai.PromptChat, textChatting, textChatFallback
	}

	previous := b.history.Get(userID)
	b.history.Append(userID, history.RoleUser, text)

	if err := b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, progress)); err != nil {
		return err
	}

	prompt := fmt.Sprintf("История чата:\n%s\nТекущее сообщение пользователя: %s", history.Render(previous), text)
	response, err := b.gen.Generate(ctx, ai.Request{
		PromptType:  promptType,
		UserMessage: prompt,
		Temperature: ai.DefaultTemperature,
		MaxTokens:   ai.DefaultMaxTokens,
	})
	if err != nil {
		b.log.Warn("generator failed, using fallback reply",
			zap.Int64("user_id", userID),
			zap.String("mode", string(mode)),
			zap.Error(err))
		return b.reply(message.Chat.ID, fallback)
	}

	b.history.Append(userID, history.RoleAssistant, response)
	return b.reply(message.Chat.ID, response)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Always answer the callback query to remove the loading state
	b.answerCallback(callback, "")

	data := callback.Data
	switch {
	case data == callbackStartTest:
		return b.handleTestStart(ctx, callback)
	case data == callbackTestContinue:
		return b.handleTestContinue(ctx, callback)
	case data == callbackTestRestart:
		return b.handleTestRestart(ctx, callback)
	case data == callbackTestCancel:
		return b.handleTestCancel(callback)
	case strings.HasPrefix(data, prefixTestAnswer):
		return b.handleTestAnswer(ctx, callback)
	case data == callbackExerciseFinish:
		return b.handleExerciseFinish(callback)
	case strings.HasPrefix(data, prefixExercise+":"):
		return b.handleExerciseAnswer(callback)
	default:
		b.log.Warn("unknown callback", zap.Int64("user_id", callback.From.ID), zap.String("data", data))
		return b.reply(callback.Message.Chat.ID, "⚠️ Неизвестное действие")
	}
}
