package bot

import (
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu labels. Incoming text equal to one of them is a command.
const (
	LabelTest       = "📝 Test"
	LabelVocabulary = "📚 Vocabulary"
	LabelGrammar    = "📖 Grammar"
	LabelChat       = "💬 Chat"
	LabelMotivate   = "🔥 Motivate"
	LabelTeacher    = "👨‍🏫 Get contact with a teacher"
	LabelReset      = "🔄 Сбросить активные упражнения"
)

// MenuButton represents a button in an inline menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates an inline keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// MainMenuLabels returns the reply keyboard layout
func MainMenuLabels() [][]string {
	return [][]string{
		{LabelTest, LabelVocabulary},
		{LabelGrammar, LabelChat},
		{LabelMotivate, LabelTeacher},
		{LabelReset},
	}
}

func isMenuLabel(text string) bool {
	for _, row := range MainMenuLabels() {
		for _, label := range row {
			if text == label {
				return true
			}
		}
	}
	return false
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, row := range MainMenuLabels() {
		var buttons []tgbotapi.KeyboardButton
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func testIntroKeyboard() tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: "🚀 Начать тест", CallbackData: callbackStartTest}},
	})
}

func testActionsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: "▶️ Продолжить тест", CallbackData: callbackTestContinue}},
		{{Text: "🔄 Начать новый тест", CallbackData: callbackTestRestart}},
		{{Text: "❌ Отменить тест", CallbackData: callbackTestCancel}},
	})
}

// questionKeyboard has one button per labeled option.
func questionKeyboard(q models.TestItem) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	for _, opt := range q.Options {
		label := models.OptionLabel(opt)
		if label == "" {
			continue
		}
		rows = append(rows, []MenuButton{{Text: opt, CallbackData: encodeTestAnswer(label)}})
	}
	return createKeyboard(rows)
}

// exerciseKeyboard renders lettered options; the last item also gets a
// finish button.
func exerciseKeyboard(item models.ExerciseItem, session string, index, total int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	for i, opt := range item.Options {
		if i >= len(models.OptionLetters) {
			break
		}
		letter := models.OptionLetters[i]
		rows = append(rows, []MenuButton{{
			Text:         letter + ". " + opt,
			CallbackData: encodeExerciseCallback(session, index, letter),
		}})
	}
	if index == total-1 {
		rows = append(rows, []MenuButton{{Text: "🏁 Завершить упражнения", CallbackData: callbackExerciseFinish}})
	}
	return createKeyboard(rows)
}
