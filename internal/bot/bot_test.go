package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/ai"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/bank"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/database"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/diagnostic"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/exercise"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/history"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/profile"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSender struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
	nextID    int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// outgoing is a sent message or edit reduced to what the tests look at.
type outgoing struct {
	Text   string
	Edit   bool
	Inline *tgbotapi.InlineKeyboardMarkup
	Reply  bool
}

func (f *fakeSender) drain() []outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outgoing
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			o := outgoing{Text: m.Text}
			switch kb := m.ReplyMarkup.(type) {
			case tgbotapi.InlineKeyboardMarkup:
				o.Inline = &kb
			case tgbotapi.ReplyKeyboardMarkup:
				o.Reply = true
			}
			out = append(out, o)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, outgoing{Text: m.Text, Edit: true, Inline: m.ReplyMarkup})
		}
	}
	f.sent = nil
	return out
}

func callbackData(kb *tgbotapi.InlineKeyboardMarkup) []string {
	if kb == nil {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				data = append(data, *btn.CallbackData)
			}
		}
	}
	return data
}

type harness struct {
	bot    *Bot
	sender *fakeSender
	store  *database.FileStore
	gen    *ai.MockGenerator
	tests  *diagnostic.Engine
	ex     *exercise.Engine
}

func newHarness(t *testing.T, gen ai.Generator) *harness {
	t.Helper()
	if gen == nil {
		gen = ai.NewMockGenerator()
	}
	log := zap.NewNop()
	store := database.NewFileStore(t.TempDir(), log)
	tests := diagnostic.NewEngine(bank.Default().Items(), store, log)
	ex := exercise.NewEngine(gen, profile.NewBuilder(store, log), log)
	sender := &fakeSender{}

	b, err := New(Deps{
		Sender:    sender,
		Store:     store,
		Tests:     tests,
		Exercises: ex,
		Generator: gen,
		History:   history.NewTracker(history.DefaultLimit),
		Log:       log,
	})
	require.NoError(t, err)

	h := &harness{bot: b, sender: sender, store: store, tests: tests, ex: ex}
	if mg, ok := gen.(*ai.MockGenerator); ok {
		h.gen = mg
	}
	return h
}

const testUser int64 = 1001

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Анна", UserName: "anna"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data, shownText string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: userID}, Text: shownText},
		Data:    data,
	}}
}

func (h *harness) send(u tgbotapi.Update) []outgoing {
	h.bot.HandleUpdate(context.Background(), u)
	return h.sender.drain()
}

func (h *harness) completeTest(t *testing.T, userID int64) {
	t.Helper()
	require.NoError(t, h.store.MarkTestCompleted(context.Background(), userID))
}

func TestDiagnosticTestEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	items := bank.Default().Items()

	out := h.send(textUpdate(testUser, "/start"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Приветствуем, Анна!")
	assert.True(t, out[0].Reply)

	out = h.send(textUpdate(testUser, LabelTest))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Тест состоит из 25 вопросов")
	assert.Contains(t, out[0].Text, "ГРАММАТИКА (8 вопросов)")
	assert.Equal(t, []string{callbackStartTest}, callbackData(out[0].Inline))

	out = h.send(callbackUpdate(testUser, callbackStartTest, out[0].Text))
	require.Len(t, out, 1)
	require.True(t, out[0].Edit)
	assert.True(t, strings.HasPrefix(out[0].Text, "❓ Вопрос 1/25"))
	assert.Equal(t, []string{"test_answer_a", "test_answer_b", "test_answer_c", "test_answer_d"}, callbackData(out[0].Inline))

	shown := out[0].Text
	var results outgoing
	for i, q := range items {
		label := q.CorrectAnswer
		if i >= 20 {
			for _, l := range q.Labels() {
				if l != q.CorrectAnswer {
					label = l
					break
				}
			}
		}
		out = h.send(callbackUpdate(testUser, encodeTestAnswer(label), shown))
		require.NotEmpty(t, out, "question %d", i+1)
		if i < len(items)-1 {
			require.True(t, out[0].Edit)
			shown = out[0].Text
			continue
		}
		require.Len(t, out, 2)
		assert.Equal(t, textSummarizing, out[0].Text)
		results = out[1]
	}

	assert.Contains(t, results.Text, "20 из 25 правильных ответов")
	assert.Contains(t, results.Text, "(80.0%)")
	assert.True(t, results.Reply)
	assert.False(t, h.tests.Active(testUser))

	ctx := context.Background()
	assert.True(t, h.store.HasCompletedTest(ctx, testUser))
	hist, err := h.store.TestHistory(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 25, hist[0].CorrectAnswers+hist[0].IncorrectAnswers())
	assert.InDelta(t, 80.0, hist[0].Percentage, 1e-9)

	user := h.store.GetUser(ctx, testUser)
	assert.Equal(t, "anna", user.Username)
	assert.Equal(t, 1, user.Stats.TotalTestsTaken)
}

func TestRepeatedTestAnswerIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	out := h.send(callbackUpdate(testUser, callbackStartTest, "intro"))
	require.Len(t, out, 1)
	q1 := out[0].Text

	out = h.send(callbackUpdate(testUser, "test_answer_a", q1))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Text, "❓ Вопрос 2/25"))

	out = h.send(callbackUpdate(testUser, "test_answer_b", q1))
	assert.Empty(t, out)

	cursor, _, ok := h.tests.Progress(testUser)
	require.True(t, ok)
	assert.Equal(t, 1, cursor)
}

func TestTestConflictChoices(t *testing.T) {
	h := newHarness(t, nil)
	out := h.send(callbackUpdate(testUser, callbackStartTest, "intro"))
	h.send(callbackUpdate(testUser, "test_answer_a", out[0].Text))

	out = h.send(textUpdate(testUser, LabelTest))
	require.Len(t, out, 1)
	assert.Equal(t, textTestPending, out[0].Text)
	assert.Equal(t, []string{callbackTestContinue, callbackTestRestart, callbackTestCancel}, callbackData(out[0].Inline))

	out = h.send(callbackUpdate(testUser, callbackTestContinue, out[0].Text))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Text, "❓ Вопрос 2/25"))

	out = h.send(callbackUpdate(testUser, callbackTestRestart, textTestPending))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Text, "❓ Вопрос 1/25"))
	cursor, _, _ := h.tests.Progress(testUser)
	assert.Equal(t, 0, cursor)

	out = h.send(callbackUpdate(testUser, callbackTestCancel, textTestPending))
	require.Len(t, out, 1)
	assert.Equal(t, textTestCancelled, out[0].Text)
	assert.False(t, h.tests.Active(testUser))
	assert.False(t, h.store.HasCompletedTest(context.Background(), testUser))
}

func TestGateRedirectsToTest(t *testing.T) {
	h := newHarness(t, nil)

	for _, label := range []string{LabelVocabulary, LabelGrammar} {
		out := h.send(textUpdate(testUser, label))
		require.Len(t, out, 2, label)
		assert.Equal(t, textGateRequired, out[0].Text)
		assert.Equal(t, []string{callbackStartTest}, callbackData(out[1].Inline))
	}
	assert.Equal(t, 0, h.gen.CallCount())
	assert.False(t, h.ex.Active(testUser))
}

func TestGateBlocksDuringTest(t *testing.T) {
	h := newHarness(t, nil)
	h.completeTest(t, testUser)
	h.send(callbackUpdate(testUser, callbackStartTest, "intro"))

	out := h.send(textUpdate(testUser, LabelGrammar))
	require.Len(t, out, 1)
	assert.Equal(t, textGateInProgress, out[0].Text)
	assert.False(t, h.ex.Active(testUser))
}

func TestGateSelfHealsFromHistory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.store.AppendTestResult(ctx, testUser, models.TestResult{TestID: "test_1", TotalQuestions: 25}))
	require.False(t, h.store.HasCompletedTest(ctx, testUser))

	out := h.send(textUpdate(testUser, LabelVocabulary))
	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[1].Text, "📝 Упражнение 1 из 5"))
	assert.True(t, h.store.HasCompletedTest(ctx, testUser))
}

func TestMalformedGeneratorOutputStillCompletes(t *testing.T) {
	gen := ai.NewMockGenerator(ai.MockResponse{Text: "Sure! Here are your exercises: {oops"})
	h := newHarness(t, gen)
	h.completeTest(t, testUser)

	out := h.send(textUpdate(testUser, LabelVocabulary))
	require.Len(t, out, 2)
	assert.Equal(t, "📚 Создаю персонализированные упражнения по лексике...", out[0].Text)

	shown := out[1]
	for i := 0; i < exercise.BatchSize; i++ {
		require.True(t, strings.HasPrefix(shown.Text, "📝 Упражнение "), shown.Text)
		data := callbackData(shown.Inline)
		if i == exercise.BatchSize-1 {
			require.Len(t, data, 5)
			assert.Equal(t, callbackExerciseFinish, data[4])
		} else {
			require.Len(t, data, 4)
		}
		for _, d := range data[:4] {
			cb, err := parseExerciseCallback(d)
			require.NoError(t, err)
			assert.Equal(t, i, cb.Index)
		}

		out = h.send(callbackUpdate(testUser, data[0], shown.Text))
		require.Len(t, out, 2)
		assert.Equal(t, "Ответ принят: A", out[0].Text)
		assert.True(t, out[0].Edit)
		assert.Nil(t, out[0].Inline)
		shown = out[1]
	}

	assert.Contains(t, shown.Text, "из 5 правильных ответов")
	assert.Contains(t, shown.Text, "Упражнения завершены")
	assert.False(t, h.ex.Active(testUser))
	assert.Equal(t, 1, gen.CallCount())
}

func TestExerciseCallbackErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.completeTest(t, testUser)
	out := h.send(textUpdate(testUser, LabelGrammar))
	require.Len(t, out, 2)
	first := callbackData(out[1].Inline)[0]

	tests := []struct {
		name string
		data string
		want string
	}{
		{"stale session", "ex:zzzzzz:0:A", textStaleSession},
		{"bad index", "ex:abcdef:x:A", textCallbackIndex},
		{"too many fields", "ex:abcdef:0:A:1", textCallbackFormat},
		{"bad letter", "ex:abcdef:0:Q", textCallbackFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := h.send(callbackUpdate(testUser, tt.data, "x"))
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Text)
		})
	}

	cb, err := parseExerciseCallback(first)
	require.NoError(t, err)
	out = h.send(callbackUpdate(testUser, encodeExerciseCallback(cb.Session, 9, "A"), "x"))
	require.Len(t, out, 1)
	assert.Equal(t, textIndexOutOfRange, out[0].Text)

	out = h.send(callbackUpdate(testUser, first, "x"))
	require.Len(t, out, 2)
	out = h.send(callbackUpdate(testUser, first, "x"))
	assert.Empty(t, out, "duplicate press is ignored")

	snap, ok := h.ex.Snapshot(testUser)
	require.True(t, ok)
	assert.Len(t, snap.Answers, 1)
}

func TestExerciseFinishWithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	out := h.send(callbackUpdate(testUser, callbackExerciseFinish, "x"))
	require.Len(t, out, 1)
	assert.Equal(t, textNoExercises, out[0].Text)
}

func TestResetExercises(t *testing.T) {
	h := newHarness(t, nil)
	h.completeTest(t, testUser)

	out := h.send(textUpdate(testUser, LabelReset))
	require.Len(t, out, 1)
	assert.Equal(t, textNothingToReset, out[0].Text)

	h.send(textUpdate(testUser, LabelGrammar))
	out = h.send(textUpdate(testUser, LabelReset))
	require.Len(t, out, 1)
	assert.Equal(t, textResetDone, out[0].Text)
	assert.False(t, h.ex.Active(testUser))
}

func TestChatModeUsesHistory(t *testing.T) {
	gen := ai.NewMockGenerator(
		ai.MockResponse{Text: "Hi! I'm fine."},
		ai.MockResponse{Text: "Sounds great!"},
	)
	h := newHarness(t, gen)

	out := h.send(textUpdate(testUser, LabelChat))
	require.Len(t, out, 1)
	assert.Equal(t, textChatMode, out[0].Text)
	assert.Equal(t, ModeChat, h.bot.Mode(testUser))

	out = h.send(textUpdate(testUser, "How are you?"))
	require.Len(t, out, 2)
	assert.Equal(t, textChatting, out[0].Text)
	assert.Equal(t, "Hi! I'm fine.", out[1].Text)

	h.send(textUpdate(testUser, "I went hiking"))
	req, ok := gen.LastCall()
	require.True(t, ok)
	assert.Equal(t, ai.PromptChat, req.PromptType)
	assert.Contains(t, req.UserMessage, "user: How are you?\nassistant: Hi! I'm fine.")
	assert.Contains(t, req.UserMessage, "Текущее сообщение пользователя: I went hiking")
	assert.Len(t, h.bot.history.Get(testUser), 4)

	out = h.send(textUpdate(testUser, "/tutor"))
	require.Len(t, out, 1)
	assert.Equal(t, ModeTutor, h.bot.Mode(testUser))
	assert.Empty(t, h.bot.history.Get(testUser))
}

func TestChatModeClearsPreviousTranscript(t *testing.T) {
	gen := ai.NewMockGenerator(ai.MockResponse{Text: "tutor answer"})
	h := newHarness(t, gen)

	h.send(textUpdate(testUser, "What is Past Perfect?"))
	require.Len(t, h.bot.history.Get(testUser), 2)

	h.send(textUpdate(testUser, LabelChat))
	assert.Empty(t, h.bot.history.Get(testUser))
}

func TestTutorFallbackOnGeneratorFailure(t *testing.T) {
	gen := ai.NewMockGenerator(ai.MockResponse{Err: &ai.Error{Kind: ai.KindTimeout}})
	h := newHarness(t, gen)

	out := h.send(textUpdate(testUser, "help me"))
	require.Len(t, out, 2)
	assert.Equal(t, textThinking, out[0].Text)
	assert.Equal(t, textTutorFallback, out[1].Text)
	assert.True(t, out[1].Reply)
	assert.Len(t, h.bot.history.Get(testUser), 1)
}

func TestMotivate(t *testing.T) {
	h := newHarness(t, ai.NewMockGenerator(ai.MockResponse{Text: "You can do it!"}))
	out := h.send(textUpdate(testUser, LabelMotivate))
	require.Len(t, out, 2)
	assert.Equal(t, "You can do it!", out[1].Text)

	out = h.send(textUpdate(testUser, LabelMotivate))
	require.Len(t, out, 2)
	assert.Equal(t, textMotivateFallback, out[1].Text)
}

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, ai.Request) (string, error) {
	panic("boom")
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t, panicGenerator{})
	out := h.send(textUpdate(testUser, LabelMotivate))
	require.Len(t, out, 2)
	assert.Equal(t, textError, out[1].Text)
	assert.True(t, out[1].Reply)
}

func TestUnknownCommandAndTeacher(t *testing.T) {
	h := newHarness(t, nil)
	out := h.send(textUpdate(testUser, "/nope"))
	require.Len(t, out, 1)
	assert.Equal(t, textUnknown, out[0].Text)

	out = h.send(textUpdate(testUser, LabelTeacher))
	require.Len(t, out, 1)
	assert.Equal(t, textTeacher, out[0].Text)

	h.bot.config.TeacherContact = "Пишите: @teacher"
	out = h.send(textUpdate(testUser, LabelTeacher))
	require.Len(t, out, 1)
	assert.Equal(t, "Пишите: @teacher", out[0].Text)
}

func TestRunProcessesUpdatesAndStops(t *testing.T) {
	gen := ai.NewMockGenerator()
	h := newHarness(t, gen)

	updates := make(chan tgbotapi.Update, 3)
	updates <- textUpdate(1, "/help")
	updates <- textUpdate(2, "/help")
	updates <- callbackUpdate(3, callbackExerciseFinish, "x")
	close(updates)

	require.NoError(t, h.bot.Run(context.Background(), updates))
	assert.Len(t, h.sender.drain(), 3)
	assert.Len(t, h.sender.callbacks, 1)
	assert.Equal(t, 0, h.bot.locks.Held())
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestStartPressDuringTestKeepsProgress(t *testing.T) {
	h := newHarness(t, nil)
	out := h.send(callbackUpdate(testUser, callbackStartTest, "intro"))
	require.Len(t, out, 1)
	shown := out[0].Text
	for i := 0; i < 5; i++ {
		out = h.send(callbackUpdate(testUser, "test_answer_a", shown))
		require.Len(t, out, 1)
		shown = out[0].Text
	}

	out = h.send(callbackUpdate(testUser, callbackStartTest, "intro"))
	require.Len(t, out, 1)
	assert.False(t, out[0].Edit)
	assert.Equal(t, textTestPending, out[0].Text)
	assert.Equal(t, []string{callbackTestContinue, callbackTestRestart, callbackTestCancel}, callbackData(out[0].Inline))

	cursor, _, ok := h.tests.Progress(testUser)
	require.True(t, ok)
	assert.Equal(t, 5, cursor)

	out = h.send(callbackUpdate(testUser, callbackTestContinue, textTestPending))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Text, "❓ Вопрос 6/25"))
}

func TestStartWithEmptyBank(t *testing.T) {
	h := newHarness(t, nil)
	h.bot.tests = diagnostic.NewEngine(nil, h.store, zap.NewNop())

	out := h.send(callbackUpdate(testUser, callbackStartTest, "intro"))
	require.Len(t, out, 1)
	assert.Equal(t, textNoQuestions, out[0].Text)
	assert.False(t, h.bot.tests.Active(testUser))

	out = h.send(callbackUpdate(testUser, callbackTestRestart, textTestPending))
	require.Len(t, out, 1)
	assert.Equal(t, textNoQuestions, out[0].Text)
	assert.False(t, h.bot.tests.Active(testUser))
}

func exerciseBatch(prefix string) string {
	items := make([]string, 0, exercise.BatchSize)
	for i := 1; i <= exercise.BatchSize; i++ {
		items = append(items, fmt.Sprintf(
			`{"question":"%s question %d","options":["one","two","three","four"],"correct_answer":"A","explanation":"why %d"}`,
			prefix, i, i))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestFinishFromEarlierBatchIsStale(t *testing.T) {
	gen := ai.NewMockGenerator(ai.MockResponse{Text: exerciseBatch("Old")})
	h := newHarness(t, gen)
	h.completeTest(t, testUser)

	out := h.send(textUpdate(testUser, LabelGrammar))
	require.Len(t, out, 2)
	shown := out[1]
	for i := 0; i < exercise.BatchSize-1; i++ {
		out = h.send(callbackUpdate(testUser, callbackData(shown.Inline)[0], shown.Text))
		require.Len(t, out, 2)
		shown = out[1]
	}
	require.Contains(t, callbackData(shown.Inline), callbackExerciseFinish)
	staleText := shown.Text
	assert.Contains(t, staleText, "Old question 5")

	// a new batch replaces the old one; the generator is exhausted so it is the fallback batch
	out = h.send(textUpdate(testUser, LabelGrammar))
	require.Len(t, out, 2)

	out = h.send(callbackUpdate(testUser, callbackExerciseFinish, staleText))
	require.Len(t, out, 1)
	assert.Equal(t, textStaleSession, out[0].Text)
	assert.True(t, h.ex.Active(testUser))

	out = h.send(callbackUpdate(testUser, callbackExerciseFinish, ""))
	require.Len(t, out, 1)
	assert.Equal(t, textStaleSession, out[0].Text)

	snap, ok := h.ex.Snapshot(testUser)
	require.True(t, ok)
	last := len(snap.Items) - 1
	out = h.send(callbackUpdate(testUser, callbackExerciseFinish, exerciseText(snap.Items[last], last, len(snap.Items))))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "0 из 5 правильных ответов")
	assert.False(t, h.ex.Active(testUser))
}
