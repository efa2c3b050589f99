package bot

import (
	"fmt"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/exercise"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
)

const questionPrefix = "❓ Вопрос "

const (
	textError         = "❌ Произошла ошибка. Пожалуйста, попробуйте позже."
	textUnknown       = "Неизвестная команда. Используйте /help, чтобы увидеть список команд."
	textTestCancelled = "❌ Тест отменен."
	textNoTest        = "ℹ️ У вас нет активного теста. Нажмите 📝 Test, чтобы начать."
	textTestPending   = "📝 У вас есть незавершенный тест. Что хотите сделать?"
	textSummarizing   = "📊 Подводим итоги..."
	textNoQuestions   = "❌ Ошибка при получении вопросов."

	textGateRequired = "⚠️ Сначала пройдите диагностический тест!\n\n" +
		"Упражнения подбираются по результатам теста, поэтому без него мы не знаем, над чем вам стоит поработать."
	textGateInProgress = "⚠️ Сначала завершите начатый диагностический тест.\n" +
		"Нажмите 📝 Test, чтобы продолжить или начать заново."

	textStaleSession    = "ℹ️ Эта сессия упражнений уже завершена или устарела. Начните новую."
	textCallbackFormat  = "❌ Ошибка формата данных."
	textCallbackIndex   = "❌ Ошибка индекса упражнения."
	textIndexOutOfRange = "❌ Ошибка: индекс упражнения вне диапазона."
	textNoExercises     = "ℹ️ Нет активной сессии упражнений."
	textResetDone       = "🔄 Активная сессия упражнений сброшена!\nТеперь вы можете начать новую сессию."
	textNothingToReset  = "ℹ️ У вас нет активной сессии упражнений."

	textMotivating       = "🔥 Генерирую мотивацию..."
	textMotivateFallback = "✨ Ты делаешь отличные успехи! Каждое занятие приближает тебя к цели! 💪\n" +
		"Не сдавайся - у тебя все получится! 🚀"

	textThinking      = "🤔 Думаю над ответом..."
	textTutorFallback = "📚 Я помогу тебе с подготовкой к ЕГЭ по английскому!\n" +
		"Задавай вопросы по грамматике, лексике или структуре экзамена.\n\n" +
		"Или выбери одну из команд в меню 👆"
	textChatting     = "💬 Обрабатываю сообщение..."
	textChatFallback = "😊 Nice to chat with you! How was your day?"

	textChatMode = "💬 Chat with an AI Friend is ready!\n\n" +
		"Now you can practice your English in a friendly and relaxed way! 🎭\n" +
		"You write to me in English, and I will answer like a good friend.\n\n" +
		"Some ideas for our chat:\n" +
		"• How was your day?\n" +
		"• Plans for the weekend\n" +
		"• Your favorite movies or books\n" +
		"• Your hobbies and interests\n\n" +
		"Don't be shy – let's practice your English together! 🚀"
	textTutorMode = "📚 Режим ИИ-помощника включен.\n" +
		"Задавайте вопросы по грамматике, лексике или структуре экзамена."

	textTeacher = "👨‍🏫 Связь с преподавателем\n\n" +
		"🎓 Онлайн-курсы подготовки к ЕГЭ:\n" +
		"• Индивидуальные занятия\n" +
		"• Разбор всех разделов экзамена\n" +
		"• Персональный план подготовки\n" +
		"• Регулярные пробные тесты\n\n" +
		"📞 Контакты:\n" +
		"• Email: re.nailevna@mail.ru\n" +
		"• Телеграм: @MellinaRina\n\n" +
		"📢 Подписывайся на наш канал:\n" +
		"EAZY BREEZY | Английский язык ЕГЭ 2026\n" +
		"https://t.me/ezzy_breezy\n\n" +
		"💡 Первая консультация - бесплатно!"

	textHelp = "📖 Справка по использованию бота\n\n" +
		"🔸 Команды:\n" +
		"/start - Запустить бота и показать главное меню\n" +
		"/help - Показать эту справку\n" +
		"/tutor - Вернуться в режим ИИ-помощника\n\n" +
		"🔸 Кнопки меню:\n" +
		"📝 Test - Диагностический тест ЕГЭ\n" +
		"📚 Vocabulary - Тренировка лексики\n" +
		"📖 Grammar - Тренировка грамматики\n" +
		"💬 Chat - Неформальный чат на английском\n" +
		"🔥 Motivate - Мотивация и поддержка\n" +
		"👨‍🏫 Get contact with a teacher - Связь с преподавателем\n" +
		"🔄 Сбросить активные упражнения\n\n" +
		"💡 Упражнения открываются после прохождения диагностического теста."
)

func welcomeText(firstName string, batchSize, totalQuestions int) string {
	if firstName == "" {
		firstName = "друг"
	}
	return fmt.Sprintf(`🎓 Приветствуем, %s!

Я твой персональный ассистент для подготовки к ЕГЭ по английскому языку!

📚 Выбери нужный раздел:
• 📝 Test - Диагностический тест ЕГЭ (%d %s)
• 📚 Vocabulary - Тренировка лексики (%d %s)
• 📖 Grammar - Тренировка грамматики (%d %s)
• 💬 Chat - Неформальный чат на английском с AI-другом
• 🔥 Motivate - Мотивационные фразы и поддержка
• 👨‍🏫 Get contact with a teacher - Связь с преподавателем
• 🔄 Сбросить активные упражнения

✨ Подписывайся на наш канал: @ezzy_breezy для полезных материалов!`,
		firstName,
		totalQuestions, plural(totalQuestions, "задание", "задания", "заданий"),
		batchSize, plural(batchSize, "упражнение", "упражнения", "упражнений"),
		batchSize, plural(batchSize, "упражнение", "упражнения", "упражнений"))
}

var sectionTitles = map[models.Section]string{
	models.SectionGrammar:    "🎯 ГРАММАТИКА",
	models.SectionVocabulary: "📝 ЛЕКСИКА",
	models.SectionReading:    "📖 ПОНИМАНИЕ ТЕКСТА",
	models.SectionWriting:    "✍️ ПИСЬМО",
	models.SectionEssay:      "📝 ЭССЕ",
}

func testIntroText(total int, counts map[models.Section]int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 Диагностический тест ЕГЭ по английскому\n\n")
	fmt.Fprintf(&sb, "Тест состоит из %d %s и проверяет %d %s:\n\n",
		total, plural(total, "вопроса", "вопросов", "вопросов"),
		len(counts), plural(len(counts), "ключевой навык", "ключевых навыка", "ключевых навыков"))
	for _, sec := range models.Sections {
		n, ok := counts[sec]
		if !ok {
			continue
		}
		unit := plural(n, "вопрос", "вопроса", "вопросов")
		if sec == models.SectionWriting || sec == models.SectionEssay {
			unit = plural(n, "задание", "задания", "заданий")
		}
		fmt.Fprintf(&sb, "%s (%d %s)\n", sectionTitles[sec], n, unit)
	}
	sb.WriteString("\n⏰ Время прохождения: 20-25 минут\n")
	sb.WriteString("📊 Результат: персональный план подготовки\n\n")
	sb.WriteString("Готовы начать? Нажмите 'Начать тест'👇")
	return sb.String()
}

func questionText(q models.TestItem, index, total int) string {
	return fmt.Sprintf("%s%d/%d\n\n%s", questionPrefix, index+1, total, q.Question)
}

func testResultsText(r *models.TestResult) string {
	strengths := "Пока не определены"
	if len(r.Strengths) > 0 {
		strengths = strings.Join(r.Strengths, ", ")
	}
	weaknesses := "Все разделы требуют внимания"
	if len(r.Weaknesses) > 0 {
		weaknesses = strings.Join(r.Weaknesses, ", ")
	}
	return fmt.Sprintf(`🎉 Тест завершен!

📊 Результаты:
%d из %d правильных ответов
(%.1f%%)

🌟 Сильные стороны:
%s

📚 Над чем стоит поработать:
%s

💡 Рекомендации:
1. Регулярно практикуйте слабые разделы
2. Используйте наши тренировки Vocabulary и Grammar
3. Занимайтесь 15-20 минут ежедневно

Результаты сохранены для персональной программы подготовки!`,
		r.CorrectAnswers, r.TotalQuestions, r.Percentage, strengths, weaknesses)
}

func exerciseText(item models.ExerciseItem, index, total int) string {
	return fmt.Sprintf("📝 Упражнение %d из %d\n\n%s\n\nВыберите правильный ответ:", index+1, total, item.Question)
}

func exerciseIntroText(subject models.Subject, restarted bool) string {
	if subject == models.SubjectVocabulary {
		if restarted {
			return "📚 Создаю новую сессию упражнений по лексике..."
		}
		return "📚 Создаю персонализированные упражнения по лексике..."
	}
	if restarted {
		return "📖 Создаю новую сессию упражнений по грамматике..."
	}
	return "📖 Создаю персонализированные упражнения по грамматике..."
}

var levelTitles = map[exercise.Level]string{
	exercise.LevelExcellent:        "Отлично! 🎉",
	exercise.LevelGood:             "Хорошо! 👍",
	exercise.LevelFair:             "Удовлетворительно 📚",
	exercise.LevelNeedsImprovement: "Требует улучшения 💪",
}

func exerciseResultsText(r *exercise.Results) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 Упражнения завершены!\n\n📊 Результаты:\n%d из %d правильных ответов\n(%.1f%%)\n\n🌟 Уровень: %s\n\n💡 Детальный разбор:",
		r.Correct, r.Total, r.Percentage, levelTitles[r.Level])
	for i, res := range r.Items {
		status := "✅"
		if !res.IsCorrect {
			status = "❌"
		}
		answer := res.UserAnswer
		if answer == "" {
			answer = "Не отвечен"
		}
		fmt.Fprintf(&sb, "\n\n%d. %s %s\nВаш ответ: %s\nПравильный ответ: %s", i+1, status, res.Item.Question, answer, res.Item.CorrectAnswer)
		if !res.IsCorrect && res.Item.Explanation != "" {
			fmt.Fprintf(&sb, "\n💡 %s", res.Item.Explanation)
		}
	}
	sb.WriteString("\n\n🎯 Продолжайте практиковаться для улучшения результатов!")
	return sb.String()
}

// plural picks the Russian word form for n.
func plural(n int, one, few, many string) string {
	n %= 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
