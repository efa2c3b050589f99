package exercise

import (
	"fmt"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
)

var fallbackVocabulary = []models.ExerciseItem{
	{
		Question:      "Choose the correct phrasal verb:\nI need to ___ my notes before the exam.",
		Options:       []string{"look up", "look after", "look into", "look for"},
		CorrectAnswer: "A",
		Explanation:   "'Look up' means to search for information, which fits the context of studying notes.",
	},
	{
		Question:      "Complete the collocation:\nMake a ___ about your future plans.",
		Options:       []string{"decision", "solution", "problem", "opinion"},
		CorrectAnswer: "A",
		Explanation:   "'Make a decision' is the correct collocation in English.",
	},
	{
		Question:      "Choose the correct word:\nThe weather was so ___ that we had to cancel the picnic.",
		Options:       []string{"terrible", "terribly", "terribleness", "terrify"},
		CorrectAnswer: "A",
		Explanation:   "'Terrible' is an adjective that describes the weather.",
	},
	{
		Question:      "Select the right synonym:\nThe movie was very ___ and kept us interested.",
		Options:       []string{"boring", "entertaining", "difficult", "expensive"},
		CorrectAnswer: "B",
		Explanation:   "'Entertaining' means interesting and enjoyable, which fits the context.",
	},
	{
		Question:      "Choose the correct word form:\nShe has a great ___ for languages.",
		Options:       []string{"ability", "able", "ably", "enable"},
		CorrectAnswer: "A",
		Explanation:   "'Ability' is a noun that means the power or skill to do something.",
	},
}

var fallbackGrammar = []models.ExerciseItem{
	{
		Question:      "Choose the correct tense:\nBy this time next year, I ___ university.",
		Options:       []string{"will finish", "will have finished", "finish", "am finishing"},
		CorrectAnswer: "B",
		Explanation:   "'Will have finished' is the future perfect tense, used for actions completed by a specific time in the future.",
	},
	{
		Question:      "Select the right conditional:\nIf I ___ more time, I would travel the world.",
		Options:       []string{"have", "had", "would have", "have had"},
		CorrectAnswer: "B",
		Explanation:   "This is a second conditional sentence, so we use 'had' (past simple) in the if-clause.",
	},
	{
		Question:      "Choose the correct article:\n___ sun rises in the east.",
		Options:       []string{"A", "An", "The", "No article"},
		CorrectAnswer: "C",
		Explanation:   "'The' is used with unique objects like the sun, moon, earth, etc.",
	},
	{
		Question:      "Select the correct passive form:\nThe book ___ by many students last year.",
		Options:       []string{"was read", "was reading", "read", "has read"},
		CorrectAnswer: "A",
		Explanation:   "'Was read' is the past simple passive form, indicating the book was the object of the action.",
	},
	{
		Question:      "Choose the right modal verb:\nYou ___ study harder if you want to pass the exam.",
		Options:       []string{"can", "must", "should", "would"},
		CorrectAnswer: "C",
		Explanation:   "'Should' is used to give advice or make recommendations.",
	},
}

// Fallback returns the built-in batch for subject with ids derived from
// token. The returned items are fresh copies.
func Fallback(subject models.Subject, token string) []models.ExerciseItem {
	src := fallbackVocabulary
	if subject == models.SubjectGrammar {
		src = fallbackGrammar
	}
	items := make([]models.ExerciseItem, len(src))
	for i, it := range src {
		it.Options = append([]string(nil), it.Options...)
		it.Subject = subject
		it.ID = itemID(subject, token, i)
		items[i] = it
	}
	return items
}

func itemID(subject models.Subject, token string, index int) string {
	return fmt.Sprintf("%s_%s_%d", subject, shortToken(token), index)
}
