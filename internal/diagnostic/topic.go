package diagnostic

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
)

type topicRule struct {
	topic    string
	keywords []string
}

// Rules are checked top to bottom; the first rule with a matching keyword wins.
var grammarRules = []topicRule{
	{"Tenses: Past Perfect", []string{"past perfect", "by the time", "had "}},
	{"Tenses: Future Continuous", []string{"future continuous", "will be", "this time next"}},
	{"Tenses: Present Perfect", []string{"present perfect", "yet", "have ", "has "}},
	{"Conditionals (II)", []string{"conditional", "if i", "would "}},
	{"Modals", []string{"mustn't", "mustn'", "mustn", "must not", "must ", "should ", "have to", "modal"}},
	{"Reported Speech", []string{"reported speech", "asked me where", "indirect speech"}},
	{"Articles", []string{"article", " the ", " a ", " an "}},
	{"Passive Voice", []string{"passive", "was read", "is made", "were "}},
	{"Prepositions", []string{"preposition", "in ", "on ", "at ", "for "}},
}

var vocabularyRules = []topicRule{
	{"Vocabulary: Phrasal Verbs", []string{"phrasal", "look up", "look after", "look into", "look for"}},
	{"Vocabulary: Collocations", []string{"collocation", "make a decision", "take", "do "}},
	{"Vocabulary: Word Formation", []string{"word formation", "-tion", "-ment", "prefix", "suffix"}},
	{"Vocabulary: Synonyms/Antonyms", []string{"synonym", "antonym", "closest in meaning"}},
	{"Vocabulary: Idioms", []string{"idiom", "open-minded", "piece of cake"}},
}

const (
	TopicGrammarOther    = "Grammar: Other"
	TopicVocabularyOther = "Vocabulary: Other"
)

// InferTopic tags a question with a coarse topic name. The result is a
// heuristic label and depends only on its inputs.
func InferTopic(section models.Section, question, explanation string, options []string) string {
	text := strings.ToLower(question + " " + explanation + " " + strings.Join(options, " "))

	switch section {
	case models.SectionGrammar:
		return matchRules(grammarRules, text, TopicGrammarOther)
	case models.SectionVocabulary:
		return matchRules(vocabularyRules, text, TopicVocabularyOther)
	default:
		return capitalize(string(section))
	}
}

func matchRules(rules []topicRule, text, fallback string) string {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.topic
			}
		}
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
