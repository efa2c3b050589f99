package models

// Subject of a generated exercise batch
type Subject string

const (
	SubjectVocabulary Subject = "vocabulary"
	SubjectGrammar    Subject = "grammar"
)

// Valid reports whether s is a supported exercise subject.
func (s Subject) Valid() bool {
	return s == SubjectVocabulary || s == SubjectGrammar
}

// ExerciseItem is one multiple-choice exercise. CorrectAnswer is one of A-D.
type ExerciseItem struct {
	ID            string   `json:"id"`
	Subject       Subject  `json:"subject"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// OptionLetters are the answer letters in option order.
var OptionLetters = []string{"A", "B", "C", "D"}
