package models

import "strings"

// Section of the diagnostic test
type Section string

const (
	SectionGrammar    Section = "grammar"
	SectionVocabulary Section = "vocabulary"
	SectionReading    Section = "reading"
	SectionWriting    Section = "writing"
	SectionEssay      Section = "essay"
)

// Sections lists the known sections in test order.
var Sections = []Section{SectionGrammar, SectionVocabulary, SectionReading, SectionWriting, SectionEssay}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// TestItem is a question of the fixed diagnostic test.
// Options carry their label as a prefix, e.g. "a) had already started".
type TestItem struct {
	ID            int      `json:"id"`
	Section       Section  `json:"section"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// OptionLabel extracts the lower-case letter label of an option, or "" if
// the option is not labeled a-d.
func OptionLabel(option string) string {
	option = strings.TrimSpace(option)
	if option == "" {
		return ""
	}
	label := strings.ToLower(option[:1])
	if label < "a" || label > "d" {
		return ""
	}
	return label
}

// Labels returns the option labels in order, skipping unlabeled options.
func (q TestItem) Labels() []string {
	labels := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if l := OptionLabel(opt); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// Clone returns a deep copy.
func (q TestItem) Clone() TestItem {
	q.Options = append([]string(nil), q.Options...)
	return q
}
