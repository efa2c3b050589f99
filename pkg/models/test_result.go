package models

import "time"

// TestAnswer is one logged answer of the diagnostic test
type TestAnswer struct {
	QuestionID    int     `json:"question_id"`
	UserAnswer    string  `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     bool    `json:"is_correct"`
	TimeSpent     float64 `json:"time_spent"`
	Section       string  `json:"section"`
	Topic         string  `json:"topic,omitempty"`
}

// TestResult is an append-only history entry of a finished diagnostic test
type TestResult struct {
	TestID         string               `json:"test_id"`
	TotalQuestions int                  `json:"total_questions"`
	CorrectAnswers int                  `json:"correct_answers"`
	Score          int                  `json:"score"`
	Percentage     float64              `json:"percentage"`
	TimeSpent      float64              `json:"time_spent"` // seconds
	CompletedAt    time.Time            `json:"completed_at"`
	Answers        []TestAnswer         `json:"answers"`
	Strengths      []string             `json:"strengths"`
	Weaknesses     []string             `json:"weaknesses"`
	SectionStats   map[string]TopicStat `json:"section_stats"`
	TopicStats     map[string]TopicStat `json:"topic_stats,omitempty"`
}

// IncorrectAnswers returns the number of wrong answers.
func (r TestResult) IncorrectAnswers() int {
	return r.TotalQuestions - r.CorrectAnswers
}
