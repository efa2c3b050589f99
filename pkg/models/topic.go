package models

// TopicStat counts answers for one section or inferred topic
type TopicStat struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Accuracy returns the share of correct answers in [0, 1].
func (s TopicStat) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}
