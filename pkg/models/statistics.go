package models

import "time"

// UserStats holds the simple per-user aggregates kept on the user record
type UserStats struct {
	TotalTestsTaken int       `json:"total_tests_taken"`
	AverageScore    float64   `json:"average_score"`
	TotalTimeSpent  float64   `json:"total_time_spent"` // seconds
	LastActivity    time.Time `json:"last_activity"`
}
