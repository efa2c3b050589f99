package models

import "time"

// User is the persisted per-user record.
type User struct {
	UserID           int64        `json:"user_id"` // Telegram User ID
	Username         string       `json:"username,omitempty"`
	FirstName        string       `json:"first_name,omitempty"`
	LastName         string       `json:"last_name,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	HasCompletedTest bool         `json:"has_completed_test"`
	LastTestDate     *time.Time   `json:"last_test_date,omitempty"`
	TestResults      []TestResult `json:"test_results"`
	Stats            UserStats    `json:"stats"`
}

// NewUser returns the default record for a user that has never been saved.
func NewUser(id int64, now time.Time) *User {
	return &User{
		UserID:      id,
		CreatedAt:   now,
		TestResults: []TestResult{},
		Stats:       UserStats{LastActivity: now},
	}
}

// AddTestResult appends a finished test and refreshes the aggregates.
func (u *User) AddTestResult(result TestResult, now time.Time) {
	u.TestResults = append(u.TestResults, result)
	u.HasCompletedTest = true
	u.LastTestDate = &now

	u.Stats.TotalTestsTaken++
	u.Stats.TotalTimeSpent += result.TimeSpent
	u.Stats.LastActivity = now

	total := 0
	for _, r := range u.TestResults {
		total += r.Score
	}
	u.Stats.AverageScore = float64(total) / float64(len(u.TestResults))
}

// MarkTestCompleted sets the completion flag without a result attached.
func (u *User) MarkTestCompleted(now time.Time) {
	u.HasCompletedTest = true
	if u.LastTestDate == nil {
		u.LastTestDate = &now
	}
	u.Stats.LastActivity = now
}

// Reconcile repairs the completion flag from the stored history and
// reports whether anything changed.
func (u *User) Reconcile() bool {
	if !u.HasCompletedTest && len(u.TestResults) > 0 {
		u.HasCompletedTest = true
		return true
	}
	return false
}

// Touch updates the profile fields and the last activity time.
func (u *User) Touch(username, firstName, lastName string, now time.Time) {
	if username != "" {
		u.Username = username
	}
	if firstName != "" {
		u.FirstName = firstName
	}
	if lastName != "" {
		u.LastName = lastName
	}
	u.Stats.LastActivity = now
}
