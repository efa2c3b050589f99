package bot

// Config holds bot-level tunables.
type Config struct {
	// Number of chat turns kept as context for tutor and chat replies
	HistoryLimit int
	// Longest text sent in a single message; longer replies are split
	MaxMessageLength int
	// Items per exercise session
	BatchSize int
	// Text shown by the teacher contact button; empty means the built-in text
	TeacherContact string
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *Config {
	return &Config{
		HistoryLimit:     20,
		MaxMessageLength: 4000,
		BatchSize:        5,
	}
}
