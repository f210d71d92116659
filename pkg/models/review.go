package models

// CategoryCount is a per-category mistake tally. Reviews carry these in a
// slice so the first-seen category order survives JSON encoding.
type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Count    int    `json:"count" db:"count"`
}

// Review is the end-of-session report: mistakes grouped by category plus
// the coach's improvement suggestions.
type Review struct {
	NoMistakes  bool            `json:"no_mistakes"`
	Message     string          `json:"message,omitempty"`
	Mistakes    []Mistake       `json:"mistakes,omitempty"`
	Categories  []CategoryCount `json:"categories,omitempty"`
	Suggestions string          `json:"suggestions,omitempty"`
}

// ProgressReport aggregates a learner's history for one language.
type ProgressReport struct {
	TotalSessions     int     `json:"total_sessions" db:"total_sessions"`
	TotalVocabulary   int     `json:"total_vocabulary" db:"total_vocabulary"`
	BestStreak        int     `json:"best_streak" db:"best_streak"`
	AverageAccuracy   float64 `json:"average_accuracy" db:"average_accuracy"`
	MistakeCategories int     `json:"mistake_categories" db:"mistake_categories"`
	ActiveVocabulary  int     `json:"active_vocabulary" db:"active_vocabulary"`
}
