package models

import "time"

// Mistake is one linguistic error detected in a user utterance, together
// with the correction and the pedagogical explanation in the learner's
// native language.
type Mistake struct {
	ID             int64     `json:"id,omitempty" db:"id"`
	Mistake        string    `json:"mistake" db:"mistake"`
	Correction     string    `json:"correction" db:"correction"`
	Explanation    string    `json:"explanation" db:"explanation"`
	Rule           string    `json:"rule" db:"rule"`
	Category       string    `json:"category" db:"category"`
	Examples       []string  `json:"examples,omitempty" db:"-"`
	CommonPitfalls string    `json:"common_pitfalls,omitempty" db:"common_pitfalls"`
	Timestamp      time.Time `json:"timestamp,omitempty" db:"timestamp"`
}

// UncategorizedCategory is the sentinel bucket for mistakes the analyzer
// returned without a category label.
const UncategorizedCategory = "Uncategorized"

// AnalysisResult is the structured outcome of one mistake-analysis call.
// It mirrors the JSON schema the oracle is instructed to produce.
type AnalysisResult struct {
	HasMistakes      bool      `json:"has_mistakes"`
	Mistakes         []Mistake `json:"mistakes"`
	PositiveFeedback string    `json:"positive_feedback"`
	LearningTips     string    `json:"learning_tips"`
}

// User is a deduplicated learner identity
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Language is a deduplicated language identity
type Language struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// MistakeCategory is a deduplicated mistake-category identity
type MistakeCategory struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
