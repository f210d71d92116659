package models

import (
	"database/sql"
	"time"
)

// VocabularyEntry tracks one word or phrase a learner picked up, with
// usage statistics driving the mastery level.
type VocabularyEntry struct {
	ID           int64        `json:"id" db:"id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	LanguageID   int64        `json:"language_id" db:"language_id"`
	WordOrPhrase string       `json:"word_or_phrase" db:"word_or_phrase"`
	Translation  string       `json:"translation" db:"translation"`
	Context      string       `json:"context" db:"context"`
	LearnedAt    time.Time    `json:"learned_at" db:"learned_at"`
	LastUsed     sql.NullTime `json:"last_used" db:"last_used"`
	TimesUsed    int          `json:"times_used" db:"times_used"`
	MasteryLevel int          `json:"mastery_level" db:"mastery_level"`
}

// MasteryLevel maps a usage count onto the coarse 0-3 mastery scale.
func MasteryLevel(timesUsed int) int {
	switch {
	case timesUsed >= 10:
		return 3
	case timesUsed >= 5:
		return 2
	case timesUsed >= 2:
		return 1
	default:
		return 0
	}
}
