package models

import (
	"database/sql"
	"time"
)

// Conversation roles as they appear in the turn history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Proficiency levels supported by the tutor
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Scenarios offers the conversation settings a learner can pick from.
// Scenario is free text in the data model; these are the presets.
var Scenarios = []string{
	"at a restaurant",
	"shopping at a store",
	"asking for directions",
	"meeting new people",
	"at a hotel",
}

// DefaultScenario is used when the caller does not pick a scenario.
const DefaultScenario = "at a restaurant"

// Profile describes the learner starting a session
type Profile struct {
	UserName         string `json:"name"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
	ProficiencyLevel string `json:"proficiency_level"`
	Scenario         string `json:"scenario"`
}

// Normalize fills defaults for the optional profile fields.
func (p *Profile) Normalize() {
	switch p.ProficiencyLevel {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		p.ProficiencyLevel = LevelBeginner
	}
	if p.Scenario == "" {
		p.Scenario = DefaultScenario
	}
}

// Turn is one entry in the conversation history
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionRecord represents a durable row in the sessions table
type SessionRecord struct {
	ID                int64        `json:"id" db:"id"`
	UserID            int64        `json:"user_id" db:"user_id"`
	LanguageID        int64        `json:"language_id" db:"language_id"`
	ProficiencyLevel  string       `json:"proficiency_level" db:"proficiency_level"`
	Scene             string       `json:"scene" db:"scene"`
	StartTime         time.Time    `json:"start_time" db:"start_time"`
	EndTime           sql.NullTime `json:"end_time" db:"end_time"`
	TotalInteractions int          `json:"total_interactions" db:"total_interactions"`
	MistakeCount      int          `json:"mistake_count" db:"mistake_count"`
	VocabularyLearned int          `json:"vocabulary_learned" db:"vocabulary_learned"`
	LearningStreak    int          `json:"learning_streak" db:"learning_streak"`
	AccuracyRate      float64      `json:"accuracy_rate" db:"accuracy_rate"`
}

// AccuracyRate derives the session accuracy from mistake and vocabulary
// counts. An empty session counts as fully accurate.
func AccuracyRate(mistakes, vocabulary int) float64 {
	total := mistakes + vocabulary
	if total == 0 {
		return 1.0
	}
	return 1.0 - float64(mistakes)/float64(total)
}
