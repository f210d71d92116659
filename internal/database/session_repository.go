package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/tutorbot/pkg/models"
)

// SessionRepository handles database operations for learning sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Start inserts an open session row and returns its id.
func (r *SessionRepository) Start(ctx context.Context, userID, languageID int64, proficiencyLevel, scene string) (int64, error) {
	if DB.DriverName() == "postgres" {
		var id int64
		query := `
			INSERT INTO sessions (user_id, language_id, proficiency_level, scene)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		if err := DB.GetContext(ctx, &id, query, userID, languageID, proficiencyLevel, scene); err != nil {
			return 0, fmt.Errorf("failed to start session: %v", err)
		}
		return id, nil
	}

	result, err := DB.ExecContext(ctx, `
		INSERT INTO sessions (user_id, language_id, proficiency_level, scene)
		VALUES (?, ?, ?, ?)
	`, userID, languageID, proficiencyLevel, scene)
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %v", err)
	}
	return id, nil
}

// SaveStats closes the session row identified by sessionID and writes the
// aggregate counters. The accuracy rate is derived from the mistake and
// vocabulary counts.
func (r *SessionRepository) SaveStats(ctx context.Context, sessionID int64, interactions, mistakeCount, vocabCount, streak int) error {
	query := DB.Rebind(`
		UPDATE sessions
		SET end_time = CURRENT_TIMESTAMP,
			total_interactions = ?,
			mistake_count = ?,
			vocabulary_learned = ?,
			learning_streak = ?,
			accuracy_rate = ?
		WHERE id = ?
	`)
	_, err := DB.ExecContext(ctx, query,
		interactions,
		mistakeCount,
		vocabCount,
		streak,
		models.AccuracyRate(mistakeCount, vocabCount),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to save session stats: %v", err)
	}
	return nil
}

// End marks the session row as finished without touching the counters.
// Closing an already closed or unknown session is not an error.
func (r *SessionRepository) End(ctx context.Context, sessionID int64) error {
	query := DB.Rebind("UPDATE sessions SET end_time = CURRENT_TIMESTAMP WHERE id = ? AND end_time IS NULL")
	if _, err := DB.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %v", err)
	}
	return nil
}

// Get returns one session row by id.
func (r *SessionRepository) Get(ctx context.Context, sessionID int64) (*models.SessionRecord, error) {
	var record models.SessionRecord
	query := DB.Rebind(`
		SELECT id, user_id, language_id, proficiency_level, scene, start_time, end_time,
			total_interactions, mistake_count, vocabulary_learned, learning_streak, accuracy_rate
		FROM sessions WHERE id = ?
	`)
	if err := DB.GetContext(ctx, &record, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	return &record, nil
}

// UserProgress aggregates a user's history for one language into a
// progress report.
func (r *SessionRepository) UserProgress(ctx context.Context, userID, languageID int64) (*models.ProgressReport, error) {
	var report models.ProgressReport
	var totalVocab, bestStreak sql.NullInt64
	var avgAccuracy sql.NullFloat64

	query := DB.Rebind(`
		SELECT COUNT(DISTINCT id) AS total_sessions,
			SUM(vocabulary_learned) AS total_vocab,
			MAX(learning_streak) AS best_streak,
			AVG(accuracy_rate) AS avg_accuracy
		FROM sessions
		WHERE user_id = ? AND language_id = ?
	`)
	err := DB.QueryRowContext(ctx, query, userID, languageID).
		Scan(&report.TotalSessions, &totalVocab, &bestStreak, &avgAccuracy)
	if err != nil {
		return nil, fmt.Errorf("failed to get session aggregates: %v", err)
	}
	report.TotalVocabulary = int(totalVocab.Int64)
	report.BestStreak = int(bestStreak.Int64)
	report.AverageAccuracy = avgAccuracy.Float64

	catQuery := DB.Rebind("SELECT COUNT(DISTINCT category_id) FROM mistakes WHERE user_id = ? AND language_id = ?")
	if err := DB.GetContext(ctx, &report.MistakeCategories, catQuery, userID, languageID); err != nil {
		return nil, fmt.Errorf("failed to count mistake categories: %v", err)
	}

	vocabQuery := DB.Rebind("SELECT COUNT(DISTINCT word_or_phrase) FROM vocabulary_learned WHERE user_id = ? AND language_id = ?")
	if err := DB.GetContext(ctx, &report.ActiveVocabulary, vocabQuery, userID, languageID); err != nil {
		return nil, fmt.Errorf("failed to count active vocabulary: %v", err)
	}

	return &report, nil
}
