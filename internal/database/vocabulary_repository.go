package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/tutorbot/pkg/models"
)

// VocabularyRepository handles database operations for learned vocabulary
type VocabularyRepository struct{}

// NewVocabularyRepository creates a new repository instance
func NewVocabularyRepository() *VocabularyRepository {
	return &VocabularyRepository{}
}

// Track records a newly learned word or phrase.
func (r *VocabularyRepository) Track(ctx context.Context, userID, languageID int64, word, translation, usageContext string) error {
	query := DB.Rebind(`
		INSERT INTO vocabulary_learned (user_id, language_id, word_or_phrase, translation, context)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := DB.ExecContext(ctx, query, userID, languageID, word, translation, usageContext); err != nil {
		return fmt.Errorf("failed to track vocabulary: %v", err)
	}
	return nil
}

// UpdateUsage bumps the usage counter for a word and recomputes its mastery
// level from the fixed thresholds.
func (r *VocabularyRepository) UpdateUsage(ctx context.Context, userID, languageID int64, word string) error {
	var timesUsed int
	lookup := DB.Rebind(`
		SELECT times_used FROM vocabulary_learned
		WHERE user_id = ? AND language_id = ? AND word_or_phrase = ?
	`)
	err := DB.GetContext(ctx, &timesUsed, lookup, userID, languageID, word)
	if err == sql.ErrNoRows {
		// Unknown word, nothing to update
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up vocabulary usage: %v", err)
	}

	timesUsed++
	update := DB.Rebind(`
		UPDATE vocabulary_learned
		SET times_used = ?, last_used = CURRENT_TIMESTAMP, mastery_level = ?
		WHERE user_id = ? AND language_id = ? AND word_or_phrase = ?
	`)
	if _, err := DB.ExecContext(ctx, update, timesUsed, models.MasteryLevel(timesUsed), userID, languageID, word); err != nil {
		return fmt.Errorf("failed to update vocabulary usage: %v", err)
	}
	return nil
}

// ForUser returns all vocabulary entries for a user and language, most
// recently learned first.
func (r *VocabularyRepository) ForUser(ctx context.Context, userID, languageID int64) ([]models.VocabularyEntry, error) {
	query := DB.Rebind(`
		SELECT id, user_id, language_id, word_or_phrase, translation, context, learned_at, last_used, times_used, mastery_level
		FROM vocabulary_learned
		WHERE user_id = ? AND language_id = ?
		ORDER BY learned_at DESC
	`)
	var entries []models.VocabularyEntry
	if err := DB.SelectContext(ctx, &entries, query, userID, languageID); err != nil {
		return nil, fmt.Errorf("failed to get vocabulary: %v", err)
	}
	return entries, nil
}
