package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/tutorbot/pkg/models"
)

// MistakeRepository handles database operations for mistakes
type MistakeRepository struct{}

// NewMistakeRepository creates a new repository instance
func NewMistakeRepository() *MistakeRepository {
	return &MistakeRepository{}
}

// Add inserts a mistake for the given user/language/category ids. Example
// sentences are stored as a JSON array.
func (r *MistakeRepository) Add(ctx context.Context, userID, languageID, categoryID int64, m *models.Mistake) error {
	examplesJSON, err := json.Marshal(m.Examples)
	if err != nil {
		return fmt.Errorf("failed to marshal examples: %v", err)
	}

	query := DB.Rebind(`
		INSERT INTO mistakes (user_id, language_id, mistake, correction, explanation, rule, category_id, examples, common_pitfalls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = DB.ExecContext(ctx, query,
		userID,
		languageID,
		m.Mistake,
		m.Correction,
		m.Explanation,
		m.Rule,
		categoryID,
		string(examplesJSON),
		m.CommonPitfalls,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mistake: %v", err)
	}
	return nil
}

// ForUser returns a user's mistakes, most recent first, optionally filtered
// by language. The limit is caller-supplied.
func (r *MistakeRepository) ForUser(ctx context.Context, userName, languageName string, limit int) ([]models.Mistake, error) {
	query := `
		SELECT m.mistake, m.correction, m.explanation, m.rule, mc.name AS category, m.examples, m.common_pitfalls, m.timestamp
		FROM mistakes m
		JOIN users u ON m.user_id = u.id
		JOIN languages l ON m.language_id = l.id
		JOIN mistake_categories mc ON m.category_id = mc.id
		WHERE u.name = ?
	`
	params := []interface{}{userName}

	if languageName != "" {
		query += " AND l.name = ?"
		params = append(params, languageName)
	}

	// id breaks ties between mistakes logged in the same second
	query += " ORDER BY m.timestamp DESC, m.id DESC LIMIT ?"
	params = append(params, limit)

	rows, err := DB.QueryContext(ctx, DB.Rebind(query), params...)
	if err != nil {
		return nil, fmt.Errorf("failed to get mistakes: %v", err)
	}
	defer rows.Close()

	var mistakes []models.Mistake
	for rows.Next() {
		var m models.Mistake
		var examplesJSON string
		if err := rows.Scan(&m.Mistake, &m.Correction, &m.Explanation, &m.Rule, &m.Category, &examplesJSON, &m.CommonPitfalls, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan mistake: %v", err)
		}
		if examplesJSON != "" && examplesJSON != "null" {
			if err := json.Unmarshal([]byte(examplesJSON), &m.Examples); err != nil {
				return nil, fmt.Errorf("failed to parse examples: %v", err)
			}
		}
		mistakes = append(mistakes, m)
	}
	return mistakes, rows.Err()
}

// StatsByCategory returns mistake counts grouped by category for a user,
// optionally filtered by language, most frequent first.
func (r *MistakeRepository) StatsByCategory(ctx context.Context, userName, languageName string) ([]models.CategoryCount, error) {
	query := `
		SELECT mc.name AS category, COUNT(*) AS count
		FROM mistakes m
		JOIN users u ON m.user_id = u.id
		JOIN languages l ON m.language_id = l.id
		JOIN mistake_categories mc ON m.category_id = mc.id
		WHERE u.name = ?
	`
	params := []interface{}{userName}

	if languageName != "" {
		query += " AND l.name = ?"
		params = append(params, languageName)
	}

	query += " GROUP BY mc.name ORDER BY count DESC"

	var stats []models.CategoryCount
	if err := DB.SelectContext(ctx, &stats, DB.Rebind(query), params...); err != nil {
		return nil, fmt.Errorf("failed to get mistake stats: %v", err)
	}
	return stats, nil
}
