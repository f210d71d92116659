package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The users, languages and mistake_categories tables all share the same
// get-or-create contract: a name resolves to exactly one id for the life
// of the store.
func getOrCreateByName(ctx context.Context, table, name string) (int64, error) {
	var id int64
	query := DB.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table))

	err := DB.GetContext(ctx, &id, query, name)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up %s: %v", table, err)
	}

	if DB.DriverName() == "postgres" {
		insert := fmt.Sprintf("INSERT INTO %s (name) VALUES ($1) RETURNING id", table)
		if err := DB.GetContext(ctx, &id, insert, name); err != nil {
			return 0, fmt.Errorf("failed to create %s entry: %v", table, err)
		}
		return id, nil
	}

	result, err := DB.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", table), name)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s entry: %v", table, err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %v", err)
	}
	return id, nil
}

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetOrCreate returns the id for a user name, creating the row if needed.
func (r *UserRepository) GetOrCreate(ctx context.Context, name string) (int64, error) {
	return getOrCreateByName(ctx, "users", name)
}

// LanguageRepository handles database operations for languages
type LanguageRepository struct{}

// NewLanguageRepository creates a new repository instance
func NewLanguageRepository() *LanguageRepository {
	return &LanguageRepository{}
}

// GetOrCreate returns the id for a language name, creating the row if needed.
func (r *LanguageRepository) GetOrCreate(ctx context.Context, name string) (int64, error) {
	return getOrCreateByName(ctx, "languages", name)
}

// CategoryRepository handles database operations for mistake categories
type CategoryRepository struct{}

// NewCategoryRepository creates a new repository instance
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

// GetOrCreate returns the id for a category name, creating the row if needed.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string) (int64, error) {
	return getOrCreateByName(ctx, "mistake_categories", name)
}
