package database

import (
	"context"

	"github.com/example/tutorbot/pkg/models"
)

// Store bundles the repositories behind the single surface the rest of the
// application talks to.
type Store struct {
	users      *UserRepository
	languages  *LanguageRepository
	categories *CategoryRepository
	mistakes   *MistakeRepository
	vocabulary *VocabularyRepository
	sessions   *SessionRepository
}

// NewStore creates a store over the global database connection.
func NewStore() *Store {
	return &Store{
		users:      NewUserRepository(),
		languages:  NewLanguageRepository(),
		categories: NewCategoryRepository(),
		mistakes:   NewMistakeRepository(),
		vocabulary: NewVocabularyRepository(),
		sessions:   NewSessionRepository(),
	}
}

// GetOrCreateUser resolves a user name to its id.
func (s *Store) GetOrCreateUser(ctx context.Context, name string) (int64, error) {
	return s.users.GetOrCreate(ctx, name)
}

// GetOrCreateLanguage resolves a language name to its id.
func (s *Store) GetOrCreateLanguage(ctx context.Context, name string) (int64, error) {
	return s.languages.GetOrCreate(ctx, name)
}

// StartSession opens a durable session row.
func (s *Store) StartSession(ctx context.Context, userID, languageID int64, proficiencyLevel, scene string) (int64, error) {
	return s.sessions.Start(ctx, userID, languageID, proficiencyLevel, scene)
}

// EndSession closes a session row without writing counters.
func (s *Store) EndSession(ctx context.Context, sessionID int64) error {
	return s.sessions.End(ctx, sessionID)
}

// SaveSessionStats closes a session row and writes its aggregate counters.
func (s *Store) SaveSessionStats(ctx context.Context, sessionID int64, interactions, mistakeCount, vocabCount, streak int) error {
	return s.sessions.SaveStats(ctx, sessionID, interactions, mistakeCount, vocabCount, streak)
}

// AddMistake persists one mistake, resolving the category by name. Mistakes
// without a category land in the Uncategorized bucket.
func (s *Store) AddMistake(ctx context.Context, userID, languageID int64, m *models.Mistake) error {
	category := m.Category
	if category == "" {
		category = models.UncategorizedCategory
	}
	categoryID, err := s.categories.GetOrCreate(ctx, category)
	if err != nil {
		return err
	}
	return s.mistakes.Add(ctx, userID, languageID, categoryID, m)
}

// TrackVocabulary records a newly learned word.
func (s *Store) TrackVocabulary(ctx context.Context, userID, languageID int64, word, translation, usageContext string) error {
	return s.vocabulary.Track(ctx, userID, languageID, word, translation, usageContext)
}

// UpdateVocabularyUsage bumps a word's usage counter and mastery level.
func (s *Store) UpdateVocabularyUsage(ctx context.Context, userID, languageID int64, word string) error {
	return s.vocabulary.UpdateUsage(ctx, userID, languageID, word)
}

// VocabularyForUser lists a user's vocabulary for one language.
func (s *Store) VocabularyForUser(ctx context.Context, userID, languageID int64) ([]models.VocabularyEntry, error) {
	return s.vocabulary.ForUser(ctx, userID, languageID)
}

// UserMistakes lists a user's mistakes, most recent first.
func (s *Store) UserMistakes(ctx context.Context, userName, languageName string, limit int) ([]models.Mistake, error) {
	return s.mistakes.ForUser(ctx, userName, languageName, limit)
}

// MistakeStatsByCategory tallies a user's mistakes per category.
func (s *Store) MistakeStatsByCategory(ctx context.Context, userName, languageName string) ([]models.CategoryCount, error) {
	return s.mistakes.StatsByCategory(ctx, userName, languageName)
}

// UserProgress aggregates a user's learning history for one language.
func (s *Store) UserProgress(ctx context.Context, userID, languageID int64) (*models.ProgressReport, error) {
	return s.sessions.UserProgress(ctx, userID, languageID)
}
