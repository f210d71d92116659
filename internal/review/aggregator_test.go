package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tutorbot/internal/conversation"
	"github.com/example/tutorbot/pkg/models"
)

type fakeOracle struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (f *fakeOracle) Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error) {
	f.calls++
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeAnalyzer struct {
	results []*models.AnalysisResult
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, profile models.Profile, utterance string) *models.AnalysisResult {
	if len(f.results) == 0 {
		return &models.AnalysisResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakeTracker struct {
	statsSessionID int64
	statsMistakes  int
	statsVocab     int
	statsStreak    int
	statsCalls     int
}

func (f *fakeTracker) GetOrCreateUser(ctx context.Context, name string) (int64, error)     { return 1, nil }
func (f *fakeTracker) GetOrCreateLanguage(ctx context.Context, name string) (int64, error) { return 2, nil }
func (f *fakeTracker) StartSession(ctx context.Context, userID, languageID int64, proficiencyLevel, scene string) (int64, error) {
	return 7, nil
}
func (f *fakeTracker) EndSession(ctx context.Context, sessionID int64) error { return nil }
func (f *fakeTracker) SaveSessionStats(ctx context.Context, sessionID int64, interactions, mistakeCount, vocabCount, streak int) error {
	f.statsCalls++
	f.statsSessionID = sessionID
	f.statsMistakes = mistakeCount
	f.statsVocab = vocabCount
	f.statsStreak = streak
	return nil
}
func (f *fakeTracker) AddMistake(ctx context.Context, userID, languageID int64, m *models.Mistake) error {
	return nil
}
func (f *fakeTracker) TrackVocabulary(ctx context.Context, userID, languageID int64, word, translation, usageContext string) error {
	return nil
}
func (f *fakeTracker) UpdateVocabularyUsage(ctx context.Context, userID, languageID int64, word string) error {
	return nil
}

// engineWithMistakes drives a real engine through analyzed turns so the
// review sees accumulated state.
func engineWithMistakes(t *testing.T, convOracle conversation.Oracle, tracker conversation.Tracker, batches ...[]models.Mistake) *conversation.Engine {
	t.Helper()

	results := make([]*models.AnalysisResult, 0, len(batches))
	for _, batch := range batches {
		results = append(results, &models.AnalysisResult{HasMistakes: len(batch) > 0, Mistakes: batch})
	}

	engine := conversation.NewEngine(convOracle, &fakeAnalyzer{results: results}, tracker, models.Profile{
		UserName:         "Ana",
		NativeLanguage:   "Spanish",
		LearningLanguage: "French",
		Scenario:         "at a restaurant",
	})

	_, err := engine.Start(context.Background())
	require.NoError(t, err)

	// opening turn is never analyzed
	_, _, err = engine.SendMessage(context.Background(), "Bonjour!")
	require.NoError(t, err)
	for range batches {
		_, _, err = engine.SendMessage(context.Background(), "...")
		require.NoError(t, err)
	}
	return engine
}

func TestBuildReviewNoMistakesSkipsOracle(t *testing.T) {
	oracle := &fakeOracle{reply: "ok"}
	tracker := &fakeTracker{}
	engine := engineWithMistakes(t, oracle, tracker)
	oracleCallsAfterConversation := oracle.calls

	result, err := New(oracle, tracker).BuildReview(context.Background(), engine)
	require.NoError(t, err)

	assert.True(t, result.NoMistakes)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, oracleCallsAfterConversation, oracle.calls, "review must not call the oracle")
	assert.Zero(t, tracker.statsCalls)
}

func TestBuildReviewGroupsByCategoryInFirstSeenOrder(t *testing.T) {
	oracle := &fakeOracle{reply: "practice articles daily"}
	tracker := &fakeTracker{}
	engine := engineWithMistakes(t, oracle, tracker,
		[]models.Mistake{
			{Mistake: "la pain", Correction: "le pain", Category: "grammar"},
			{Mistake: "je veux le bill", Correction: "je veux l'addition", Category: "vocabulary"},
		},
		[]models.Mistake{
			{Mistake: "un baguette", Correction: "une baguette", Category: "grammar"},
		},
	)

	result, err := New(oracle, tracker).BuildReview(context.Background(), engine)
	require.NoError(t, err)

	assert.False(t, result.NoMistakes)
	require.Len(t, result.Mistakes, 3)
	assert.Equal(t, []models.CategoryCount{
		{Category: "grammar", Count: 2},
		{Category: "vocabulary", Count: 1},
	}, result.Categories)
	assert.Equal(t, "practice articles daily", result.Suggestions)

	// grouped mistakes feed the suggestion prompt
	assert.Contains(t, oracle.lastUser, "grammar (2 mistakes)")
	assert.Contains(t, oracle.lastUser, "vocabulary (1 mistakes)")

	// stats land on the session row opened at start
	assert.Equal(t, 1, tracker.statsCalls)
	assert.Equal(t, int64(7), tracker.statsSessionID)
	assert.Equal(t, 3, tracker.statsMistakes)
}

func TestBuildReviewUncategorizedBucket(t *testing.T) {
	oracle := &fakeOracle{reply: "keep going"}
	tracker := &fakeTracker{}
	engine := engineWithMistakes(t, oracle, tracker,
		[]models.Mistake{{Mistake: "x", Correction: "y"}},
	)

	result, err := New(oracle, tracker).BuildReview(context.Background(), engine)
	require.NoError(t, err)
	require.Len(t, result.Categories, 1)
	assert.Equal(t, models.UncategorizedCategory, result.Categories[0].Category)
}

func TestBuildReviewOracleFailure(t *testing.T) {
	oracle := &fakeOracle{reply: "ok"}
	tracker := &fakeTracker{}
	engine := engineWithMistakes(t, oracle, tracker,
		[]models.Mistake{{Mistake: "x", Correction: "y", Category: "grammar"}},
	)

	oracle.err = errors.New("oracle down")
	_, err := New(oracle, tracker).BuildReview(context.Background(), engine)
	assert.ErrorIs(t, err, conversation.ErrGenerationFailed)
	assert.Zero(t, tracker.statsCalls)
}
