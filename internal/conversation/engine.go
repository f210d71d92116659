package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/example/tutorbot/pkg/models"
)

// ErrGenerationFailed is returned when the oracle cannot produce a tutoring
// reply. Session state stays consistent: the user turn is kept, no
// assistant turn is appended.
var ErrGenerationFailed = errors.New("reply generation failed")

// Oracle is the completion backend used for tutoring replies.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error)
}

// MistakeAnalyzer inspects one utterance for linguistic mistakes.
type MistakeAnalyzer interface {
	Analyze(ctx context.Context, profile models.Profile, utterance string) *models.AnalysisResult
}

// Tracker is the persistence surface the engine needs.
type Tracker interface {
	GetOrCreateUser(ctx context.Context, name string) (int64, error)
	GetOrCreateLanguage(ctx context.Context, name string) (int64, error)
	StartSession(ctx context.Context, userID, languageID int64, proficiencyLevel, scene string) (int64, error)
	EndSession(ctx context.Context, sessionID int64) error
	SaveSessionStats(ctx context.Context, sessionID int64, interactions, mistakeCount, vocabCount, streak int) error
	AddMistake(ctx context.Context, userID, languageID int64, m *models.Mistake) error
	TrackVocabulary(ctx context.Context, userID, languageID int64, word, translation, usageContext string) error
	UpdateVocabularyUsage(ctx context.Context, userID, languageID int64, word string) error
}

// Engine owns the state of one tutoring conversation: the learner profile,
// the full turn history, and the mistakes and vocabulary accumulated so
// far. Callers must serialize calls per session; the internal mutex only
// keeps a misbehaving caller from corrupting state.
type Engine struct {
	mu sync.Mutex

	profile  models.Profile
	oracle   Oracle
	analyzer MistakeAnalyzer
	tracker  Tracker

	userID     int64
	languageID int64
	sessionID  int64

	history      []models.Turn
	mistakes     []models.Mistake
	vocabulary   map[string]struct{}
	streak       int
	interactions int
	userTurns    int
}

// NewEngine creates an engine for one learner profile. State is fully
// constructed here; Start completes the persistent side.
func NewEngine(oracle Oracle, analyzer MistakeAnalyzer, tracker Tracker, profile models.Profile) *Engine {
	profile.Normalize()
	return &Engine{
		profile:    profile,
		oracle:     oracle,
		analyzer:   analyzer,
		tracker:    tracker,
		vocabulary: make(map[string]struct{}),
	}
}

// Start resolves the user and language identities, opens the durable
// session row and returns the greeting, which is recorded as the first
// assistant turn.
func (e *Engine) Start(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	userID, err := e.tracker.GetOrCreateUser(ctx, e.profile.UserName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user: %v", err)
	}
	languageID, err := e.tracker.GetOrCreateLanguage(ctx, e.profile.LearningLanguage)
	if err != nil {
		return "", fmt.Errorf("failed to resolve language: %v", err)
	}
	sessionID, err := e.tracker.StartSession(ctx, userID, languageID, e.profile.ProficiencyLevel, e.profile.Scenario)
	if err != nil {
		return "", fmt.Errorf("failed to open session: %v", err)
	}

	e.userID = userID
	e.languageID = languageID
	e.sessionID = sessionID

	welcome := fmt.Sprintf(
		"Hello %s! Let's practice %s in a %s scenario. I'll help you learn and provide feedback on your language use. Feel free to start the conversation!",
		e.profile.UserName, e.profile.LearningLanguage, e.profile.Scenario,
	)
	e.history = append(e.history, models.Turn{Role: models.RoleAssistant, Content: welcome})
	return welcome, nil
}

// SendMessage processes one learner utterance: appends the user turn, runs
// mistake analysis (skipped for the opening message, degraded on failure),
// and asks the oracle for the tutoring reply with the full history as
// context. On oracle failure the user turn is retained and
// ErrGenerationFailed is returned.
func (e *Engine) SendMessage(ctx context.Context, text string) (string, []models.Mistake, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, models.Turn{Role: models.RoleUser, Content: text})
	e.userTurns++

	// The skip is keyed on user turns, not completed exchanges: a retry
	// after a failed reply is not an opening message.
	var turnMistakes []models.Mistake
	if e.userTurns > 1 {
		result := e.analyzer.Analyze(ctx, e.profile, text)
		if result.HasMistakes {
			for i := range result.Mistakes {
				m := result.Mistakes[i]
				e.mistakes = append(e.mistakes, m)
				turnMistakes = append(turnMistakes, m)
				if err := e.tracker.AddMistake(ctx, e.userID, e.languageID, &m); err != nil {
					log.Printf("Warning: failed to persist mistake: %v", err)
				}
			}
			e.streak = 0
		} else {
			e.streak++
		}
	}

	reply, err := e.oracle.Complete(ctx, systemPrompt(e.profile), text, transcript(e.history))
	if err != nil {
		log.Printf("Error getting tutoring reply: %v", err)
		return "", turnMistakes, ErrGenerationFailed
	}

	e.history = append(e.history, models.Turn{Role: models.RoleAssistant, Content: reply})
	e.interactions++
	return reply, turnMistakes, nil
}

// TrackVocabulary records a learned word or phrase. A repeated word counts
// as usage and feeds the mastery level instead of a duplicate entry.
func (e *Engine) TrackVocabulary(ctx context.Context, word, translation, usageContext string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, known := e.vocabulary[word]; known {
		return e.tracker.UpdateVocabularyUsage(ctx, e.userID, e.languageID, word)
	}
	e.vocabulary[word] = struct{}{}
	return e.tracker.TrackVocabulary(ctx, e.userID, e.languageID, word, translation, usageContext)
}

// Close marks the durable session row as finished.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.EndSession(ctx, e.sessionID)
}

// Profile returns the learner profile.
func (e *Engine) Profile() models.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// Mistakes returns a copy of the mistakes accumulated this session, in
// detection order.
func (e *Engine) Mistakes() []models.Mistake {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Mistake, len(e.mistakes))
	copy(out, e.mistakes)
	return out
}

// History returns a copy of the turn history.
func (e *Engine) History() []models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Turn, len(e.history))
	copy(out, e.history)
	return out
}

// SessionID returns the durable session row id.
func (e *Engine) SessionID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// UserID returns the resolved user identity.
func (e *Engine) UserID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// LanguageID returns the resolved language identity.
func (e *Engine) LanguageID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.languageID
}

// Interactions returns the number of completed user/assistant exchanges.
func (e *Engine) Interactions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interactions
}

// VocabularyCount returns the number of distinct words learned.
func (e *Engine) VocabularyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vocabulary)
}

// Streak returns the current run of consecutive correct turns.
func (e *Engine) Streak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streak
}
