package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/example/tutorbot/internal/conversation"
	"github.com/example/tutorbot/pkg/models"
)

// Oracle is the completion backend asked for improvement suggestions.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error)
}

// StatsSaver persists the aggregate session counters.
type StatsSaver interface {
	SaveSessionStats(ctx context.Context, sessionID int64, interactions, mistakeCount, vocabCount, streak int) error
}

// Aggregator builds the end-of-session review: mistakes grouped by
// category plus coaching suggestions from the oracle.
type Aggregator struct {
	oracle Oracle
	stats  StatsSaver
}

// New creates an aggregator.
func New(oracle Oracle, stats StatsSaver) *Aggregator {
	return &Aggregator{oracle: oracle, stats: stats}
}

// BuildReview assembles the review for one session. A mistake-free session
// short-circuits without an oracle call. Otherwise exactly one suggestions
// call is made and the session counters are written to the session row
// opened at start; a failed stats write is logged, not fatal.
func (a *Aggregator) BuildReview(ctx context.Context, engine *conversation.Engine) (*models.Review, error) {
	mistakes := engine.Mistakes()
	if len(mistakes) == 0 {
		return &models.Review{
			NoMistakes: true,
			Message:    "Great job! You didn't make any mistakes in this conversation.",
		}, nil
	}

	counts, grouped := groupByCategory(mistakes)

	profile := engine.Profile()
	suggestions, err := a.oracle.Complete(ctx, suggestionPrompt(profile.LearningLanguage), describeGroups(counts, grouped), "")
	if err != nil {
		log.Printf("Error generating improvement suggestions: %v", err)
		return nil, conversation.ErrGenerationFailed
	}

	if err := a.stats.SaveSessionStats(ctx, engine.SessionID(), engine.Interactions(), len(mistakes), engine.VocabularyCount(), engine.Streak()); err != nil {
		log.Printf("Warning: failed to save session stats: %v", err)
	}

	return &models.Review{
		Mistakes:    mistakes,
		Categories:  counts,
		Suggestions: suggestions,
	}, nil
}

// groupByCategory buckets mistakes by category label, preserving the order
// in which each category was first seen.
func groupByCategory(mistakes []models.Mistake) ([]models.CategoryCount, map[string][]models.Mistake) {
	var order []string
	grouped := make(map[string][]models.Mistake)
	for _, m := range mistakes {
		category := m.Category
		if category == "" {
			category = models.UncategorizedCategory
		}
		if _, seen := grouped[category]; !seen {
			order = append(order, category)
		}
		grouped[category] = append(grouped[category], m)
	}

	counts := make([]models.CategoryCount, 0, len(order))
	for _, category := range order {
		counts = append(counts, models.CategoryCount{Category: category, Count: len(grouped[category])})
	}
	return counts, grouped
}

// describeGroups serializes the grouped mistakes as the user prompt for
// the suggestions call.
func describeGroups(counts []models.CategoryCount, grouped map[string][]models.Mistake) string {
	var sb strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&sb, "%s (%d mistakes):\n", c.Category, c.Count)
		for _, m := range grouped[c.Category] {
			fmt.Fprintf(&sb, "- %q should be %q (%s)\n", m.Mistake, m.Correction, m.Rule)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func suggestionPrompt(learningLanguage string) string {
	return fmt.Sprintf(`You are a language learning coach specializing in %s.
Based on the mistakes the user made during their conversation, provide:
1. 2-3 specific exercises or activities to improve in each category
2. Any resources (like apps, websites, or books) that would help with these specific areas
3. A short motivational message to encourage continued learning

Keep your response concise and practical.`, learningLanguage)
}
