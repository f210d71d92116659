package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/example/tutorbot/pkg/models"
)

// Oracle is the completion backend the analyzer asks for structured
// mistake feedback.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error)
}

// Analyzer turns one user utterance into zero or more structured mistake
// records. Analysis is best-effort supplementary feedback: any oracle or
// parse failure degrades to "no mistakes this turn".
type Analyzer struct {
	oracle Oracle
}

// New creates an analyzer over the given oracle.
func New(oracle Oracle) *Analyzer {
	return &Analyzer{oracle: oracle}
}

// Analyze inspects an utterance for linguistic mistakes. The returned
// result is never nil; failures are logged and yield an empty result.
func (a *Analyzer) Analyze(ctx context.Context, profile models.Profile, utterance string) *models.AnalysisResult {
	raw, err := a.oracle.Complete(ctx, analysisPrompt(profile), utterance, "")
	if err != nil {
		log.Printf("Warning: mistake analysis failed: %v", err)
		return &models.AnalysisResult{}
	}

	result, ok := decodeAnalysis(raw)
	if !ok {
		log.Printf("Warning: could not parse mistake analysis response, skipping")
		return &models.AnalysisResult{}
	}
	return result
}

// decodeAnalysis parses the oracle's response, which is untrusted text.
// Models often wrap JSON in markdown fences or prose, so the decoder works
// on the outermost braced block.
func decodeAnalysis(raw string) (*models.AnalysisResult, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return nil, false
	}
	if result.HasMistakes && len(result.Mistakes) == 0 {
		result.HasMistakes = false
	}
	return &result, true
}

// analysisPrompt builds the system prompt instructing the oracle to answer
// with the fixed mistake-report JSON schema.
func analysisPrompt(profile models.Profile) string {
	return fmt.Sprintf(`You are an expert language teacher analyzing text in %s.
The user's native language is %s and their proficiency level is %s.

Provide a comprehensive analysis of the user's input:
1. Check for all types of mistakes:
   - Grammar
   - Vocabulary
   - Pronunciation (if relevant)
   - Word order
   - Conjugation
   - Articles/Gender
   - Register/Formality

2. For each mistake found, provide:
   - The incorrect portion
   - The correction
   - A detailed explanation in %s
   - The specific rule being applied
   - Common pitfalls related to this mistake
   - 2 example sentences showing correct usage

Format your response as JSON:
{
    "has_mistakes": true/false,
    "mistakes": [
        {
            "mistake": "incorrect text",
            "correction": "corrected text",
            "explanation": "detailed explanation",
            "rule": "grammar rule or pattern",
            "category": "grammar/vocabulary/etc.",
            "examples": ["example1", "example2"],
            "common_pitfalls": "related mistakes to watch for"
        }
    ],
    "positive_feedback": "what the user did well",
    "learning_tips": "specific suggestions for improvement"
}`,
		profile.LearningLanguage,
		profile.NativeLanguage,
		profile.ProficiencyLevel,
		profile.NativeLanguage,
	)
}
