package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tutorbot/internal/database"
	"github.com/example/tutorbot/internal/session"
	"github.com/example/tutorbot/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOracle struct {
	reply string
	err   error
}

func (f *fakeOracle) Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeAnalyzer struct {
	result *models.AnalysisResult
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, profile models.Profile, utterance string) *models.AnalysisResult {
	if f.result == nil {
		return &models.AnalysisResult{}
	}
	return f.result
}

func newTestRouter(t *testing.T, oracle *fakeOracle, analyzer *fakeAnalyzer) (*gin.Engine, *database.Store) {
	t.Helper()
	require.NoError(t, database.Open("sqlite3", ":memory:"))
	t.Cleanup(func() { database.Close() })

	store := database.NewStore()
	srv := New(session.NewRegistry(), store, oracle, analyzer)
	return srv.Router(), store
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := postJSON(router, "/api/start-session", gin.H{
		"name":              "Ana",
		"native_language":   "Spanish",
		"learning_language": "French",
		"proficiency_level": "beginner",
		"scenario":          "at a restaurant",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success   bool   `json:"success"`
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Message, "Ana")
	assert.Contains(t, resp.Message, "French")
	return resp.SessionID
}

func TestStartSessionValidation(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "Bonjour!"}, &fakeAnalyzer{})

	w := postJSON(router, "/api/start-session", gin.H{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageFlow(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "Très bien!"}, &fakeAnalyzer{})
	token := startSession(t, router)

	w := postJSON(router, "/api/send-message", gin.H{
		"session_id": token,
		"message":    "Bonjour, je voudrais un café.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool             `json:"success"`
		Response string           `json:"response"`
		Mistakes []models.Mistake `json:"mistakes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Très bien!", resp.Response)
	assert.NotNil(t, resp.Mistakes)
	assert.Empty(t, resp.Mistakes)
}

func TestSendMessageUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	w := postJSON(router, "/api/send-message", gin.H{
		"session_id": "no-such-token",
		"message":    "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageGenerationFailure(t *testing.T) {
	oracle := &fakeOracle{reply: "Bonjour!"}
	router, _ := newTestRouter(t, oracle, &fakeAnalyzer{})
	token := startSession(t, router)

	oracle.err = errors.New("oracle down")
	w := postJSON(router, "/api/send-message", gin.H{
		"session_id": token,
		"message":    "hello",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReviewNoMistakes(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})
	token := startSession(t, router)

	w := getPath(router, "/api/review?session_id="+token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string        `json:"status"`
		Review models.Review `json:"review"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.True(t, resp.Review.NoMistakes)
	assert.NotEmpty(t, resp.Review.Message)
}

func TestReviewWithMistakes(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &models.AnalysisResult{
		HasMistakes: true,
		Mistakes: []models.Mistake{
			{Mistake: "la pain", Correction: "le pain", Category: "grammar"},
		},
	}}
	router, _ := newTestRouter(t, &fakeOracle{reply: "practice articles"}, analyzer)
	token := startSession(t, router)

	// first message is not analyzed, the second is
	for i := 0; i < 2; i++ {
		w := postJSON(router, "/api/send-message", gin.H{"session_id": token, "message": "la pain"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := getPath(router, "/api/review?session_id="+token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Review models.Review `json:"review"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Review.NoMistakes)
	require.Len(t, resp.Review.Categories, 1)
	assert.Equal(t, "grammar", resp.Review.Categories[0].Category)
	assert.Equal(t, "practice articles", resp.Review.Suggestions)
}

func TestReviewUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	w := getPath(router, "/api/review?session_id=missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})
	token := startSession(t, router)

	for i := 0; i < 2; i++ {
		w := postJSON(router, "/api/end-session", gin.H{"session_id": token})
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// the session is gone afterwards
	w := postJSON(router, "/api/send-message", gin.H{"session_id": token, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackVocabularyEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})
	token := startSession(t, router)

	w := postJSON(router, "/api/vocabulary", gin.H{
		"session_id":  token,
		"word":        "l'addition",
		"translation": "the bill",
		"context":     "asking to pay",
	})
	require.Equal(t, http.StatusOK, w.Code)

	ctx := context.Background()
	userID, err := store.GetOrCreateUser(ctx, "Ana")
	require.NoError(t, err)
	languageID, err := store.GetOrCreateLanguage(ctx, "French")
	require.NoError(t, err)
	entries, err := store.VocabularyForUser(ctx, userID, languageID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "l'addition", entries[0].WordOrPhrase)
}

func TestMistakeHistoryRequiresUser(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	w := getPath(router, "/api/mistakes")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMistakeHistory(t *testing.T) {
	router, store := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	ctx := context.Background()
	userID, err := store.GetOrCreateUser(ctx, "Ana")
	require.NoError(t, err)
	languageID, err := store.GetOrCreateLanguage(ctx, "French")
	require.NoError(t, err)
	m := models.Mistake{Mistake: "la pain", Correction: "le pain", Category: "grammar"}
	require.NoError(t, store.AddMistake(ctx, userID, languageID, &m))

	w := getPath(router, "/api/mistakes?user=Ana&language=French")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Mistakes   []models.Mistake       `json:"mistakes"`
		Categories []models.CategoryCount `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Mistakes, 1)
	assert.Equal(t, "le pain", resp.Mistakes[0].Correction)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, models.CategoryCount{Category: "grammar", Count: 1}, resp.Categories[0])
}

func TestProgressEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	ctx := context.Background()
	userID, err := store.GetOrCreateUser(ctx, "Ana")
	require.NoError(t, err)
	languageID, err := store.GetOrCreateLanguage(ctx, "French")
	require.NoError(t, err)
	sessionID, err := store.StartSession(ctx, userID, languageID, models.LevelBeginner, "at a restaurant")
	require.NoError(t, err)
	require.NoError(t, store.SaveSessionStats(ctx, sessionID, 4, 1, 4, 2))

	w := getPath(router, "/api/progress?user=Ana&language=French")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress models.ProgressReport `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Progress.TotalSessions)
	assert.Equal(t, 4, resp.Progress.TotalVocabulary)
	assert.Equal(t, 2, resp.Progress.BestStreak)
	assert.InDelta(t, 0.8, resp.Progress.AverageAccuracy, 1e-9)
}

func TestProgressRequiresUserAndLanguage(t *testing.T) {
	router, _ := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	w := getPath(router, "/api/progress?user=Ana")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	router, store := newTestRouter(t, &fakeOracle{reply: "ok"}, &fakeAnalyzer{})

	ctx := context.Background()
	userID, err := store.GetOrCreateUser(ctx, "Ana")
	require.NoError(t, err)
	languageID, err := store.GetOrCreateLanguage(ctx, "French")
	require.NoError(t, err)
	m := models.Mistake{Mistake: "la pain", Correction: "le pain", Category: "grammar"}
	require.NoError(t, store.AddMistake(ctx, userID, languageID, &m))
	require.NoError(t, store.TrackVocabulary(ctx, userID, languageID, "merci", "thanks", ""))

	w := getPath(router, "/api/export?user=Ana&language=French")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}
