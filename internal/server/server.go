package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/tutorbot/internal/conversation"
	"github.com/example/tutorbot/internal/database"
	"github.com/example/tutorbot/internal/excel"
	"github.com/example/tutorbot/internal/review"
	"github.com/example/tutorbot/internal/session"
	"github.com/example/tutorbot/pkg/models"
)

// defaultMistakeLimit bounds the mistake-history query when the caller
// does not supply a limit.
const defaultMistakeLimit = 100

// Server exposes the tutoring core over HTTP.
type Server struct {
	registry   *session.Registry
	store      *database.Store
	oracle     conversation.Oracle
	analyzer   conversation.MistakeAnalyzer
	aggregator *review.Aggregator
}

// New creates the HTTP server around the shared registry and store.
func New(registry *session.Registry, store *database.Store, oracle conversation.Oracle, analyzer conversation.MistakeAnalyzer) *Server {
	return &Server{
		registry:   registry,
		store:      store,
		oracle:     oracle,
		analyzer:   analyzer,
		aggregator: review.New(oracle, store),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.POST("/start-session", s.handleStartSession)
		api.POST("/send-message", s.handleSendMessage)
		api.GET("/review", s.handleGetReview)
		api.POST("/end-session", s.handleEndSession)
		api.POST("/vocabulary", s.handleTrackVocabulary)
		api.GET("/mistakes", s.handleMistakeHistory)
		api.GET("/progress", s.handleProgress)
		api.GET("/export", s.handleExport)
	}

	return router
}

// Run serves the API on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

type startSessionRequest struct {
	Name             string `json:"name" binding:"required"`
	NativeLanguage   string `json:"native_language" binding:"required"`
	LearningLanguage string `json:"learning_language" binding:"required"`
	ProficiencyLevel string `json:"proficiency_level"`
	Scenario         string `json:"scenario"`
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	engine := conversation.NewEngine(s.oracle, s.analyzer, s.store, models.Profile{
		UserName:         req.Name,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
		ProficiencyLevel: req.ProficiencyLevel,
		Scenario:         req.Scenario,
	})

	welcome, err := engine.Start(c.Request.Context())
	if err != nil {
		log.Printf("Error starting session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not start session"})
		return
	}

	token := s.registry.Add(engine)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": token,
		"message":    welcome,
	})
}

type sendMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	engine, err := s.registry.Lookup(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Session not found or expired. Please start a new session."})
		return
	}

	reply, mistakes, err := engine.SendMessage(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, conversation.ErrGenerationFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "could not generate a reply, please try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	if mistakes == nil {
		mistakes = []models.Mistake{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": reply,
		"mistakes": mistakes,
	})
}

func (s *Server) handleGetReview(c *gin.Context) {
	engine, err := s.registry.Lookup(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Session not found or expired. Please start a new session."})
		return
	}

	result, err := s.aggregator.BuildReview(c.Request.Context(), engine)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "could not generate review suggestions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "review": result})
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
}

// handleEndSession tears a session down. Ending an unknown or already
// ended session succeeds.
func (s *Server) handleEndSession(c *gin.Context) {
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if engine, err := s.registry.Lookup(req.SessionID); err == nil {
		if err := engine.Close(c.Request.Context()); err != nil {
			log.Printf("Warning: failed to close session row: %v", err)
		}
		s.registry.Remove(req.SessionID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session ended successfully"})
}

type trackVocabularyRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	Word        string `json:"word" binding:"required"`
	Translation string `json:"translation"`
	Context     string `json:"context"`
}

func (s *Server) handleTrackVocabulary(c *gin.Context) {
	var req trackVocabularyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	engine, err := s.registry.Lookup(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Session not found or expired. Please start a new session."})
		return
	}

	if err := engine.TrackVocabulary(c.Request.Context(), req.Word, req.Translation, req.Context); err != nil {
		log.Printf("Warning: failed to track vocabulary: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleMistakeHistory(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user query parameter is required"})
		return
	}

	limit := defaultMistakeLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	mistakes, err := s.store.UserMistakes(c.Request.Context(), user, c.Query("language"), limit)
	if err != nil {
		log.Printf("Error fetching mistakes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not load mistakes"})
		return
	}
	if mistakes == nil {
		mistakes = []models.Mistake{}
	}

	stats, err := s.store.MistakeStatsByCategory(c.Request.Context(), user, c.Query("language"))
	if err != nil {
		log.Printf("Error fetching mistake stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not load mistake stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"mistakes":   mistakes,
		"categories": stats,
	})
}

func (s *Server) handleProgress(c *gin.Context) {
	user := c.Query("user")
	language := c.Query("language")
	if user == "" || language == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user and language query parameters are required"})
		return
	}

	ctx := c.Request.Context()
	userID, err := s.store.GetOrCreateUser(ctx, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not resolve user"})
		return
	}
	languageID, err := s.store.GetOrCreateLanguage(ctx, language)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not resolve language"})
		return
	}

	report, err := s.store.UserProgress(ctx, userID, languageID)
	if err != nil {
		log.Printf("Error building progress report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not build progress report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "progress": report})
}

// handleExport streams a learner's mistakes and vocabulary as an Excel
// workbook.
func (s *Server) handleExport(c *gin.Context) {
	user := c.Query("user")
	language := c.Query("language")
	if user == "" || language == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user and language query parameters are required"})
		return
	}

	ctx := c.Request.Context()
	mistakes, err := s.store.UserMistakes(ctx, user, language, defaultMistakeLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not load mistakes"})
		return
	}

	userID, err := s.store.GetOrCreateUser(ctx, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not resolve user"})
		return
	}
	languageID, err := s.store.GetOrCreateLanguage(ctx, language)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not resolve language"})
		return
	}
	vocabulary, err := s.store.VocabularyForUser(ctx, userID, languageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not load vocabulary"})
		return
	}

	report, err := excel.BuildReport(mistakes, vocabulary)
	if err != nil {
		log.Printf("Error building report workbook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not build report"})
		return
	}
	defer report.Close()

	filename := fmt.Sprintf("progress-%s-%s.xlsx", user, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := report.Write(c.Writer); err != nil {
		log.Printf("Error streaming report: %v", err)
	}
}
