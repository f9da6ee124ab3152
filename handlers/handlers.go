package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"crop-advisor-service/config"
	"crop-advisor-service/database"
	"crop-advisor-service/middleware"
	"crop-advisor-service/models"
	"crop-advisor-service/service"
	"crop-advisor-service/services"
	"crop-advisor-service/translate"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	cfg        *config.Config
	svc        *service.Service
	db         *database.Database
	translator *translate.Translator
	hub        *services.WebSocketHub
}

// NewHandlers creates new HTTP handlers
func NewHandlers(cfg *config.Config, svc *service.Service, db *database.Database, translator *translate.Translator, hub *services.WebSocketHub) *Handlers {
	return &Handlers{
		cfg:        cfg,
		svc:        svc,
		db:         db,
		translator: translator,
		hub:        hub,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "crop-advisor-service",
		"database": h.db.Ready(),
	})
}

// DiagnoseRequest is the sync diagnosis request body.
type DiagnoseRequest struct {
	PhotoDataURI string `json:"photo_data_uri" binding:"required"`
	// SessionID lets an anonymous caller receive progressive snapshots on a
	// WebSocket connection registered with the same id. Ignored when the
	// request is authenticated.
	SessionID string `json:"session_id"`
}

// Diagnose runs a full diagnosis and returns the terminal prediction.
// Partial updates are not surfaced on this endpoint; connect over
// WebSocket for progressive snapshots.
func (h *Handlers) Diagnose(c *gin.Context) {
	var req DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo_data_uri is required"})
		return
	}

	userID := middleware.GetUserIDFromContext(c)

	// Snapshots mirror only to WebSocket connections registered with this
	// invocation's identity: the authenticated user id, or the session id
	// an anonymous caller supplied. Without an identity nothing is
	// mirrored; one user's run must never reach another user's renderer.
	owner := userID
	if owner == "" {
		owner = req.SessionID
	}

	var onSnapshot service.SnapshotFunc
	if h.hub != nil && owner != "" {
		onSnapshot = func(p models.Prediction) {
			h.hub.SendSnapshot(services.SnapshotMessage{
				Event:      "snapshot",
				UserID:     owner,
				Prediction: p,
			})
		}
	}

	prediction, err := h.svc.Diagnose(c.Request.Context(), service.DiagnoseRequest{
		PhotoDataURI: req.PhotoDataURI,
		UserID:       userID,
		OnSnapshot:   onSnapshot,
	})
	if err != nil {
		if h.hub != nil && owner != "" {
			h.hub.SendSnapshot(services.SnapshotMessage{Event: "error", UserID: owner, Error: "diagnosis failed"})
		}
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("Diagnosis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "diagnosis failed"})
		return
	}

	if h.hub != nil && owner != "" {
		h.hub.SendSnapshot(services.SnapshotMessage{Event: "done", UserID: owner, Prediction: prediction})
	}

	c.JSON(http.StatusOK, prediction)
}

// GetPredictionHistory returns the user's stored predictions, newest first.
func (h *Handlers) GetPredictionHistory(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	limit := h.queryLimit(c, h.cfg.PredictionHistoryLimit)

	items, err := h.db.GetPredictionHistory(userID, limit)
	if err != nil {
		log.WithError(err).Error("Failed to get prediction history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get prediction history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": items,
		"count":       len(items),
	})
}

// GetActivityLog returns the user's recent actions, newest first.
func (h *Handlers) GetActivityLog(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	limit := h.queryLimit(c, h.cfg.ActivityLogLimit)

	records, err := h.db.GetActivityLog(userID, limit)
	if err != nil {
		log.WithError(err).Error("Failed to get activity log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get activity log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": records,
		"count":      len(records),
	})
}

// TranslateRequest asks for a prediction's text fields in another language.
type TranslateRequest struct {
	Condition      string `json:"condition"`
	Recommendation string `json:"recommendation"`
	Language       string `json:"language" binding:"required"`
}

// Translate re-renders the condition and recommendation in the requested
// language. The response always carries usable text; a provider failure
// falls back to the original wording.
func (h *Handlers) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language is required"})
		return
	}

	condition, recommendation := h.translator.TranslatePair(
		c.Request.Context(), req.Condition, req.Recommendation, req.Language)

	c.JSON(http.StatusOK, gin.H{
		"condition":      condition,
		"recommendation": recommendation,
		"language":       req.Language,
	})
}

// queryLimit reads an optional positive limit override, capped at the
// configured default.
func (h *Handlers) queryLimit(c *gin.Context, def int) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return def
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > def {
		return def
	}
	return limit
}
