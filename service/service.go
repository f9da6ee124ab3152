package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"crop-advisor-service/config"
	"crop-advisor-service/database"
	"crop-advisor-service/llm"
	"crop-advisor-service/metrics"
	"crop-advisor-service/models"
	"crop-advisor-service/parser"
	"crop-advisor-service/rabbitmq"
	"crop-advisor-service/services"
)

// SnapshotFunc receives the full merged snapshot after each partial update.
type SnapshotFunc func(models.Prediction)

// Service orchestrates the prediction pipeline: input validation, diagnosis
// invocation (single or streamed), snapshot accumulation, terminal
// normalization, and the best-effort persistence side effect.
type Service struct {
	cfg       *config.Config
	db        *database.Database
	llmClient llm.Client
	catalog   *services.CatalogService
	publisher *rabbitmq.Publisher

	// persistDone, when set, is signaled after a persistence attempt
	// finishes. Tests use it to await the fire-and-forget write.
	persistDone func()
}

// NewService creates the pipeline service. db and publisher may be nil; the
// pipeline then runs without persistence or event publishing.
func NewService(cfg *config.Config, db *database.Database, llmClient llm.Client, publisher *rabbitmq.Publisher) *Service {
	return &Service{
		cfg:       cfg,
		db:        db,
		llmClient: llmClient,
		catalog:   services.NewCatalogService(),
		publisher: publisher,
	}
}

// DiagnoseRequest is one pipeline invocation.
type DiagnoseRequest struct {
	// PhotoDataURI is the MIME-typed base64 data URI of the crop photo.
	PhotoDataURI string
	// UserID keys the persistence write; empty means anonymous, no write.
	UserID string
	// OnSnapshot, when set, receives the merged snapshot after every
	// streamed partial update, in delivery order.
	OnSnapshot SnapshotFunc
}

// predictionEvent is the message published for downstream consumers.
type predictionEvent struct {
	UserID     string            `json:"user_id,omitempty"`
	Source     string            `json:"source"`
	Prediction models.Prediction `json:"prediction"`
}

// Diagnose runs the full pipeline and returns the authoritative Prediction.
// The persistence write is spawned after the diagnosis reaches its terminal
// state and is never awaited; its failure cannot affect the returned value.
func (s *Service) Diagnose(ctx context.Context, req DiagnoseRequest) (models.Prediction, error) {
	imageData, mimeType, err := decodeDataURI(req.PhotoDataURI, s.cfg.MaxImageBytes)
	if err != nil {
		metrics.DiagnosesTotal.WithLabelValues("invalid_input").Inc()
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// The timestamp is assigned once, here, and never changes for this run.
	timestamp := time.Now().UnixMilli()
	accumulator := NewAccumulator(req.PhotoDataURI, timestamp)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DiagnosisTimeout)
	defer cancel()

	started := time.Now()

	emit := func(update models.DiagnosisUpdate) {
		// A canceled run must not apply late updates to its accumulator.
		if ctx.Err() != nil {
			return
		}
		snapshot := accumulator.Apply(update)
		metrics.StreamUpdatesTotal.Inc()
		if req.OnSnapshot != nil {
			req.OnSnapshot(snapshot)
		}
	}

	var response string
	if s.cfg.StreamEnabled {
		response, err = s.llmClient.DiagnoseImageStream(ctx, imageData, mimeType, emit)
	} else {
		response, err = s.llmClient.DiagnoseImage(ctx, imageData, mimeType)
	}
	if err != nil {
		metrics.DiagnosesTotal.WithLabelValues("provider_error").Inc()
		metrics.DiagnosisDurationSeconds.WithLabelValues("provider_error").Observe(time.Since(started).Seconds())
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrDiagnosisService, err)
	}

	result, err := parser.ParseDiagnosis(response)
	if err != nil {
		metrics.DiagnosesTotal.WithLabelValues("parse_error").Inc()
		metrics.DiagnosisDurationSeconds.WithLabelValues("parse_error").Observe(time.Since(started).Seconds())
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrDiagnosisService, err)
	}

	// The parsed complete response is authoritative for every field.
	final := s.normalize(accumulator.Apply(result.Update()))

	metrics.DiagnosesTotal.WithLabelValues("ok").Inc()
	metrics.DiagnosisDurationSeconds.WithLabelValues("ok").Observe(time.Since(started).Seconds())

	// Fire-and-forget: launched after the terminal state, never awaited by
	// the rendering path.
	go s.persistPrediction(req.UserID, final)

	return final, nil
}

// normalize enriches the terminal snapshot with catalog data. A healthy
// condition must never carry medicines.
func (s *Service) normalize(p models.Prediction) models.Prediction {
	if services.IsHealthy(p.Condition) {
		p.RecommendedMedicines = []models.Medicine{}
	} else {
		p.RecommendedMedicines = s.catalog.MedicinesFor(p.Condition)
	}
	p.RelatedVideos = s.catalog.VideosFor(p.CropType)
	return p
}

// persistPrediction performs the one best-effort write plus the activity log
// append, then publishes the completed prediction. Every failure here is
// logged and swallowed.
func (s *Service) persistPrediction(userID string, p models.Prediction) {
	if s.persistDone != nil {
		defer s.persistDone()
	}

	if userID == "" {
		log.Debug("Anonymous diagnosis, skipping persistence")
	} else {
		if err := s.db.SaveCropRecord(userID, p); err != nil && err != database.ErrNoCredentials {
			metrics.PersistenceFailureTotal.Inc()
			log.WithError(err).Errorf("Failed to save crop record for user %s", userID)
		}
		details := fmt.Sprintf("%s: %s (%.0f%%)", p.CropType, p.Condition, p.Confidence*100)
		if err := s.db.LogAction(userID, "diagnosis", p.Timestamp, details); err != nil && err != database.ErrNoCredentials {
			metrics.PersistenceFailureTotal.Inc()
			log.WithError(err).Errorf("Failed to log diagnosis action for user %s", userID)
		}
	}

	if s.publisher != nil {
		event := predictionEvent{
			UserID:     userID,
			Source:     s.llmClient.SourceName(),
			Prediction: p,
		}
		if err := s.publisher.Publish(event); err != nil {
			log.WithError(err).Error("Failed to publish completed prediction")
		}
	}
}

// decodeDataURI validates and decodes a MIME-typed base64 data URI.
func decodeDataURI(uri string, maxBytes int) ([]byte, string, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, "", fmt.Errorf("empty data URI")
	}
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("missing data: prefix")
	}

	rest := uri[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", fmt.Errorf("not a base64 data URI")
	}
	mimeType := rest[:sep]
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unsupported media type %q", mimeType)
	}

	payload := rest[sep+len(";base64,"):]
	if payload == "" {
		return nil, "", fmt.Errorf("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxBytes)
	}
	return data, mimeType, nil
}
