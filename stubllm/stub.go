package stubllm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"crop-advisor-service/llm"
	"crop-advisor-service/models"
)

// Client is a deterministic, no-network LLM stub intended for CI and local
// end-to-end tests. It returns schema-valid JSON so downstream parsing + DB
// writes exercise the full pipeline.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

func (c *Client) DiagnoseImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	out, err := json.Marshal(c.result(imageData))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DiagnoseImageStream emits the diagnosis as three partial updates in the
// order a real streamed response resolves fields: crop first, then condition
// with confidence, then the recommendation.
func (c *Client) DiagnoseImageStream(ctx context.Context, imageData []byte, mimeType string, emit llm.UpdateFunc) (string, error) {
	r := c.result(imageData)

	if emit != nil {
		cropName := r.CropName
		emit(models.DiagnosisUpdate{CropName: &cropName})

		pest := r.PestOrDisease
		confidence := r.Confidence
		emit(models.DiagnosisUpdate{PestOrDisease: &pest, Confidence: &confidence})

		recommendation := r.Recommendation
		emit(models.DiagnosisUpdate{Recommendation: &recommendation})
	}

	out, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Client) TranslateText(ctx context.Context, text, targetLanguage string) (string, error) {
	if text == "" {
		return "", nil
	}
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

type stubResult struct {
	CropName       string  `json:"crop_name"`
	PestOrDisease  string  `json:"pest_or_disease"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

func (c *Client) result(imageData []byte) stubResult {
	// Make output deterministic per-input so the pipeline is stable in CI.
	sum := sha256.Sum256(imageData)
	short := hex.EncodeToString(sum[:4])

	return stubResult{
		CropName:       "Tomato",
		PestOrDisease:  "Healthy",
		Confidence:     0.92,
		Recommendation: fmt.Sprintf("Keep watering. (ref %s)", short),
	}
}
