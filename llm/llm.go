package llm

import (
	"context"

	"crop-advisor-service/models"
)

// UpdateFunc receives partial diagnosis updates in delivery order.
type UpdateFunc func(models.DiagnosisUpdate)

// Client abstracts an LLM provider used by the diagnosis pipeline.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// DiagnoseImage takes raw image bytes with their MIME type and returns a
	// single JSON string per the diagnosis schema.
	DiagnoseImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
	// DiagnoseImageStream streams the diagnosis, invoking emit for each
	// partial field update in delivery order, and returns the complete
	// response text once the stream closes. emit is called from the calling
	// goroutine; updates never arrive after the method returns.
	DiagnoseImageStream(ctx context.Context, imageData []byte, mimeType string, emit UpdateFunc) (string, error)
	// TranslateText translates plain text to a target human language name
	// (e.g., "Hindi") and returns the translated text only.
	TranslateText(ctx context.Context, text, targetLanguage string) (string, error)
	// SourceName returns a short provider label to persist in the database
	// (e.g., "Gemini", "ChatGPT").
	SourceName() string
}
