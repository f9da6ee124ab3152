package translate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"crop-advisor-service/llm"
)

// countingClient records translation calls and replies with a scripted
// rendering or error. TranslatePair calls it from two goroutines, so the
// counter is guarded.
type countingClient struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingClient) DiagnoseImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	return "", errors.New("not used")
}

func (c *countingClient) DiagnoseImageStream(ctx context.Context, imageData []byte, mimeType string, emit llm.UpdateFunc) (string, error) {
	return "", errors.New("not used")
}

func (c *countingClient) TranslateText(ctx context.Context, text, targetLanguage string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return "[" + targetLanguage + "] " + text, nil
}

func (c *countingClient) SourceName() string { return "counting" }

func TestTranslateBaseLanguageSkipsProvider(t *testing.T) {
	client := &countingClient{}
	tr := NewTranslator(client)

	got := tr.Translate(context.Background(), "Late Blight", "en")

	assert.Equal(t, "Late Blight", got)
	assert.Equal(t, 0, client.callCount(), "base language must be served without a provider call")
}

func TestTranslateEmptyInputsSkipProvider(t *testing.T) {
	client := &countingClient{}
	tr := NewTranslator(client)

	assert.Equal(t, "", tr.Translate(context.Background(), "", "hi"))
	assert.Equal(t, "Late Blight", tr.Translate(context.Background(), "Late Blight", ""))
	assert.Equal(t, 0, client.callCount())
}

func TestTranslateRendersTargetLanguage(t *testing.T) {
	client := &countingClient{}
	tr := NewTranslator(client)

	got := tr.Translate(context.Background(), "Late Blight", "hi")

	assert.Equal(t, "[Hindi] Late Blight", got)
	assert.Equal(t, 1, client.callCount())
}

func TestTranslateFailureFallsBackToOriginal(t *testing.T) {
	client := &countingClient{err: errors.New("quota exceeded")}
	tr := NewTranslator(client)

	got := tr.Translate(context.Background(), "Late Blight", "hi")

	assert.Equal(t, "Late Blight", got, "a failed translation must return the original text")
}

func TestTranslateLanguageCodeNormalization(t *testing.T) {
	client := &countingClient{}
	tr := NewTranslator(client)

	got := tr.Translate(context.Background(), "Late Blight", "  EN ")

	assert.Equal(t, "Late Blight", got)
	assert.Equal(t, 0, client.callCount())
}

func TestTranslatePair(t *testing.T) {
	client := &countingClient{}
	tr := NewTranslator(client)

	condition, recommendation := tr.TranslatePair(context.Background(), "Healthy", "Keep watering.", "sw")

	assert.Equal(t, "[Swahili] Healthy", condition)
	assert.Equal(t, "[Swahili] Keep watering.", recommendation)
	assert.Equal(t, 2, client.callCount())
}

func TestTranslatePairPartialFailure(t *testing.T) {
	// Both fields go through the same client here; a failing provider
	// leaves both untouched rather than erroring out.
	client := &countingClient{err: errors.New("timeout")}
	tr := NewTranslator(client)

	condition, recommendation := tr.TranslatePair(context.Background(), "Healthy", "Keep watering.", "sw")

	assert.Equal(t, "Healthy", condition)
	assert.Equal(t, "Keep watering.", recommendation)
}
