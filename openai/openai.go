package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crop-advisor-service/llm"
	"crop-advisor-service/parser"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

const promptSystem = `
You are **Crop Advisor**, a vision-enabled plant pathology expert that converts a photo of a crop into a structured diagnosis.

########################################
# 1. MISSION
########################################
For every input image you MUST:

Step 1: ========: Identify the crop shown in the photo (e.g. Tomato, Wheat, Maize, Rice, Potato, Banana).
Step 2: ========: Inspect leaves, stems, fruit and soil for signs of disease, pest damage or nutrient deficiency.
Step 3: ========: If the plant shows no sign of disease or pest, set pest_or_disease to exactly "Healthy".
Step 4: ========: Otherwise name the most likely disease or pest, with the scientific name in parentheses when known, e.g. "Late Blight (Phytophthora infestans)".
Step 5: ========: Write a practical treatment or care recommendation a smallholder farmer can act on without lab equipment.
Step 6: ========: Output a **single, valid JSON object** and nothing else.

########################################
# 2. OUTPUT RULES
########################################
* JSON only — no wrapping markdown.
* confidence is your probability that the diagnosis is correct, between 0.0 and 1.0.
* The recommendation must be concrete: name products, dosages or techniques, not "consult an expert".
* If the image does not contain a plant, set crop_name to "Unknown", pest_or_disease to "Unknown" and confidence to 0.0.

########################################
# 3. OUTPUT SCHEMA
{
  "crop_name":       "<identified crop>",
  "pest_or_disease": "<'Healthy' | disease or pest name>",
  "confidence":      <0.0-1.0>,
  "recommendation":  "<treatment or care guidance>"
}
########################################
`

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Client represents an OpenAI API client
type Client struct {
	apiKey string
	model  string
	client *http.Client
}

// NewClient creates a new OpenAI client
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}
}

// SourceName identifies this provider in saved predictions
func (c *Client) SourceName() string {
	return "ChatGPT"
}

// encodeImageToDataURL converts image bytes to a base64 data URL
func encodeImageToDataURL(imageData []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	base64Data := base64.StdEncoding.EncodeToString(imageData)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}

// DiagnoseImage diagnoses a crop photo using OpenAI's vision API
func (c *Client) DiagnoseImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	body, err := c.doRequest(ctx, diagnoseRequest(c.model, imageData, mimeType, false))
	if err != nil {
		return "", err
	}
	defer body.Close()

	respBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := chatResp.Choices[0].Message.Content
	if contentStr, ok := content.(string); ok {
		return contentStr, nil
	}

	// Vision responses occasionally come back as structured content parts.
	marshaled, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("unexpected content type in response")
	}
	return string(marshaled), nil
}

// DiagnoseImageStream streams the diagnosis over SSE, emitting a partial
// update whenever a schema field completes in the accumulated response text.
func (c *Client) DiagnoseImageStream(ctx context.Context, imageData []byte, mimeType string, emit llm.UpdateFunc) (string, error) {
	body, err := c.doRequest(ctx, diagnoseRequest(c.model, imageData, mimeType, true))
	if err != nil {
		return "", err
	}
	defer body.Close()

	scanner := parser.NewStreamScanner()
	reader := bufio.NewReader(body)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read stream: %w", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse stream event: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if update := scanner.Feed(choice.Delta.Content); !update.Empty() && emit != nil {
				emit(update)
			}
		}
	}
	if scanner.Text() == "" {
		return "", fmt.Errorf("empty stream response")
	}
	return scanner.Text(), nil
}

// TranslateText translates plain text using a text-only completion
func (c *Client) TranslateText(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. Reply with the translated text only, no quotes and no explanation.\n\n%s", targetLanguage, text)
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}

	body, err := c.doRequest(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer body.Close()

	respBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	if contentStr, ok := chatResp.Choices[0].Message.Content.(string); ok {
		return strings.TrimSpace(contentStr), nil
	}
	return "", fmt.Errorf("unexpected content type in response")
}

func diagnoseRequest(model string, imageData []byte, mimeType string, stream bool) ChatRequest {
	textPrompt := TextContent{
		Type: "text",
		Text: promptSystem,
	}

	imagePrompt := ImageContent{
		Type: "image_url",
		ImageURL: ImageURL{
			URL: encodeImageToDataURL(imageData, mimeType),
		},
	}

	return ChatRequest{
		Model:  model,
		Stream: stream,
		Messages: []Message{
			{
				Role: "system",
				Content: []any{
					textPrompt,
				},
			},
			{
				Role: "user",
				Content: []any{
					imagePrompt,
				},
			},
		},
	}
}

func (c *Client) doRequest(ctx context.Context, reqBody ChatRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openAIEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}
