package gemini

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
	"crop-advisor-service/models"
	"crop-advisor-service/parser"
)

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

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
	Contents         []content        `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const defaultAPIBase = "https://generativelanguage.googleapis.com"

type Client struct {
	apiKey  string
	model   string
	apiBase string
	http    *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		apiBase: defaultAPIBase,
		http:    &http.Client{},
	}
}

func (c *Client) SourceName() string {
	return "Gemini"
}

func (c *Client) DiagnoseImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	return c.generateContent(ctx, diagnoseRequest(imageData, mimeType))
}

// DiagnoseImageStream streams the diagnosis over SSE, emitting a partial
// update whenever a schema field completes in the accumulated response text.
func (c *Client) DiagnoseImageStream(ctx context.Context, imageData []byte, mimeType string, emit llm.UpdateFunc) (string, error) {
	return c.streamContent(ctx, diagnoseRequest(imageData, mimeType), emit)
}

func (c *Client) TranslateText(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. Reply with the translated text only, no quotes and no explanation.\n\n%s", targetLanguage, text)
	reqBody := geminiRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: prompt},
				},
			},
		},
	}
	out, err := c.generateContent(ctx, reqBody)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func diagnoseRequest(imageData []byte, mimeType string) geminiRequest {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []part{{Text: promptSystem}}
	if len(imageData) > 0 {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(imageData),
			},
		})
	}

	return geminiRequest{
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
		Contents: []content{
			{
				Role:  "user",
				Parts: parts,
			},
		},
	}
}

func (c *Client) generateContent(ctx context.Context, body geminiRequest) (string, error) {
	// try v1beta first, then v1
	endpoints := []string{
		fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.apiBase, c.model, c.apiKey),
		fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", c.apiBase, c.model, c.apiKey),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for _, ep := range endpoints {
		req, err := http.NewRequestWithContext(ctx, "POST", ep, bytes.NewBuffer(data))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
			// retry next endpoint if available
			continue
		}
		var gr geminiResponse
		if err := json.Unmarshal(bodyBytes, &gr); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			continue
		}
		if len(gr.Candidates) == 0 {
			lastErr = fmt.Errorf("no candidates in response")
			continue
		}
		// find first text part
		for _, p := range gr.Candidates[0].Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
		lastErr = fmt.Errorf("no text part in response")
	}
	return "", lastErr
}

func (c *Client) streamContent(ctx context.Context, body geminiRequest, emit llm.UpdateFunc) (string, error) {
	endpoints := []string{
		fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", c.apiBase, c.model, c.apiKey),
		fmt.Sprintf("%s/v1/models/%s:streamGenerateContent?alt=sse&key=%s", c.apiBase, c.model, c.apiKey),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	emitted := false
	countingEmit := func(u models.DiagnosisUpdate) {
		emitted = true
		if emit != nil {
			emit(u)
		}
	}

	var lastErr error
	for _, ep := range endpoints {
		// A failed attempt may already have applied partial updates; the
		// fallback replays the stream from the start, so its emits are
		// suppressed instead of re-delivered.
		attemptEmit := llm.UpdateFunc(countingEmit)
		if emitted {
			attemptEmit = nil
		}

		req, err := http.NewRequestWithContext(ctx, "POST", ep, bytes.NewBuffer(data))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
			continue
		}

		text, err := c.consumeSSE(ctx, resp.Body, attemptEmit)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// consumeSSE reads "data:" events, feeds each text chunk to the field
// scanner and emits any fields that chunk completed.
func (c *Client) consumeSSE(ctx context.Context, body io.Reader, emit llm.UpdateFunc) (string, error) {
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
		var gr geminiResponse
		if err := json.Unmarshal([]byte(payload), &gr); err != nil {
			return "", fmt.Errorf("failed to parse stream event: %w", err)
		}
		for _, cand := range gr.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				if update := scanner.Feed(p.Text); !update.Empty() && emit != nil {
					emit(update)
				}
			}
		}
	}
	if scanner.Text() == "" {
		return "", fmt.Errorf("empty stream response")
	}
	return scanner.Text(), nil
}
