package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"crop-advisor-service/models"
)

// DiagnosisResult represents the parsed diagnosis from the LLM
type DiagnosisResult struct {
	CropName       string  `json:"crop_name"`
	PestOrDisease  string  `json:"pest_or_disease"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// Update converts the complete result into a partial-update form where every
// field is present.
func (r *DiagnosisResult) Update() models.DiagnosisUpdate {
	return models.DiagnosisUpdate{
		CropName:       &r.CropName,
		PestOrDisease:  &r.PestOrDisease,
		Confidence:     &r.Confidence,
		Recommendation: &r.Recommendation,
	}
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	// Look for JSON code blocks with ``` markers
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// ParseDiagnosis parses the LLM response and extracts diagnosis fields
func ParseDiagnosis(response string) (*DiagnosisResult, error) {
	// Clean the response
	cleaned := strings.TrimSpace(response)

	// Extract JSON from markdown if present
	jsonContent := extractJSONFromMarkdown(cleaned)

	// Try to parse as JSON
	var result DiagnosisResult
	err := json.Unmarshal([]byte(jsonContent), &result)
	if err != nil {
		return nil, errors.New("failed to parse JSON response: " + err.Error())
	}

	// Validate the parsed result
	if result.CropName == "" {
		return nil, errors.New("crop_name is required")
	}
	if result.PestOrDisease == "" {
		return nil, errors.New("pest_or_disease is required")
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, errors.New("confidence must be between 0 and 1")
	}
	return &result, nil
}
