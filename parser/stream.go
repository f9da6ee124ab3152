package parser

import (
	"encoding/json"
	"regexp"

	"crop-advisor-service/models"
)

// Field patterns tolerate whitespace and only match once the value is
// complete: strings need their closing quote, numbers need a terminator.
var (
	cropNameRe       = regexp.MustCompile(`"crop_name"\s*:\s*("(?:[^"\\]|\\.)*")`)
	pestOrDiseaseRe  = regexp.MustCompile(`"pest_or_disease"\s*:\s*("(?:[^"\\]|\\.)*")`)
	recommendationRe = regexp.MustCompile(`"recommendation"\s*:\s*("(?:[^"\\]|\\.)*")`)
	confidenceRe     = regexp.MustCompile(`"confidence"\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)\s*[,}\n]`)
)

// StreamScanner incrementally extracts diagnosis fields from a growing
// partial JSON text, as delivered by a streaming LLM response. Feed returns
// only the fields whose value is newly complete or has been refined since the
// previous call, so the caller can forward each return value as one partial
// update.
type StreamScanner struct {
	buf  string
	last DiagnosisResult
	seen struct {
		cropName       bool
		pestOrDisease  bool
		confidence     bool
		recommendation bool
	}
}

// NewStreamScanner creates a scanner for a single streamed response.
func NewStreamScanner() *StreamScanner {
	return &StreamScanner{}
}

// Feed appends a response chunk and returns the fields that became available
// or changed. The returned update is empty when the chunk completed nothing.
func (s *StreamScanner) Feed(chunk string) models.DiagnosisUpdate {
	s.buf += chunk

	var update models.DiagnosisUpdate

	if v, ok := lastString(cropNameRe, s.buf); ok {
		if !s.seen.cropName || v != s.last.CropName {
			s.seen.cropName = true
			s.last.CropName = v
			update.CropName = &v
		}
	}
	if v, ok := lastString(pestOrDiseaseRe, s.buf); ok {
		if !s.seen.pestOrDisease || v != s.last.PestOrDisease {
			s.seen.pestOrDisease = true
			s.last.PestOrDisease = v
			update.PestOrDisease = &v
		}
	}
	if v, ok := lastString(recommendationRe, s.buf); ok {
		if !s.seen.recommendation || v != s.last.Recommendation {
			s.seen.recommendation = true
			s.last.Recommendation = v
			update.Recommendation = &v
		}
	}
	if v, ok := lastNumber(confidenceRe, s.buf); ok {
		if !s.seen.confidence || v != s.last.Confidence {
			s.seen.confidence = true
			s.last.Confidence = v
			update.Confidence = &v
		}
	}

	return update
}

// Text returns the full accumulated response text.
func (s *StreamScanner) Text() string {
	return s.buf
}

// lastString returns the most recent complete string value for the pattern.
// A field re-sent later in the stream overrides the earlier occurrence.
func lastString(re *regexp.Regexp, text string) (string, bool) {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	quoted := matches[len(matches)-1][1]
	var v string
	if err := json.Unmarshal([]byte(quoted), &v); err != nil {
		return "", false
	}
	return v, true
}

// lastNumber returns the most recent complete numeric value for the pattern.
func lastNumber(re *regexp.Regexp, text string) (float64, bool) {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal([]byte(matches[len(matches)-1][1]), &v); err != nil {
		return 0, false
	}
	return v, true
}
