package service

import (
	"reflect"
	"testing"

	"crop-advisor-service/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestAccumulatorSeedsEmptySnapshot(t *testing.T) {
	acc := NewAccumulator("data:image/png;base64,xxxx", 1700000000000)

	snapshot := acc.Snapshot()
	if snapshot.CropType != "" || snapshot.Condition != "" || snapshot.Recommendation != "" {
		t.Errorf("expected empty string fields, got %+v", snapshot)
	}
	if snapshot.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", snapshot.Confidence)
	}
	if snapshot.Timestamp != 1700000000000 {
		t.Errorf("expected seeded timestamp, got %d", snapshot.Timestamp)
	}
	if snapshot.RecommendedMedicines == nil || snapshot.RelatedVideos == nil {
		t.Error("expected empty, non-nil collections")
	}
}

func TestAccumulatorMergesDisjointUpdates(t *testing.T) {
	acc := NewAccumulator("img", 100)

	acc.Apply(models.DiagnosisUpdate{CropName: strPtr("Tomato")})
	acc.Apply(models.DiagnosisUpdate{PestOrDisease: strPtr("Late Blight"), Confidence: floatPtr(0.87)})
	snapshot := acc.Apply(models.DiagnosisUpdate{Recommendation: strPtr("Remove affected leaves.")})

	want := models.Prediction{
		CropType:             "Tomato",
		Condition:            "Late Blight",
		Confidence:           0.87,
		Recommendation:       "Remove affected leaves.",
		ImageURL:             "img",
		Timestamp:            100,
		RecommendedMedicines: []models.Medicine{},
		RelatedVideos:        []models.RelatedVideo{},
	}
	if !reflect.DeepEqual(snapshot, want) {
		t.Errorf("merged snapshot = %+v, want %+v", snapshot, want)
	}
}

func TestAccumulatorLastWriteWins(t *testing.T) {
	acc := NewAccumulator("img", 100)

	acc.Apply(models.DiagnosisUpdate{CropName: strPtr("Tom")})
	snapshot := acc.Apply(models.DiagnosisUpdate{CropName: strPtr("Tomato")})

	if snapshot.CropType != "Tomato" {
		t.Errorf("expected refined crop name to win, got %q", snapshot.CropType)
	}
}

func TestAccumulatorAppliesZeroConfidence(t *testing.T) {
	acc := NewAccumulator("img", 100)

	acc.Apply(models.DiagnosisUpdate{Confidence: floatPtr(0.5)})
	snapshot := acc.Apply(models.DiagnosisUpdate{Confidence: floatPtr(0)})

	if snapshot.Confidence != 0 {
		t.Errorf("confidence 0 must overwrite a prior value, got %f", snapshot.Confidence)
	}
}

func TestAccumulatorIgnoresAbsentFields(t *testing.T) {
	acc := NewAccumulator("img", 100)

	acc.Apply(models.DiagnosisUpdate{CropName: strPtr("Rice"), Confidence: floatPtr(0.9)})
	snapshot := acc.Apply(models.DiagnosisUpdate{PestOrDisease: strPtr("Blast")})

	if snapshot.CropType != "Rice" || snapshot.Confidence != 0.9 {
		t.Errorf("absent fields must not be reset, got %+v", snapshot)
	}
}
