package service

import (
	"crop-advisor-service/models"
)

// Accumulator merges streamed partial updates into a single always-valid
// Prediction snapshot. One accumulator serves exactly one diagnosis run;
// a re-triggered run gets a fresh instance so stale updates can never leak
// into it.
type Accumulator struct {
	snapshot models.Prediction
}

// NewAccumulator seeds a snapshot for a run: string fields empty, confidence
// zero, the run timestamp and the input image, and empty collections.
func NewAccumulator(imageURL string, timestamp int64) *Accumulator {
	return &Accumulator{
		snapshot: models.Prediction{
			ImageURL:             imageURL,
			Timestamp:            timestamp,
			RecommendedMedicines: []models.Medicine{},
			RelatedVideos:        []models.RelatedVideo{},
		},
	}
}

// Apply merges one partial update and returns the new full snapshot. Only
// fields present in the update are overwritten; a field re-sent later in the
// stream wins. Presence is a non-nil pointer, so confidence 0 is applied
// like any other value.
func (a *Accumulator) Apply(update models.DiagnosisUpdate) models.Prediction {
	if update.CropName != nil {
		a.snapshot.CropType = *update.CropName
	}
	if update.PestOrDisease != nil {
		a.snapshot.Condition = *update.PestOrDisease
	}
	if update.Confidence != nil {
		a.snapshot.Confidence = *update.Confidence
	}
	if update.Recommendation != nil {
		a.snapshot.Recommendation = *update.Recommendation
	}
	return a.snapshot
}

// Snapshot returns the current merged state.
func (a *Accumulator) Snapshot() models.Prediction {
	return a.snapshot
}
