package models

// Medicine is a marketplace product suggested for a diagnosed condition.
type Medicine struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// RelatedVideo is an educational video matched to the identified crop.
type RelatedVideo struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url"`
}

// Weather is an optional conditions snapshot supplied by a separate data
// source; the pipeline carries it through unchanged.
type Weather struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
}

// Prediction is the display-ready diagnosis record. String fields start as
// empty strings, never absent, so a renderer can show a snapshot at any
// point of a streamed run.
type Prediction struct {
	CropType             string         `json:"crop_type"`
	Condition            string         `json:"condition"`
	Confidence           float64        `json:"confidence"`
	Recommendation       string         `json:"recommendation"`
	ImageURL             string         `json:"image_url"`
	Timestamp            int64          `json:"timestamp"`
	RecommendedMedicines []Medicine     `json:"recommended_medicines"`
	RelatedVideos        []RelatedVideo `json:"related_videos"`
	Weather              *Weather       `json:"weather,omitempty"`
}

// HistoryItem is a persisted prediction row as read back from the store.
type HistoryItem struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id,omitempty"`
	Timestamp  int64   `json:"timestamp"`
	CropType   string  `json:"crop_type"`
	Condition  string  `json:"condition"`
	ImageURL   string  `json:"image_url"`
	Confidence float64 `json:"confidence"`
}

// ActivityRecord is a discrete user action from the history collection.
type ActivityRecord struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ActionType string `json:"action_type"`
	Timestamp  int64  `json:"timestamp"`
	Details    string `json:"details"`
}

// DiagnosisUpdate is one partial update from a streamed diagnosis. A nil
// pointer means the field was not present in this update; presence, not
// truthiness, decides whether a field participates in a merge, so a
// legitimate confidence of exactly 0 is never dropped.
type DiagnosisUpdate struct {
	CropName       *string  `json:"crop_name,omitempty"`
	PestOrDisease  *string  `json:"pest_or_disease,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Recommendation *string  `json:"recommendation,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u DiagnosisUpdate) Empty() bool {
	return u.CropName == nil && u.PestOrDisease == nil && u.Confidence == nil && u.Recommendation == nil
}
