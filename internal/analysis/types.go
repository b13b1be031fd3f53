package analysis

// PolygonPoint is one vertex of a damage segmentation outline. Coordinates are
// percentages of the image dimensions (0-100), not pixels.
type PolygonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DamageFinding is one identified damage instance on the vehicle.
//
// ID is assigned sequentially by the client across all processed items in one
// batch, starting at 1 and strictly increasing in processing order. The model
// never supplies it.
type DamageFinding struct {
	ID                  int            `json:"id"`
	Part                string         `json:"part"`
	Type                string         `json:"type"`
	Location            string         `json:"location,omitempty"`
	Description         string         `json:"description"`
	Confidence          int            `json:"confidence"`
	Notes               string         `json:"notes,omitempty"`
	SegmentationPolygon []PolygonPoint `json:"segmentation_polygon,omitempty"`
}

// QualityAssessment is the model's verdict on whether a walkaround video is
// usable for damage assessment. It precedes damage extraction: when the video
// is rejected, damages are not to be trusted.
type QualityAssessment struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Reason       string `json:"reason"`
}

// VideoAnalysis is the structured result of a walkaround-video analysis.
// Damages is always empty when the quality assessment rejected the video;
// the client enforces this regardless of what the model returned.
type VideoAnalysis struct {
	QualityAssessment QualityAssessment `json:"quality_assessment"`
	Damages           []DamageFinding   `json:"damages"`
}
