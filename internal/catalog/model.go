package catalog

import "strings"

// DefaultConfidence is the detection score an item needs when its definition
// does not set one.
const DefaultConfidence = 0.5

type Item struct {
	Name       string  `json:"name" yaml:"name"`
	Prompt     string  `json:"prompt" yaml:"prompt"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Enabled    bool    `json:"enabled" yaml:"enabled"`
}

// Threshold returns the minimum detection score for the item.
func (it Item) Threshold() float64 {
	if it.Confidence <= 0 {
		return DefaultConfidence
	}
	return it.Confidence
}

// Box is a detection bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one result reported by the object-detection collaborator.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

// MatchedBy reports whether any detection names the item with a score above
// its threshold. Labels match when either string contains the other,
// ignoring case.
func (it Item) MatchedBy(detections []Detection) bool {
	name := strings.ToLower(strings.TrimSpace(it.Name))
	if name == "" {
		return false
	}
	for _, d := range detections {
		label := strings.ToLower(strings.TrimSpace(d.Label))
		if label == "" {
			continue
		}
		if !strings.Contains(label, name) && !strings.Contains(name, label) {
			continue
		}
		if d.Score > it.Threshold() {
			return true
		}
	}
	return false
}
