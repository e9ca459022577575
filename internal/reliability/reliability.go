// Package reliability scores how much one extraction pass over a case can be
// trusted. The score starts from a per-source prior and is adjusted by the
// recognition telemetry the pass reported.
package reliability

import (
	"errors"
	"fmt"
	"math"
)

// Source identifies one of the independent extraction passes
type Source string

const (
	SourceHandFilled    Source = "hand_filled"
	SourceOfficialScan  Source = "official_scan"
	SourceAuthorityScan Source = "authority_scan"
)

// Sources lists every source in tie-break order
var Sources = []Source{SourceOfficialScan, SourceAuthorityScan, SourceHandFilled}

// Valid reports whether s is a known source
func (s Source) Valid() bool {
	switch s {
	case SourceHandFilled, SourceOfficialScan, SourceAuthorityScan:
		return true
	}
	return false
}

// Rank gives the deterministic tie-break position of s; lower ranks first
func (s Source) Rank() int {
	for i, src := range Sources {
		if src == s {
			return i
		}
	}
	return len(Sources)
}

// RecognitionMetadata is the telemetry one pass reports for one document.
// Pointer fields are optional; nil means the signal was not measured.
type RecognitionMetadata struct {
	MeanConfidence *float64 `json:"mean_confidence,omitempty"`
	MinConfidence  *float64 `json:"min_confidence,omitempty"`

	TotalTokens         int `json:"total_tokens"`
	LowConfidenceTokens int `json:"low_confidence_tokens"`

	QualityIndex *float64 `json:"quality_index,omitempty"`
	Blur         *float64 `json:"blur,omitempty"`
	Contrast     *float64 `json:"contrast,omitempty"`
	Noise        *float64 `json:"noise,omitempty"`
	EdgeDensity  *float64 `json:"edge_density,omitempty"`

	PatternMatchedFields int `json:"pattern_matched_fields"`
	ExtractedFields      int `json:"extracted_fields"`
	CatalogMatchedFields int `json:"catalog_matched_fields"`
	PatternViolations    int `json:"pattern_violations"`
}

// Weights are the injectable reliability coefficients
type Weights struct {
	Base map[Source]float64 `json:"base" mapstructure:"base"`

	// blend of the three factors for recognition-based sources
	Confidence float64 `json:"confidence" mapstructure:"confidence"`
	Quality    float64 `json:"quality" mapstructure:"quality"`
	Success    float64 `json:"success" mapstructure:"success"`

	ConfidenceExponent   float64 `json:"confidence_exponent" mapstructure:"confidence_exponent"`
	LowConfidencePenalty float64 `json:"low_confidence_penalty" mapstructure:"low_confidence_penalty"`

	BlurPenalty    float64 `json:"blur_penalty" mapstructure:"blur_penalty"`
	ContrastFloor  float64 `json:"contrast_floor" mapstructure:"contrast_floor"`
	NoisePenalty   float64 `json:"noise_penalty" mapstructure:"noise_penalty"`
	MinEdgeDensity float64 `json:"min_edge_density" mapstructure:"min_edge_density"`
	LowEdgePenalty float64 `json:"low_edge_penalty" mapstructure:"low_edge_penalty"`

	// blend inside the success factor
	PatternWeight   float64 `json:"pattern_weight" mapstructure:"pattern_weight"`
	CatalogWeight   float64 `json:"catalog_weight" mapstructure:"catalog_weight"`
	ViolationWeight float64 `json:"violation_weight" mapstructure:"violation_weight"`
}

// DefaultWeights returns the coefficients shipped with the engine
func DefaultWeights() Weights {
	return Weights{
		Base: map[Source]float64{
			SourceHandFilled:    0.60,
			SourceOfficialScan:  0.85,
			SourceAuthorityScan: 0.70,
		},
		Confidence:           0.45,
		Quality:              0.25,
		Success:              0.30,
		ConfidenceExponent:   1.0,
		LowConfidencePenalty: 0.5,
		BlurPenalty:          0.3,
		ContrastFloor:        0.7,
		NoisePenalty:         0.2,
		MinEdgeDensity:       0.02,
		LowEdgePenalty:       0.8,
		PatternWeight:        0.4,
		CatalogWeight:        0.3,
		ViolationWeight:      0.3,
	}
}

// Validate checks the coefficients once at load time
func (w Weights) Validate() error {
	for _, src := range Sources {
		b, ok := w.Base[src]
		if !ok {
			return fmt.Errorf("missing base reliability for source %s", src)
		}
		if b < 0 || b > 1 {
			return fmt.Errorf("base reliability for %s must be within [0,1], got %.3f", src, b)
		}
	}
	if w.Confidence < 0 || w.Quality < 0 || w.Success < 0 {
		return errors.New("reliability factor weights must be non-negative")
	}
	if w.Confidence+w.Quality+w.Success == 0 {
		return errors.New("reliability factor weights cannot all be zero")
	}
	if w.ConfidenceExponent <= 0 {
		return fmt.Errorf("confidence exponent must be positive, got %.3f", w.ConfidenceExponent)
	}
	for name, v := range map[string]float64{
		"low_confidence_penalty": w.LowConfidencePenalty,
		"blur_penalty":           w.BlurPenalty,
		"contrast_floor":         w.ContrastFloor,
		"noise_penalty":          w.NoisePenalty,
		"min_edge_density":       w.MinEdgeDensity,
		"low_edge_penalty":       w.LowEdgePenalty,
		"pattern_weight":         w.PatternWeight,
		"catalog_weight":         w.CatalogWeight,
		"violation_weight":       w.ViolationWeight,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %.3f", name, v)
		}
	}
	return nil
}

// Model computes per-source reliability
type Model struct {
	weights Weights
}

// NewModel creates a model over already validated weights
func NewModel(weights Weights) *Model {
	return &Model{weights: weights}
}

// Weights returns the coefficients the model was built with
func (m *Model) Weights() Weights {
	return m.weights
}

// Score returns the reliability in [0,1] of one pass. It never fails: nil
// metadata and unmeasured signals count as neutral.
func (m *Model) Score(source Source, md *RecognitionMetadata) float64 {
	base := m.weights.Base[source]
	if md == nil {
		if source == SourceHandFilled {
			return 0
		}
		return clamp(base)
	}

	if source == SourceHandFilled {
		pattern := ratio(md.PatternMatchedFields, md.ExtractedFields)
		catalog := ratio(md.CatalogMatchedFields, md.ExtractedFields)
		return clamp(base * (0.5*pattern + 0.5*catalog))
	}

	w := m.weights
	blend := w.Confidence*m.confidenceFactor(md) +
		w.Quality*m.qualityFactor(md) +
		w.Success*m.successFactor(md)
	return clamp(base * blend)
}

// confidenceFactor is increasing in mean confidence and decreasing in the
// share of low-confidence tokens.
func (m *Model) confidenceFactor(md *RecognitionMetadata) float64 {
	mean := 1.0
	if md.MeanConfidence != nil {
		mean = clamp(*md.MeanConfidence)
	}
	lowRatio := 0.0
	if md.TotalTokens > 0 {
		lowRatio = clamp(float64(md.LowConfidenceTokens) / float64(md.TotalTokens))
	}
	return clamp(math.Pow(mean, m.weights.ConfidenceExponent) * (1 - m.weights.LowConfidencePenalty*lowRatio))
}

func (m *Model) qualityFactor(md *RecognitionMetadata) float64 {
	w := m.weights
	q := optional(md.QualityIndex)
	if md.Blur != nil {
		q *= 1 - w.BlurPenalty*clamp(*md.Blur)
	}
	if md.Contrast != nil {
		q *= w.ContrastFloor + (1-w.ContrastFloor)*clamp(*md.Contrast)
	}
	if md.Noise != nil {
		q *= 1 - w.NoisePenalty*clamp(*md.Noise)
	}
	if md.EdgeDensity != nil && *md.EdgeDensity < w.MinEdgeDensity {
		q *= w.LowEdgePenalty
	}
	return clamp(q)
}

func (m *Model) successFactor(md *RecognitionMetadata) float64 {
	if md.ExtractedFields <= 0 {
		return 1
	}
	w := m.weights
	total := w.PatternWeight + w.CatalogWeight + w.ViolationWeight
	if total == 0 {
		return 1
	}
	pattern := ratio(md.PatternMatchedFields, md.ExtractedFields)
	catalog := ratio(md.CatalogMatchedFields, md.ExtractedFields)
	violations := ratio(md.PatternViolations, md.ExtractedFields)
	return clamp((w.PatternWeight*pattern + w.CatalogWeight*catalog + w.ViolationWeight*(1-violations)) / total)
}

// ratio is num/den clamped to [0,1]; a zero denominator yields 0
func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return clamp(float64(num) / float64(den))
}

func optional(v *float64) float64 {
	if v == nil {
		return 1
	}
	return clamp(*v)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
