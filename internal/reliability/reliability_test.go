package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestHandFilledReliability(t *testing.T) {
	m := NewModel(DefaultWeights())

	md := &RecognitionMetadata{
		ExtractedFields:      10,
		PatternMatchedFields: 8,
		CatalogMatchedFields: 6,
	}
	// 0.60 * (0.5*0.8 + 0.5*0.6)
	assert.InDelta(t, 0.42, m.Score(SourceHandFilled, md), 1e-9)

	// zero extracted fields: both ratios are 0, not a division error
	assert.Equal(t, 0.0, m.Score(SourceHandFilled, &RecognitionMetadata{PatternMatchedFields: 3}))
	assert.Equal(t, 0.0, m.Score(SourceHandFilled, nil))
}

func TestRecognitionReliabilityNeutralDefaults(t *testing.T) {
	m := NewModel(DefaultWeights())

	// nothing measured: every factor is neutral, so the prior is returned
	assert.InDelta(t, 0.85, m.Score(SourceOfficialScan, &RecognitionMetadata{}), 1e-9)
	assert.InDelta(t, 0.70, m.Score(SourceAuthorityScan, nil), 1e-9)
}

func TestRecognitionReliabilityPenalties(t *testing.T) {
	m := NewModel(DefaultWeights())

	clean := &RecognitionMetadata{
		MeanConfidence:       f(0.95),
		TotalTokens:          200,
		LowConfidenceTokens:  4,
		QualityIndex:         f(0.9),
		ExtractedFields:      10,
		PatternMatchedFields: 9,
		CatalogMatchedFields: 8,
	}
	noisy := &RecognitionMetadata{
		MeanConfidence:       f(0.60),
		TotalTokens:          200,
		LowConfidenceTokens:  90,
		QualityIndex:         f(0.5),
		Blur:                 f(0.8),
		Contrast:             f(0.2),
		Noise:                f(0.7),
		EdgeDensity:          f(0.01),
		ExtractedFields:      10,
		PatternMatchedFields: 4,
		CatalogMatchedFields: 2,
		PatternViolations:    5,
	}

	cleanScore := m.Score(SourceOfficialScan, clean)
	noisyScore := m.Score(SourceOfficialScan, noisy)

	assert.Greater(t, cleanScore, noisyScore)
	assert.LessOrEqual(t, cleanScore, 0.85)
	assert.GreaterOrEqual(t, noisyScore, 0.0)
}

func TestReliabilityMonotonicInMeanConfidence(t *testing.T) {
	m := NewModel(DefaultWeights())

	for _, src := range []Source{SourceOfficialScan, SourceAuthorityScan} {
		prev := -1.0
		for c := 0.0; c <= 1.0001; c += 0.05 {
			md := &RecognitionMetadata{
				MeanConfidence:      f(c),
				TotalTokens:         100,
				LowConfidenceTokens: 20,
				QualityIndex:        f(0.8),
				ExtractedFields:     5,
			}
			score := m.Score(src, md)
			assert.GreaterOrEqual(t, score, prev, "source %s confidence %.2f", src, c)
			prev = score
		}
	}
}

func TestReliabilityClamped(t *testing.T) {
	w := DefaultWeights()
	w.Base[SourceOfficialScan] = 1
	w.Confidence, w.Quality, w.Success = 1, 1, 1
	m := NewModel(w)

	score := m.Score(SourceOfficialScan, &RecognitionMetadata{MeanConfidence: f(1.7), QualityIndex: f(-3)})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	tests := []struct {
		name   string
		mutate func(*Weights)
	}{
		{"missing base", func(w *Weights) { delete(w.Base, SourceAuthorityScan) }},
		{"base out of range", func(w *Weights) { w.Base[SourceHandFilled] = 1.2 }},
		{"negative weight", func(w *Weights) { w.Quality = -0.1 }},
		{"all weights zero", func(w *Weights) { w.Confidence, w.Quality, w.Success = 0, 0, 0 }},
		{"zero exponent", func(w *Weights) { w.ConfidenceExponent = 0 }},
		{"penalty out of range", func(w *Weights) { w.BlurPenalty = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			assert.Error(t, w.Validate())
		})
	}
}

func TestSourceRank(t *testing.T) {
	assert.Less(t, SourceOfficialScan.Rank(), SourceAuthorityScan.Rank())
	assert.Less(t, SourceAuthorityScan.Rank(), SourceHandFilled.Rank())
	assert.True(t, SourceHandFilled.Valid())
	assert.False(t, Source("fax").Valid())
}
