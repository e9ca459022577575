// Package fusion reconciles the candidate values that up to three
// independent extraction passes proposed for each field of a case, and
// folds the per-field outcomes into a case-level confidence and route.
//
// Every operation here is pure: the same candidates and coefficients always
// produce the same result, and missing or partial data is expressed as a
// lower score or a null value rather than an error.
package fusion

import (
	"fmt"
	"sort"

	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
	"github.com/a3tai/mcp-expediente-fusion/internal/sanitize"
	"github.com/a3tai/mcp-expediente-fusion/internal/similarity"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

// Engine fuses fields with one immutable set of coefficients. It is safe
// for concurrent use.
type Engine struct {
	coef      Coefficients
	model     *reliability.Model
	sanitizer *sanitize.Sanitizer
	fuzzy     map[string]bool
	critical  map[string]bool
}

// NewEngine validates the coefficients and builds an engine
func NewEngine(coef Coefficients) (*Engine, error) {
	if err := coef.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coefficients: %w", err)
	}
	return &Engine{
		coef:      coef,
		model:     reliability.NewModel(coef.Reliability),
		sanitizer: sanitize.New(coef.Placeholders),
		fuzzy:     toSet(coef.FuzzyFields),
		critical:  toSet(coef.CriticalFields),
	}, nil
}

// Coefficients returns the configuration the engine was built with
func (e *Engine) Coefficients() Coefficients {
	return e.coef
}

// Reliability scores one extraction pass
func (e *Engine) Reliability(source SourceType, md *reliability.RecognitionMetadata) float64 {
	return e.model.Score(source, md)
}

// IsCritical reports whether field is in the critical catalog
func (e *Engine) IsCritical(field string) bool {
	return e.critical[field]
}

// candidate is a sanitized, validated candidate with its voting score
type candidate struct {
	FieldCandidate
	value string
	score float64
}

// FuseField reconciles the candidates proposed for one field. required
// tells whether the case's operation type needs the field, which decides
// between conflict and best-effort when voting is inconclusive.
func (e *Engine) FuseField(field string, candidates []FieldCandidate, required bool) FieldFusionResult {
	spec := e.coef.FieldSpecFor(field)

	valid := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		v := e.sanitizer.Clean(c.Value)
		if v == nil || !validation.Check(spec.Kind, v, spec.MaxLength) {
			continue
		}
		valid = append(valid, candidate{FieldCandidate: c, value: *v})
	}

	if len(valid) == 0 {
		return FieldFusionResult{Field: field, Decision: DecisionAllSourcesNull}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Reliability != valid[j].Reliability {
			return valid[i].Reliability > valid[j].Reliability
		}
		return valid[i].Source.Rank() < valid[j].Source.Rank()
	})

	if distinctValues(valid) == 1 {
		sources := sourcesOf(valid, valid[0].value)
		confidence := e.coef.TwoSourceAgreement
		if len(sources) >= 3 {
			confidence = e.coef.ThreeSourceAgreement
		}
		return FieldFusionResult{
			Field:      field,
			Value:      strPtr(valid[0].value),
			Confidence: confidence,
			Decision:   DecisionAllSourcesAgree,
			Sources:    sources,
		}
	}

	if e.fuzzy[field] && len(valid) >= 2 {
		first, second := valid[0], valid[1]
		sim := similarity.Ratio(first.value, second.value)
		if sim >= e.coef.FuzzyThreshold {
			return FieldFusionResult{
				Field:      field,
				Value:      strPtr(first.value),
				Confidence: clamp(sim * e.coef.FuzzyConfidenceFactor),
				Decision:   DecisionFuzzyAgreement,
				Sources:    sortedSources([]SourceType{first.Source, second.Source}),
				Similarity: sim,
			}
		}
	}

	return e.vote(field, valid, required)
}

// vote ranks candidates by weighted score and resolves or escalates
func (e *Engine) vote(field string, valid []candidate, required bool) FieldFusionResult {
	critical := e.critical[field]
	for i := range valid {
		valid[i].score = e.score(valid[i].FieldCandidate, critical)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].score != valid[j].score {
			return valid[i].score > valid[j].score
		}
		return valid[i].Source.Rank() < valid[j].Source.Rank()
	})

	top := valid[0]
	runnerUp := 0.0
	for _, c := range valid[1:] {
		if c.value != top.value {
			runnerUp = c.score
			break
		}
	}

	confidence := clamp(top.score)
	if confidence > e.coef.VotingConfidenceCeiling {
		confidence = e.coef.VotingConfidenceCeiling
	}

	if top.score-runnerUp > e.coef.VotingMargin {
		return FieldFusionResult{
			Field:      field,
			Value:      strPtr(top.value),
			Confidence: confidence,
			Decision:   DecisionWeightedVoting,
			Sources:    sourcesOf(valid, top.value),
		}
	}

	if required || critical {
		return FieldFusionResult{
			Field:     field,
			Decision:  DecisionConflict,
			Sources:   sourcesOf(valid, ""),
			Conflicts: conflictsOf(valid),
		}
	}

	return FieldFusionResult{
		Field:       field,
		Value:       strPtr(top.value),
		Confidence:  confidence * e.coef.BestEffortFactor,
		Decision:    DecisionBestEffort,
		Sources:     sourcesOf(valid, top.value),
		NeedsReview: true,
	}
}

// score is the weighted vote of one candidate
func (e *Engine) score(c FieldCandidate, critical bool) float64 {
	s := clamp(c.Reliability)
	if c.FieldConfidence != nil {
		s *= 0.5 + 0.5*clamp(*c.FieldConfidence)
	}
	if c.PatternMatched {
		s *= e.coef.PatternBoost
	}
	if c.CatalogMatched {
		s *= e.coef.CatalogBoost
	}
	if critical {
		if !c.PatternMatched {
			s *= e.coef.CriticalPatternPenalty
		}
		if !c.CatalogMatched {
			s *= e.coef.CriticalCatalogPenalty
		}
	}
	return s
}

func distinctValues(cs []candidate) int {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		seen[c.value] = struct{}{}
	}
	return len(seen)
}

// sourcesOf returns the distinct sources proposing value, or every source
// when value is empty.
func sourcesOf(cs []candidate, value string) []SourceType {
	var out []SourceType
	seen := make(map[SourceType]bool, len(cs))
	for _, c := range cs {
		if value != "" && c.value != value {
			continue
		}
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	return sortedSources(out)
}

// conflictsOf lists every distinct (source, value) pair in source order
func conflictsOf(cs []candidate) []ConflictingValue {
	type key struct {
		source SourceType
		value  string
	}
	seen := make(map[key]bool, len(cs))
	out := make([]ConflictingValue, 0, len(cs))
	for _, c := range cs {
		k := key{c.Source, c.value}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ConflictingValue{Source: c.Source, Value: c.value})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source.Rank() != out[j].Source.Rank() {
			return out[i].Source.Rank() < out[j].Source.Rank()
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func sortedSources(in []SourceType) []SourceType {
	out := append([]SourceType{}, in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func strPtr(s string) *string { return &s }

func clamp(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
