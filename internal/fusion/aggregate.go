package fusion

import (
	"sort"
)

// FuseCase fuses every field that has candidates or is required by the
// operation type, then aggregates the results.
func (e *Engine) FuseCase(operationType string, candidates map[string][]FieldCandidate) CaseFusionResult {
	required := toSet(e.coef.RequiredFieldsFor(operationType))

	names := make(map[string]struct{}, len(candidates)+len(required))
	for name := range candidates {
		names[name] = struct{}{}
	}
	for name := range required {
		names[name] = struct{}{}
	}

	results := make(map[string]FieldFusionResult, len(names))
	for _, name := range sortedKeys(names) {
		results[name] = e.FuseField(name, candidates[name], required[name])
	}
	return e.Aggregate(results, operationType)
}

// Aggregate folds per-field results into the case result and routing.
// A required field that is absent from results, or that no source could
// supply, counts as missing with confidence 0.
func (e *Engine) Aggregate(results map[string]FieldFusionResult, operationType string) CaseFusionResult {
	c := e.coef
	requiredFields := c.RequiredFieldsFor(operationType)
	required := toSet(requiredFields)

	out := CaseFusionResult{
		Record:                make(map[string]string),
		OperationType:         operationType,
		MissingRequiredFields: []string{},
		ConflictingFields:     []string{},
		Fields:                make(map[string]FieldFusionResult, len(results)),
	}

	var requiredSum float64
	for _, name := range requiredFields {
		r, ok := results[name]
		if !ok || r.Decision == DecisionAllSourcesNull {
			out.MissingRequiredFields = append(out.MissingRequiredFields, name)
			continue
		}
		requiredSum += r.Confidence
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var optionalSum float64
	optionalCount := 0
	for _, name := range names {
		r := results[name]
		out.Fields[name] = r
		if r.Value != nil {
			out.Record[name] = *r.Value
		}
		if r.Decision == DecisionConflict {
			out.ConflictingFields = append(out.ConflictingFields, name)
		}
		if r.NeedsReview {
			out.FieldsNeedingReview = append(out.FieldsNeedingReview, name)
		}
		if required[name] || r.Decision == DecisionAllSourcesNull {
			continue
		}
		optionalSum += r.Confidence
		optionalCount++
	}

	hasRequired := len(requiredFields) > 0
	if hasRequired {
		out.RequiredScore = requiredSum / float64(len(requiredFields))
	}
	if optionalCount > 0 {
		out.OptionalScore = optionalSum / float64(optionalCount)
	}

	switch {
	case hasRequired && optionalCount > 0:
		out.OverallConfidence = c.RequiredWeight*out.RequiredScore + c.OptionalWeight*out.OptionalScore
	case hasRequired:
		out.OverallConfidence = out.RequiredScore
	case optionalCount > 0:
		out.OverallConfidence = out.OptionalScore
	}

	out.Routing = e.route(out, hasRequired)
	return out
}

func (e *Engine) route(r CaseFusionResult, hasRequired bool) Routing {
	c := e.coef
	switch {
	case len(r.MissingRequiredFields) > 0,
		hasRequired && r.RequiredScore < c.ManualReviewThreshold,
		len(r.ConflictingFields) > 0:
		return RoutingManualReviewRequired
	case r.OverallConfidence >= c.AutoProcessThreshold:
		return RoutingAutoProcess
	default:
		return RoutingReviewRecommended
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
