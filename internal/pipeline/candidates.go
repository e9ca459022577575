package pipeline

import (
	"sort"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/sanitize"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

// BuildCandidates turns source extractions into per-field candidates.
// reliability holds the score of each source. A field whose extraction
// carries no pattern flag gets one from the field's validator.
func BuildCandidates(coef fusion.Coefficients, extractions []*Extraction, reliability map[fusion.SourceType]float64) map[string][]fusion.FieldCandidate {
	out := make(map[string][]fusion.FieldCandidate)
	clean := sanitize.New(coef.Placeholders)
	for _, ext := range extractions {
		if ext == nil {
			continue
		}
		names := make([]string, 0, len(ext.Fields))
		for name := range ext.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value := ext.Fields[name]
			c := fusion.FieldCandidate{
				Field:          name,
				Value:          value,
				Source:         ext.Source,
				Reliability:    reliability[ext.Source],
				CatalogMatched: ext.CatalogMatched[name],
			}
			if conf, ok := ext.FieldConfidence[name]; ok {
				c.FieldConfidence = &conf
			}
			if matched, ok := ext.PatternMatched[name]; ok {
				c.PatternMatched = matched
			} else {
				spec := coef.FieldSpecFor(name)
				c.PatternMatched = validation.Check(spec.Kind, clean.Clean(value), spec.MaxLength)
			}
			out[name] = append(out[name], c)
		}
	}
	return out
}
