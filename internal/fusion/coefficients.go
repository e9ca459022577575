package fusion

import (
	"errors"
	"fmt"
	"sort"

	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
	"github.com/a3tai/mcp-expediente-fusion/internal/sanitize"
	"github.com/a3tai/mcp-expediente-fusion/internal/validation"
)

// DefaultOperation keys the required field set used when an operation type
// has no entry of its own.
const DefaultOperation = "default"

// FieldSpec describes the expected format of one field
type FieldSpec struct {
	Kind      validation.Kind `json:"kind" mapstructure:"kind"`
	MaxLength int             `json:"max_length,omitempty" mapstructure:"max_length"`
}

// Coefficients is the read-only scoring configuration shared by every case.
// It is loaded once, validated, and never mutated afterwards.
type Coefficients struct {
	Reliability reliability.Weights `json:"reliability" mapstructure:"reliability"`

	ThreeSourceAgreement float64 `json:"three_source_agreement" mapstructure:"three_source_agreement"`
	TwoSourceAgreement   float64 `json:"two_source_agreement" mapstructure:"two_source_agreement"`

	FuzzyThreshold        float64 `json:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	FuzzyConfidenceFactor float64 `json:"fuzzy_confidence_factor" mapstructure:"fuzzy_confidence_factor"`

	VotingMargin            float64 `json:"voting_margin" mapstructure:"voting_margin"`
	VotingConfidenceCeiling float64 `json:"voting_confidence_ceiling" mapstructure:"voting_confidence_ceiling"`
	PatternBoost            float64 `json:"pattern_boost" mapstructure:"pattern_boost"`
	CatalogBoost            float64 `json:"catalog_boost" mapstructure:"catalog_boost"`
	CriticalPatternPenalty  float64 `json:"critical_pattern_penalty" mapstructure:"critical_pattern_penalty"`
	CriticalCatalogPenalty  float64 `json:"critical_catalog_penalty" mapstructure:"critical_catalog_penalty"`
	BestEffortFactor        float64 `json:"best_effort_factor" mapstructure:"best_effort_factor"`

	RequiredWeight        float64 `json:"required_weight" mapstructure:"required_weight"`
	OptionalWeight        float64 `json:"optional_weight" mapstructure:"optional_weight"`
	AutoProcessThreshold  float64 `json:"auto_process_threshold" mapstructure:"auto_process_threshold"`
	ManualReviewThreshold float64 `json:"manual_review_threshold" mapstructure:"manual_review_threshold"`

	Fields         map[string]FieldSpec `json:"fields" mapstructure:"fields"`
	FuzzyFields    []string             `json:"fuzzy_fields" mapstructure:"fuzzy_fields"`
	CriticalFields []string             `json:"critical_fields" mapstructure:"critical_fields"`
	RequiredFields map[string][]string  `json:"required_fields" mapstructure:"required_fields"`

	// Placeholders are the annotations nulled out before fusion
	Placeholders []string `json:"placeholders" mapstructure:"placeholders"`
}

// DefaultCoefficients returns the calibrated defaults
func DefaultCoefficients() Coefficients {
	base := []string{FieldCaseNumber, FieldLetterNumber, FieldAuthorityName}
	with := func(extra ...string) []string {
		return append(append([]string{}, base...), extra...)
	}

	return Coefficients{
		Reliability:             reliability.DefaultWeights(),
		ThreeSourceAgreement:    0.95,
		TwoSourceAgreement:      0.85,
		FuzzyThreshold:          0.85,
		FuzzyConfidenceFactor:   0.90,
		VotingMargin:            0.15,
		VotingConfidenceCeiling: 0.80,
		PatternBoost:            1.10,
		CatalogBoost:            1.15,
		CriticalPatternPenalty:  0.50,
		CriticalCatalogPenalty:  0.60,
		BestEffortFactor:        0.70,
		RequiredWeight:          0.70,
		OptionalWeight:          0.30,
		AutoProcessThreshold:    0.85,
		ManualReviewThreshold:   0.70,
		Fields: map[string]FieldSpec{
			FieldCaseNumber:    {Kind: validation.KindCaseNumber},
			FieldLetterNumber:  {Kind: validation.KindText, MaxLength: 60},
			FieldAuthorityName: {Kind: validation.KindText, MaxLength: 250},
			FieldHolderName:    {Kind: validation.KindText, MaxLength: 250},
			FieldTaxID:         {Kind: validation.KindTaxID},
			FieldNationalID:    {Kind: validation.KindNationalID},
			FieldAccountCode:   {Kind: validation.KindRoutingCode},
			FieldAmount:        {Kind: validation.KindAmount},
			FieldRequestDate:   {Kind: validation.KindDate},
			FieldDescription:   {Kind: validation.KindText, MaxLength: 2000},
		},
		FuzzyFields:    []string{FieldHolderName, FieldAuthorityName},
		CriticalFields: []string{FieldTaxID, FieldNationalID, FieldAccountCode, FieldAmount},
		RequiredFields: map[string][]string{
			DefaultOperation:      with(),
			"information_request": with(FieldHolderName),
			"freeze":              with(FieldHolderName, FieldTaxID, FieldAccountCode, FieldAmount),
			"unfreeze":            with(FieldHolderName, FieldAccountCode),
			"transfer":            with(FieldHolderName, FieldAccountCode, FieldAmount),
			"funds_placement":     with(FieldHolderName, FieldAmount),
		},
		Placeholders: append([]string{}, sanitize.DefaultPlaceholders...),
	}
}

// RequiredFieldsFor returns the sorted required field names for an
// operation type, falling back to the default set.
func (c Coefficients) RequiredFieldsFor(operationType string) []string {
	fields, ok := c.RequiredFields[operationType]
	if !ok {
		fields = c.RequiredFields[DefaultOperation]
	}
	out := append([]string{}, fields...)
	sort.Strings(out)
	return out
}

// FieldSpecFor returns the declared spec or bounded free text
func (c Coefficients) FieldSpecFor(field string) FieldSpec {
	if spec, ok := c.Fields[field]; ok {
		return spec
	}
	return FieldSpec{Kind: validation.KindText, MaxLength: validation.DefaultTextMaxLength}
}

// Validate fails fast on a configuration that cannot score cases
func (c Coefficients) Validate() error {
	if err := c.Reliability.Validate(); err != nil {
		return fmt.Errorf("reliability: %w", err)
	}

	unit := map[string]float64{
		"three_source_agreement":    c.ThreeSourceAgreement,
		"two_source_agreement":      c.TwoSourceAgreement,
		"fuzzy_threshold":           c.FuzzyThreshold,
		"fuzzy_confidence_factor":   c.FuzzyConfidenceFactor,
		"voting_margin":             c.VotingMargin,
		"voting_confidence_ceiling": c.VotingConfidenceCeiling,
		"critical_pattern_penalty":  c.CriticalPatternPenalty,
		"critical_catalog_penalty":  c.CriticalCatalogPenalty,
		"best_effort_factor":        c.BestEffortFactor,
		"required_weight":           c.RequiredWeight,
		"optional_weight":           c.OptionalWeight,
		"auto_process_threshold":    c.AutoProcessThreshold,
		"manual_review_threshold":   c.ManualReviewThreshold,
	}
	names := make([]string, 0, len(unit))
	for name := range unit {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := unit[name]; v <= 0 || v > 1 {
			return fmt.Errorf("%s must be within (0,1], got %.3f", name, v)
		}
	}

	if c.PatternBoost < 1 || c.CatalogBoost < 1 {
		return errors.New("pattern and catalog boosts must be at least 1")
	}
	if c.ThreeSourceAgreement <= c.TwoSourceAgreement {
		return errors.New("three_source_agreement must exceed two_source_agreement")
	}
	if c.VotingConfidenceCeiling >= c.TwoSourceAgreement {
		return errors.New("voting_confidence_ceiling must stay below two_source_agreement")
	}
	if diff := c.RequiredWeight + c.OptionalWeight - 1; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("required_weight and optional_weight must sum to 1, got %.3f", c.RequiredWeight+c.OptionalWeight)
	}
	if c.ManualReviewThreshold > c.AutoProcessThreshold {
		return errors.New("manual_review_threshold cannot exceed auto_process_threshold")
	}
	if _, ok := c.RequiredFields[DefaultOperation]; !ok {
		return fmt.Errorf("required_fields must define a %q entry", DefaultOperation)
	}
	for name, spec := range c.Fields {
		switch spec.Kind {
		case validation.KindTaxID, validation.KindNationalID, validation.KindCaseNumber,
			validation.KindRoutingCode, validation.KindDate, validation.KindAmount, validation.KindText:
		default:
			return fmt.Errorf("field %s has unknown kind %q", name, spec.Kind)
		}
		if spec.MaxLength < 0 {
			return fmt.Errorf("field %s has negative max_length", name)
		}
	}
	return nil
}
