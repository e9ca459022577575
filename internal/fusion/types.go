package fusion

import (
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
)

// SourceType identifies the extraction pass a candidate came from
type SourceType = reliability.Source

const (
	SourceHandFilled    = reliability.SourceHandFilled
	SourceOfficialScan  = reliability.SourceOfficialScan
	SourceAuthorityScan = reliability.SourceAuthorityScan
)

// Field names of a case record
const (
	FieldCaseNumber    = "case_number"
	FieldLetterNumber  = "letter_number"
	FieldAuthorityName = "authority_name"
	FieldHolderName    = "holder_name"
	FieldTaxID         = "tax_id"
	FieldNationalID    = "national_id"
	FieldAccountCode   = "account_code"
	FieldAmount        = "amount"
	FieldRequestDate   = "request_date"
	FieldDescription   = "description"
)

// Decision is how a field value was reached
type Decision string

const (
	DecisionAllSourcesAgree Decision = "all_sources_agree"
	DecisionFuzzyAgreement  Decision = "fuzzy_agreement"
	DecisionWeightedVoting  Decision = "weighted_voting"
	DecisionBestEffort      Decision = "best_effort"
	DecisionConflict        Decision = "conflict"
	DecisionAllSourcesNull  Decision = "all_sources_null"
)

// Routing is the case-level next action
type Routing string

const (
	RoutingAutoProcess          Routing = "auto_process"
	RoutingReviewRecommended    Routing = "review_recommended"
	RoutingManualReviewRequired Routing = "manual_review_required"
)

// FieldCandidate is one source's proposed value for one field
type FieldCandidate struct {
	Field           string     `json:"field"`
	Value           *string    `json:"value"`
	Source          SourceType `json:"source"`
	Reliability     float64    `json:"reliability"`
	FieldConfidence *float64   `json:"field_confidence,omitempty"`
	PatternMatched  bool       `json:"pattern_matched"`
	CatalogMatched  bool       `json:"catalog_matched"`
}

// ConflictingValue attributes one disagreeing value to its source
type ConflictingValue struct {
	Source SourceType `json:"source"`
	Value  string     `json:"value"`
}

// FieldFusionResult is the reconciled outcome for one field
type FieldFusionResult struct {
	Field      string             `json:"field"`
	Value      *string            `json:"value"`
	Confidence float64            `json:"confidence"`
	Decision   Decision           `json:"decision"`
	Sources    []SourceType       `json:"sources,omitempty"`
	Conflicts  []ConflictingValue `json:"conflicts,omitempty"`

	// Similarity is set for fuzzy agreement only
	Similarity float64 `json:"similarity,omitempty"`
	// NeedsReview marks best-effort values worth an optional look
	NeedsReview bool `json:"needs_review,omitempty"`
}

// CaseFusionResult aggregates every field of one case
type CaseFusionResult struct {
	Record                map[string]string            `json:"record"`
	OperationType         string                       `json:"operation_type"`
	OverallConfidence     float64                      `json:"overall_confidence"`
	RequiredScore         float64                      `json:"required_score"`
	OptionalScore         float64                      `json:"optional_score"`
	MissingRequiredFields []string                     `json:"missing_required_fields"`
	ConflictingFields     []string                     `json:"conflicting_fields"`
	FieldsNeedingReview   []string                     `json:"fields_needing_review,omitempty"`
	Routing               Routing                      `json:"routing"`
	Fields                map[string]FieldFusionResult `json:"fields"`
}

// RequiresManualReview is a convenience for downstream queues
func (r CaseFusionResult) RequiresManualReview() bool {
	return r.Routing == RoutingManualReviewRequired
}
