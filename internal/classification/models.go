package classification

import (
	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
)

// Relation says how a document relates to earlier cases
type Relation string

const (
	RelationNewRequest     Relation = "new_request"
	RelationReminder       Relation = "reminder"
	RelationScopeExpansion Relation = "scope_expansion"
	RelationClarification  Relation = "clarification"
)

// IsFollowUp reports whether r points back at a prior case
func (r Relation) IsFollowUp() bool {
	return r != RelationNewRequest && r != ""
}

// Rule detects one requirement type. Rules are evaluated in ascending
// Precedence and the first rule with enough hits wins.
type Rule struct {
	Name            string   `json:"name" yaml:"name"`
	Type            string   `json:"type" yaml:"type"`
	Precedence      int      `json:"precedence" yaml:"precedence"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords"`
	KeywordPatterns []string `json:"keyword_patterns,omitempty" yaml:"keyword_patterns"`
	MinHits         int      `json:"min_hits,omitempty" yaml:"min_hits"`
	Confidence      float64  `json:"confidence" yaml:"confidence"`
	Disabled        bool     `json:"disabled,omitempty" yaml:"disabled"`
	Description     string   `json:"description,omitempty" yaml:"description"`
}

// RelationRule detects one follow-up relation
type RelationRule struct {
	Name            string   `json:"name" yaml:"name"`
	Relation        Relation `json:"relation" yaml:"relation"`
	Precedence      int      `json:"precedence" yaml:"precedence"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords"`
	KeywordPatterns []string `json:"keyword_patterns,omitempty" yaml:"keyword_patterns"`
	Confidence      float64  `json:"confidence" yaml:"confidence"`
	Disabled        bool     `json:"disabled,omitempty" yaml:"disabled"`
}

// RuleSet is the content of a rule file
type RuleSet struct {
	Version     string         `json:"version" yaml:"version"`
	Description string         `json:"description,omitempty" yaml:"description"`
	Relations   []RelationRule `json:"relations,omitempty" yaml:"relations"`
	Types       []Rule         `json:"types,omitempty" yaml:"types"`
}

// Config tunes the classifier
type Config struct {
	// ConfidenceFloor forces manual review below it
	ConfidenceFloor float64 `json:"confidence_floor" mapstructure:"confidence_floor"`
	// KeywordBonus is added per extra hit beyond the first
	KeywordBonus float64 `json:"keyword_bonus" mapstructure:"keyword_bonus"`
	// MaxConfidence caps keyword-derived confidence
	MaxConfidence float64 `json:"max_confidence" mapstructure:"max_confidence"`
	// RulesPath optionally points at a YAML or JSON rule file merged over
	// the defaults, matched by rule name
	RulesPath string `json:"rules_path,omitempty" mapstructure:"rules_path"`
}

// DefaultConfig returns the stock classifier settings
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor: 0.70,
		KeywordBonus:    0.05,
		MaxConfidence:   0.95,
	}
}

// Input is what the classifier looks at for one case
type Input struct {
	Text   string            `json:"text"`
	Record map[string]string `json:"record,omitempty"`
	// Confidence optionally caps the result, e.g. with the fused record's
	// overall confidence
	Confidence *float64 `json:"confidence,omitempty"`
}

// Result is the classification of one case. A follow-up relation or any
// warning always sets RequiresManualReview.
type Result struct {
	Type                 catalog.RequirementType `json:"type"`
	Confidence           float64                 `json:"confidence"`
	Warnings             []string                `json:"warnings"`
	RequiresManualReview bool                    `json:"requires_manual_review"`
	Relation             Relation                `json:"relation"`
	PriorReference       string                  `json:"prior_reference,omitempty"`
	MatchedRule          string                  `json:"matched_rule,omitempty"`
	Evidence             []string                `json:"evidence,omitempty"`
}
