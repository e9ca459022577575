package pipeline

import (
	"context"
	"time"

	"github.com/a3tai/mcp-expediente-fusion/internal/classification"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
)

// Case identifies one case to process. Documents maps a source to the
// location of the document that source reads; extractors interpret it.
type Case struct {
	ID            string                            `json:"case_id"`
	OperationType string                            `json:"operation_type,omitempty"`
	Documents     map[fusion.SourceType]string      `json:"documents,omitempty"`
	Sources       map[fusion.SourceType]*Extraction `json:"sources,omitempty"`
}

// Extraction is what one source pass produced for a case: raw field
// values with optional per-field telemetry, plus the pass metadata.
type Extraction struct {
	Source          fusion.SourceType                `json:"source"`
	Fields          map[string]*string               `json:"fields"`
	FieldConfidence map[string]float64               `json:"field_confidence,omitempty"`
	PatternMatched  map[string]bool                  `json:"pattern_matched,omitempty"`
	CatalogMatched  map[string]bool                  `json:"catalog_matched,omitempty"`
	Metadata        *reliability.RecognitionMetadata `json:"metadata,omitempty"`

	// Text is the document body, used for classification
	Text string `json:"text,omitempty"`
}

// Extractor runs one source pass over a case
type Extractor interface {
	Source() fusion.SourceType
	Extract(ctx context.Context, c Case) (*Extraction, error)
}

// Report is the full outcome for one case
type Report struct {
	AnalysisID           string                        `json:"analysis_id"`
	CaseID               string                        `json:"case_id"`
	OperationType        string                        `json:"operation_type"`
	Fusion               fusion.CaseFusionResult       `json:"fusion"`
	Classification       classification.Result         `json:"classification"`
	Reliability          map[fusion.SourceType]float64 `json:"reliability"`
	SourceErrors         map[fusion.SourceType]string  `json:"source_errors,omitempty"`
	RequiresManualReview bool                          `json:"requires_manual_review"`
	ProcessedAt          time.Time                     `json:"processed_at"`
}
