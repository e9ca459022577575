// Package pipeline processes one case end to end: it runs the source
// extractors concurrently, scores each pass, fuses the candidates, and
// classifies the fused record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-expediente-fusion/internal/classification"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
)

const tracerName = "github.com/a3tai/mcp-expediente-fusion/internal/pipeline"

// ErrNoSources is returned when a case has neither extractors nor inline
// source data
var ErrNoSources = errors.New("case has no sources to process")

// ErrSourceAbsent is returned by extractors when the case carries nothing
// for their source. The source is then left out without an error entry.
var ErrSourceAbsent = errors.New("source absent from case")

// Processor wires the fusion engine and classifier to the extractors
type Processor struct {
	engine     *fusion.Engine
	classifier *classification.Classifier
	extractors map[fusion.SourceType]Extractor
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

// Option customizes a Processor
type Option func(*Processor)

// WithLogger sets the logger; the default discards output
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithExtractor registers the extractor for its source, replacing any
// earlier one
func WithExtractor(e Extractor) Option {
	return func(p *Processor) {
		p.extractors[e.Source()] = e
	}
}

// WithClock overrides the time source for ProcessedAt
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithIDGenerator overrides how analysis IDs are generated
func WithIDGenerator(f func() string) Option {
	return func(p *Processor) { p.newID = f }
}

// NewProcessor creates a processor
func NewProcessor(engine *fusion.Engine, classifier *classification.Classifier, opts ...Option) *Processor {
	p := &Processor{
		engine:     engine,
		classifier: classifier,
		extractors: make(map[fusion.SourceType]Extractor),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the fusion engine
func (p *Processor) Engine() *fusion.Engine {
	return p.engine
}

// Classifier returns the classifier
func (p *Processor) Classifier() *classification.Classifier {
	return p.classifier
}

// Process fuses and classifies one case. Source failures are recorded on
// the report, not returned; errors mean the case could not be processed
// at all.
func (p *Processor) Process(ctx context.Context, c Case) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("case.id", c.ID),
	))
	defer span.End()

	log := p.logger.With("case_id", c.ID)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	extractions, sourceErrors, err := p.extractAll(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for src, msg := range sourceErrors {
		log.Warn("source extraction failed", "source", src, "error", msg)
	}
	if len(extractions) == 0 && len(sourceErrors) == 0 {
		return nil, ErrNoSources
	}

	rel := make(map[fusion.SourceType]float64, len(extractions))
	for _, ext := range extractions {
		rel[ext.Source] = p.engine.Reliability(ext.Source, ext.Metadata)
	}

	text := documentText(extractions)
	opType := c.OperationType
	if opType == "" {
		opType = p.classifier.DetectType(text)
		log.Debug("operation type detected from text", "operation_type", opType)
	}

	_, fuseSpan := p.tracer.Start(ctx, "fusion.FuseCase")
	candidates := BuildCandidates(p.engine.Coefficients(), extractions, rel)
	fused := p.engine.FuseCase(opType, candidates)
	fuseSpan.SetAttributes(
		attribute.String("fusion.routing", string(fused.Routing)),
		attribute.Float64("fusion.confidence", fused.OverallConfidence),
	)
	fuseSpan.End()

	overall := fused.OverallConfidence
	class := p.classifier.Classify(ctx, classification.Input{
		Text:       text,
		Record:     fused.Record,
		Confidence: &overall,
	})

	report := &Report{
		AnalysisID:           p.newID(),
		CaseID:               c.ID,
		OperationType:        opType,
		Fusion:               fused,
		Classification:       class,
		Reliability:          rel,
		RequiresManualReview: fused.RequiresManualReview() || class.RequiresManualReview,
		ProcessedAt:          p.now().UTC(),
	}
	if len(sourceErrors) > 0 {
		report.SourceErrors = sourceErrors
	}

	span.SetAttributes(
		attribute.String("case.operation_type", opType),
		attribute.String("case.routing", string(fused.Routing)),
		attribute.Bool("case.manual_review", report.RequiresManualReview),
	)
	log.Info("case processed",
		"analysis_id", report.AnalysisID,
		"operation_type", opType,
		"routing", fused.Routing,
		"confidence", fused.OverallConfidence,
		"requirement_type", class.Type.Code,
		"relation", class.Relation,
		"warnings", len(class.Warnings),
	)
	return report, nil
}

// extractAll runs every source concurrently and waits for all of them.
// Inline source data takes precedence over a registered extractor.
// Extractions come back in source order.
func (p *Processor) extractAll(ctx context.Context, c Case) ([]*Extraction, map[fusion.SourceType]string, error) {
	var (
		mu      sync.Mutex
		results = make(map[fusion.SourceType]*Extraction)
		errs    = make(map[fusion.SourceType]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range reliability.Sources {
		if inline := c.Sources[src]; inline != nil {
			e := *inline
			e.Source = src
			mu.Lock()
			results[src] = &e
			mu.Unlock()
			continue
		}
		ext, ok := p.extractors[src]
		if !ok {
			continue
		}
		g.Go(func() error {
			_, span := p.tracer.Start(gctx, "pipeline.Extract", trace.WithAttributes(
				attribute.String("source", string(src)),
			))
			defer span.End()

			out, err := ext.Extract(gctx, c)
			if errors.Is(err, ErrSourceAbsent) {
				return nil
			}
			if err == nil && out == nil {
				err = errors.New("extractor returned no data")
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				span.RecordError(err)
				errs[src] = err.Error()
				return nil
			}
			out.Source = src
			results[src] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("case %s: %w", c.ID, err)
	}

	out := make([]*Extraction, 0, len(results))
	for _, src := range reliability.Sources {
		if ext, ok := results[src]; ok {
			out = append(out, ext)
		}
	}
	return out, errs, nil
}

// documentText joins the extraction bodies in source order
func documentText(extractions []*Extraction) string {
	parts := make([]string, 0, len(extractions))
	for _, ext := range extractions {
		if t := strings.TrimSpace(ext.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
