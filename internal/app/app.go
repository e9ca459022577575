// Package app assembles the fusion services from a process configuration.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
	"github.com/a3tai/mcp-expediente-fusion/internal/classification"
	"github.com/a3tai/mcp-expediente-fusion/internal/config"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/pdf"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
)

// App holds the long-lived services of one process
type App struct {
	Coefficients fusion.Coefficients
	Registry     catalog.Registry
	Processor    *pipeline.Processor
	Reader       *pdf.Reader

	closer io.Closer
}

// New loads coefficients and rules, opens the catalog and wires the PDF
// extractors into a processor. Any configuration problem fails here.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	coef, err := config.LoadCoefficients(cfg.CoefficientsPath)
	if err != nil {
		return nil, err
	}
	engine, err := fusion.NewEngine(coef)
	if err != nil {
		return nil, fmt.Errorf("create fusion engine: %w", err)
	}

	a := &App{Coefficients: coef}
	if cfg.CatalogDB != "" {
		reg, err := catalog.NewSQLiteRegistry(cfg.CatalogDB)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		a.Registry, a.closer = reg, reg
	} else {
		a.Registry = catalog.NewMemoryRegistry()
	}

	ccfg := classification.DefaultConfig()
	ccfg.RulesPath = cfg.RulesPath
	classifier, err := classification.New(ccfg, a.Registry)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	a.Reader = pdf.NewReader(cfg.MaxFileSize, 0).WithRoot(cfg.DocumentRoot)
	forms := pdf.NewFormReader(cfg.MaxFileSize).WithRoot(cfg.DocumentRoot)
	a.Processor = pipeline.NewProcessor(engine, classifier,
		pipeline.WithLogger(logger),
		pipeline.WithExtractor(pdf.NewTextExtractor(fusion.SourceAuthorityScan, a.Reader, coef)),
		pipeline.WithExtractor(pdf.NewFormExtractor(forms, coef, nil)),
	)

	logger.Debug("services ready",
		"coefficients", cfg.CoefficientsPath,
		"rules", cfg.RulesPath,
		"catalog_db", cfg.CatalogDB,
		"docroot", cfg.DocumentRoot,
		"rule_count", len(classifier.Rules()),
	)
	return a, nil
}

// Close releases the catalog database, if any
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
