package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-expediente-fusion/internal/catalog"
	"github.com/a3tai/mcp-expediente-fusion/internal/classification"
	"github.com/a3tai/mcp-expediente-fusion/internal/config"
	"github.com/a3tai/mcp-expediente-fusion/internal/descriptions"
	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/pdf"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
	"github.com/a3tai/mcp-expediente-fusion/internal/report"
)

const shutdownTimeout = 5 * time.Second

// Services are the long-lived dependencies the tools call into
type Services struct {
	Processor *pipeline.Processor
	Registry  catalog.Registry
	Reader    *pdf.Reader
	Logger    *slog.Logger
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       Services
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc Services) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc.Processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if svc.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if svc.Reader == nil {
		svc.Reader = pdf.NewReader(cfg.MaxFileSize, 0).WithRoot(cfg.DocumentRoot)
	}
	logger := svc.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	fuseCaseTool := mcp.NewTool(
		"fuse_case",
		mcp.WithDescription(descriptions.GetToolDescription("fuse_case")),
		mcp.WithObject("case",
			mcp.Required(),
			mcp.Description("Case with case_id, optional operation_type, documents (source to PDF path) and inline sources"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: text (default) or json"),
			mcp.Enum(string(report.FormatText), string(report.FormatJSON)),
		),
	)
	s.mcpServer.AddTool(fuseCaseTool, s.handleFuseCase)

	fuseFieldTool := mcp.NewTool(
		"fuse_field",
		mcp.WithDescription(descriptions.GetToolDescription("fuse_field")),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Field name, e.g. tax_id or holder_name"),
		),
		mcp.WithArray("candidates",
			mcp.Required(),
			mcp.Description("Candidates with field, value, source, reliability and optional telemetry flags"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithBoolean("required",
			mcp.Description("Whether the field is required for the operation type"),
		),
	)
	s.mcpServer.AddTool(fuseFieldTool, s.handleFuseField)

	scoreTool := mcp.NewTool(
		"score_reliability",
		mcp.WithDescription(descriptions.GetToolDescription("score_reliability")),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("official_scan, authority_scan or hand_filled"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Recognition metadata; omit to score the source base alone"),
		),
	)
	s.mcpServer.AddTool(scoreTool, s.handleScoreReliability)

	classifyTool := mcp.NewTool(
		"classify_document",
		mcp.WithDescription(descriptions.GetToolDescription("classify_document")),
		mcp.WithString("text",
			mcp.Description("Document text; either text or path is required"),
		),
		mcp.WithString("path",
			mcp.Description("Full path to a PDF with a text layer"),
		),
		mcp.WithObject("record",
			mcp.Description("Optional fused record (field to value) used to check required references"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Optional ceiling for the classification confidence"),
		),
	)
	s.mcpServer.AddTool(classifyTool, s.handleClassifyDocument)

	listTypesTool := mcp.NewTool(
		"list_requirement_types",
		mcp.WithDescription(descriptions.GetToolDescription("list_requirement_types")),
	)
	s.mcpServer.AddTool(listTypesTool, s.handleListRequirementTypes)

	registerTypeTool := mcp.NewTool(
		"register_requirement_type",
		mcp.WithDescription(descriptions.GetToolDescription("register_requirement_type")),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Lowercase snake_case code"),
		),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Human readable label"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
	)
	s.mcpServer.AddTool(registerTypeTool, s.handleRegisterRequirementType)

	infoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription(descriptions.GetToolDescription("server_info")),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleFuseCase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var c pipeline.Case
	if err := decodeArgument(args, "case", &c); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := report.ParseFormat(request.GetString("format", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := s.svc.Processor.Process(ctx, c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("case %s could not be processed: %v", c.ID, err)), nil
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, r, format); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleFuseField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var candidates []fusion.FieldCandidate
	if err := decodeArgument(request.GetArguments(), "candidates", &candidates); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i := range candidates {
		if !candidates[i].Source.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("candidate %d: unknown source %q", i, candidates[i].Source)), nil
		}
		if candidates[i].Field == "" {
			candidates[i].Field = field
		}
	}

	result := s.svc.Processor.Engine().FuseField(field, candidates, request.GetBool("required", false))
	return jsonResult(result)
}

func (s *Server) handleScoreReliability(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source := fusion.SourceType(strings.TrimSpace(raw))
	if !source.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source %q", raw)), nil
	}

	var md *reliability.RecognitionMetadata
	args := request.GetArguments()
	if _, ok := args["metadata"]; ok {
		md = &reliability.RecognitionMetadata{}
		if err := decodeArgument(args, "metadata", md); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	return jsonResult(map[string]any{
		"source":      source,
		"reliability": s.svc.Processor.Engine().Reliability(source, md),
	})
}

func (s *Server) handleClassifyDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := request.GetString("text", "")
	path := request.GetString("path", "")

	switch {
	case strings.TrimSpace(text) != "" && path != "":
		return mcp.NewToolResultError("provide either text or path, not both"), nil
	case path != "":
		doc, err := s.svc.Reader.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !doc.ContentType.HasTextLayer() {
			return mcp.NewToolResultError(fmt.Sprintf("%s has no text layer (%s)", path, doc.ContentType)), nil
		}
		text = doc.Text
	case strings.TrimSpace(text) == "":
		return mcp.NewToolResultError("text or path is required"), nil
	}

	in := classification.Input{Text: text}
	if _, ok := args["record"]; ok {
		if err := decodeArgument(args, "record", &in.Record); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v, ok := args["confidence"].(float64); ok {
		if v < 0 || v > 1 {
			return mcp.NewToolResultError("confidence must be between 0 and 1"), nil
		}
		in.Confidence = &v
	}

	return jsonResult(s.svc.Processor.Classifier().Classify(ctx, in))
}

func (s *Server) handleListRequirementTypes(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	types, err := s.svc.Registry.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatRequirementTypes(types)), nil
}

func (s *Server) handleRegisterRequirementType(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	t, err := s.svc.Registry.Register(ctx, catalog.RequirementType{
		Code:        strings.TrimSpace(code),
		Label:       strings.TrimSpace(label),
		Description: strings.TrimSpace(request.GetString("description", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.Info("requirement type registered", "code", t.Code, "label", t.Label)
	return mcp.NewToolResultText(fmt.Sprintf("Registered requirement type: %s (%s)", t.Code, t.Label)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// Formatting methods
func (s *Server) formatRequirementTypes(types []catalog.RequirementType) string {
	if len(types) == 0 {
		return "No requirement types registered"
	}

	text := fmt.Sprintf("Requirement types (%d):\n\n", len(types))
	for _, t := range types {
		origin := "registered"
		if t.Known {
			origin = "built-in"
		}
		text += fmt.Sprintf("- %s: %s [%s]\n", t.Code, t.Label, origin)
		if t.Description != "" {
			text += fmt.Sprintf("  %s\n", t.Description)
		}
	}
	return text
}

func (s *Server) formatServerInfo() string {
	coef := s.svc.Processor.Engine().Coefficients()

	text := fmt.Sprintf("Server: %s %s\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Mode: %s\n", s.config.Mode)
	if s.config.CoefficientsPath != "" {
		text += fmt.Sprintf("Coefficients: %s\n", s.config.CoefficientsPath)
	} else {
		text += "Coefficients: built-in defaults\n"
	}
	if s.config.CatalogDB != "" {
		text += fmt.Sprintf("Catalog database: %s\n", s.config.CatalogDB)
	}

	text += "\nRouting thresholds:\n"
	text += fmt.Sprintf("  auto process at or above %.2f\n", coef.AutoProcessThreshold)
	text += fmt.Sprintf("  manual review below %.2f\n", coef.ManualReviewThreshold)
	text += fmt.Sprintf("  fuzzy agreement at or above %.2f\n", coef.FuzzyThreshold)

	text += "\nAvailable tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("- %s: %s\n", name, descriptions.GetToolSummary(name))
	}
	return text
}

// decodeArgument decodes args[key] into dst. Clients may send either a
// JSON value or a string holding JSON.
func decodeArgument(args map[string]any, key string, dst any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fmt.Errorf("required argument %q not found", key)
	}

	var data []byte
	if str, isString := raw.(string); isString {
		data = []byte(str)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves stdin and stdout until EOF or cancellation
func (s *Server) runStdioMode(ctx context.Context) error {
	return s.serveStdio(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Debug("starting MCP server in stdio mode", "server", s.config.ServerName)

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves streamable HTTP on the configured address
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server", "address", addr)
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		s.logger.Info("MCP server stopped")
		return nil
	}
}
