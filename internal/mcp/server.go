package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/config"
	"github.com/legisdoc/parecer/internal/descriptions"
	"github.com/legisdoc/parecer/internal/extract"
	"github.com/legisdoc/parecer/internal/models"
	"github.com/legisdoc/parecer/internal/opinion"
	"github.com/legisdoc/parecer/internal/pdf"
	"github.com/legisdoc/parecer/internal/security"
)

// FieldExtractor pulls bill fields out of PDF bytes.
type FieldExtractor interface {
	ExtractPDF(data []byte) extract.Fields
}

// OpinionGenerator runs one generation batch.
type OpinionGenerator interface {
	Generate(ctx context.Context, req opinion.Request) (*opinion.BatchResult, error)
}

// Catalog is the read side of storage the tools need.
type Catalog interface {
	CommitteesWithMembers(ctx context.Context) ([]models.CommitteeWithMembers, error)
	ListHistory(ctx context.Context) ([]models.HistoryRecord, error)
}

// Deps groups the collaborators of a Server.
type Deps struct {
	Catalog   Catalog
	Extractor FieldExtractor
	Generator OpinionGenerator
	Validator *pdf.Validator
	Uploads   *security.PathValidator
	Log       *zap.Logger
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	catalog   Catalog
	extractor FieldExtractor
	generator OpinionGenerator
	validator *pdf.Validator
	uploads   *security.PathValidator
	log       *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, d Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if d.Catalog == nil || d.Extractor == nil || d.Generator == nil || d.Validator == nil || d.Uploads == nil {
		return nil, fmt.Errorf("catalog, extractor, generator, validator and uploads are required")
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		catalog:   d.Catalog,
		extractor: d.Extractor,
		generator: d.Generator,
		validator: d.Validator,
		uploads:   d.Uploads,
		log:       log,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	billExtractTool := mcp.NewTool(
		descriptions.ToolBillExtractFields,
		mcp.WithDescription(descriptions.BillExtractFieldsDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF file name in the upload directory, or a full path inside it"),
		),
	)
	s.mcpServer.AddTool(billExtractTool, s.handleBillExtractFields)

	opinionGenerateTool := mcp.NewTool(
		descriptions.ToolOpinionGenerate,
		mcp.WithDescription(descriptions.OpinionGenerateDescription),
		mcp.WithString("pdf_filename", mcp.Description("Source PDF name recorded in the history")),
		mcp.WithString("tipo_projeto", mcp.Description("Bill type, e.g. PROJETO DE LEI ORDINÁRIA")),
		mcp.WithString("numero_projeto", mcp.Description("Bill number, e.g. 045/2025")),
		mcp.WithString("data_projeto", mcp.Description("Bill date phrase, e.g. 12 de março de 2025")),
		mcp.WithString("ementa", mcp.Description("Bill summary")),
		mcp.WithString("autoria", mcp.Description("Bill author")),
		mcp.WithString("data_protocolo", mcp.Description("Protocol date, YYYY-MM-DD")),
		mcp.WithBoolean("regime_urgencia", mcp.Description("Bill is under urgency")),
		mcp.WithBoolean("incluir_apresentacao", mcp.Description("Mention the presentation session")),
		mcp.WithString("data_apresentacao", mcp.Description("Presentation session date, YYYY-MM-DD")),
		mcp.WithString("data_parecer", mcp.Description("Default opinion date, YYYY-MM-DD")),
		mcp.WithArray("comissoes",
			mcp.Required(),
			mcp.Description("Committees to generate for"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sigla":        map[string]any{"type": "string"},
					"relator_id":   map[string]any{"type": "integer"},
					"num_parecer":  map[string]any{"type": "string"},
					"data_parecer": map[string]any{"type": "string"},
				},
				"required": []string{"sigla"},
			}),
		),
	)
	s.mcpServer.AddTool(opinionGenerateTool, s.handleOpinionGenerate)

	opinionHistoryTool := mcp.NewTool(
		descriptions.ToolOpinionHistory,
		mcp.WithDescription(descriptions.OpinionHistoryDescription),
	)
	s.mcpServer.AddTool(opinionHistoryTool, s.handleOpinionHistory)

	committeeListTool := mcp.NewTool(
		descriptions.ToolCommitteeList,
		mcp.WithDescription(descriptions.CommitteeListDescription),
	)
	s.mcpServer.AddTool(committeeListTool, s.handleCommitteeList)
}

// resolveUpload maps a bare name into the upload directory and checks that
// full paths stay inside it.
func (s *Server) resolveUpload(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return s.uploads.Resolve(path)
	}
	if err := s.uploads.ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}

// Handler functions
func (s *Server) handleBillExtractFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.resolveUpload(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read file: %v", err)), nil
	}
	if err := s.validator.CheckName(resolved); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.validator.CheckSize(int64(len(data))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.validator.Inspect(resolved, data)
	if err != nil {
		s.log.Warn("pdf failed structural validation", zap.String("file", resolved), zap.Error(err))
		info = &pdf.InspectResult{Name: filepath.Base(resolved), Size: int64(len(data))}
	}

	fields := s.extractor.ExtractPDF(data)
	s.log.Debug("fields extracted", zap.String("file", info.Name), zap.Int("found", len(fields.Map())))

	return mcp.NewToolResultText(s.formatFields(info, fields)), nil
}

// generateArgs is the tool's argument object; data_parecer is the default
// for committees that carry no date of their own.
type generateArgs struct {
	opinion.Request
	OpinionDate string `json:"data_parecer"`
}

func (s *Server) handleOpinionGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	var args generateArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if len(args.Selections) == 0 {
		return mcp.NewToolResultError("select at least one committee in comissoes"), nil
	}

	req := args.Request
	req.PDFName = filepath.Base(req.PDFName)
	if req.PDFName == "." {
		req.PDFName = ""
	}
	for i := range req.Selections {
		if req.Selections[i].OpinionDate == "" {
			req.Selections[i].OpinionDate = args.OpinionDate
		}
	}

	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, opinion.ErrInvalidRequest) {
			s.log.Error("generation aborted", zap.Error(err))
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.Empty() {
		return mcp.NewToolResultError("generation failed\n" + s.formatOutcomes(result)), nil
	}

	return mcp.NewToolResultText(s.formatOutcomes(result)), nil
}

func (s *Server) handleOpinionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.catalog.ListHistory(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No opinions generated yet"), nil
	}

	text := fmt.Sprintf("Generated opinions (%d):\n", len(records))
	for _, r := range records {
		text += fmt.Sprintf("- %s | bill %s | from %s | %s\n", r.DocxName, r.ProjectNumber, r.PDFName, r.GeneratedAt)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCommitteeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	committees, err := s.catalog.CommitteesWithMembers(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(committees) == 0 {
		return mcp.NewToolResultText("No committees registered (run init-db)"), nil
	}

	text := fmt.Sprintf("Committees (%d):\n", len(committees))
	for _, c := range committees {
		text += fmt.Sprintf("\n%s - %s\n", c.Code, c.Name)
		if len(c.Members) == 0 {
			text += "  (no members)\n"
			continue
		}
		for _, m := range c.Members {
			text += fmt.Sprintf("  [%d] %s", m.ID, m.Name)
			if m.Role != "" {
				text += fmt.Sprintf(" (%s)", m.Role)
			}
			text += "\n"
		}
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) formatFields(info *pdf.InspectResult, fields extract.Fields) string {
	text := fmt.Sprintf("Bill fields for: %s\n", info.Name)
	text += fmt.Sprintf("Pages: %d\n", info.Pages)
	text += fmt.Sprintf("Size: %d bytes\n\n", info.Size)

	if fields.IsEmpty() {
		return text + "No fields recognised; fill them in manually.\n"
	}

	rows := []struct{ key, value string }{
		{extract.FieldType, fields.Type},
		{extract.FieldNumber, fields.Number},
		{extract.FieldDate, fields.Date},
		{extract.FieldSummary, fields.Summary},
	}
	for _, r := range rows {
		if r.value == "" {
			text += fmt.Sprintf("%s: (not found)\n", r.key)
			continue
		}
		text += fmt.Sprintf("%s: %s\n", r.key, r.value)
	}
	return text
}

func (s *Server) formatOutcomes(result *opinion.BatchResult) string {
	text := fmt.Sprintf("Generated %d of %d opinions\n", len(result.Files()), len(result.Outcomes))
	for _, o := range result.Outcomes {
		if o.Generated() {
			text += fmt.Sprintf("- %s: %s\n", o.Code, o.File)
		} else {
			text += fmt.Sprintf("- %s: skipped (%s)\n", o.Code, o.Reason)
		}
	}
	return text
}

// ServeStdio serves the tools over standard I/O until stdin closes
func (s *Server) ServeStdio() error {
	if s.config.IsDebug() {
		s.log.Debug("starting MCP server in stdio mode", zap.String("uploads", s.config.UploadDir))
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// MCPServer exposes the underlying server for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
