// Package mcp exposes the form wizard engine as an MCP tool surface.
// Each wizard operation maps to one tool; the host on the other end of
// the protocol is the presentation layer.
package mcp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/formflow/mcp-form-wizard/internal/config"
	"github.com/formflow/mcp-form-wizard/internal/descriptions"
	"github.com/formflow/mcp-form-wizard/internal/field"
	"github.com/formflow/mcp-form-wizard/internal/wizard"
)

// Server represents the MCP server instance
type Server struct {
	config        *config.Config
	wizardService *wizard.Service
	mcpServer     *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, wizardService *wizard.Service) (*Server, error) {
	if wizardService == nil {
		return nil, fmt.Errorf("wizardService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:        cfg,
		wizardService: wizardService,
		mcpServer:     mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	loadTool := mcp.NewTool(
		"wizard_load_document",
		mcp.WithDescription(descriptions.WizardLoadDocumentDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(loadTool, s.handleLoadDocument)

	stateTool := mcp.NewTool(
		"wizard_state",
		mcp.WithDescription(descriptions.WizardStateDescription),
	)
	s.mcpServer.AddTool(stateTool, s.handleState)

	startTool := mcp.NewTool(
		"wizard_start",
		mcp.WithDescription(descriptions.WizardStartDescription),
	)
	s.mcpServer.AddTool(startTool, s.handleStart)

	nextTool := mcp.NewTool(
		"wizard_next",
		mcp.WithDescription(descriptions.WizardNextDescription),
	)
	s.mcpServer.AddTool(nextTool, s.handleNext)

	backTool := mcp.NewTool(
		"wizard_back",
		mcp.WithDescription(descriptions.WizardBackDescription),
	)
	s.mcpServer.AddTool(backTool, s.handleBack)

	setValueTool := mcp.NewTool(
		"wizard_set_value",
		mcp.WithDescription(descriptions.WizardSetValueDescription),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Field identifier as reported by wizard_fields"),
		),
		mcp.WithString("text",
			mcp.Description("Text value, selected option, or encoded signature payload"),
		),
		mcp.WithBoolean("checked",
			mcp.Description("Checkbox value"),
		),
	)
	s.mcpServer.AddTool(setValueTool, s.handleSetValue)

	jumpTool := mcp.NewTool(
		"wizard_jump",
		mcp.WithDescription(descriptions.WizardJumpDescription),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Field identifier as reported by wizard_fields"),
		),
	)
	s.mcpServer.AddTool(jumpTool, s.handleJump)

	fieldsTool := mcp.NewTool(
		"wizard_fields",
		mcp.WithDescription(descriptions.WizardFieldsDescription),
	)
	s.mcpServer.AddTool(fieldsTool, s.handleFields)

	progressTool := mcp.NewTool(
		"wizard_progress",
		mcp.WithDescription(descriptions.WizardProgressDescription),
	)
	s.mcpServer.AddTool(progressTool, s.handleProgress)

	submitTool := mcp.NewTool(
		"wizard_submit",
		mcp.WithDescription(descriptions.WizardSubmitDescription),
	)
	s.mcpServer.AddTool(submitTool, s.handleSubmit)
}

// Handler functions

func (s *Server) handleLoadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.wizardService.LoadDocument(wizard.LoadDocumentRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Loaded document: %s\n", result.Document.Source)
	responseText += fmt.Sprintf("Pages: %d\n", result.Document.PageCount)
	responseText += fmt.Sprintf("Form fields: %d\n", result.FieldCount)
	responseText += "\n" + s.formatSnapshot(result.Snapshot)

	if result.FieldCount == 0 {
		responseText += "\nNote: this document has no fillable form fields."
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.State()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSnapshot(result.Snapshot)), nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.Start()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSnapshot(result.Snapshot)), nil
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.Next()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSnapshot(result.Snapshot)), nil
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.Back()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSnapshot(result.Snapshot)), nil
}

func (s *Server) handleSetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	req := wizard.SetValueRequest{FieldID: fieldID}
	if text, ok := args["text"].(string); ok {
		req.Text = text
	}
	if checked, ok := args["checked"].(bool); ok {
		req.Checked = &checked
	}

	result, err := s.wizardService.SetValue(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Field %s updated\n", fieldID)
	responseText += fmt.Sprintf("Complete: %t\n", result.Complete)
	if len(result.ValidationErrors) > 0 {
		responseText += "Validation errors:\n"
		for _, problem := range result.ValidationErrors {
			responseText += fmt.Sprintf("  - %s\n", problem)
		}
	}
	responseText += "\n" + s.formatSnapshot(result.Snapshot)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleJump(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.wizardService.Jump(wizard.JumpRequest{FieldID: fieldID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSnapshot(result.Snapshot)), nil
}

func (s *Server) handleFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.Fields()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFields(result.Fields)), nil
}

func (s *Server) handleProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := s.wizardService.Progress()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	responseText := fmt.Sprintf("Progress: %d of %d required fields complete (%d%%)",
		progress.Completed, progress.Total, progress.Percentage)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.wizardService.Submit(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Outcome.Success {
		responseText = "Submission accepted\n"
		if result.Outcome.Receipt != "" {
			responseText += fmt.Sprintf("Receipt: %s\n", result.Outcome.Receipt)
		}
	} else {
		responseText = "Submission failed\n"
		for _, failure := range result.Outcome.Failures {
			responseText += fmt.Sprintf("  - %s\n", failure)
		}
		responseText += "The wizard remains in the submit phase; retry after resolving the failures.\n"
	}
	responseText += "\n" + s.formatSnapshot(result.Snapshot)

	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods

func (s *Server) formatSnapshot(snap wizard.Snapshot) string {
	text := fmt.Sprintf("Phase: %s\n", snap.Phase)
	if snap.CurrentField != nil {
		f := snap.CurrentField
		text += fmt.Sprintf("Current field: %s (%s, page %d", f.ID, f.Kind, f.Page)
		if f.Name != "" {
			text += fmt.Sprintf(", %q", f.Name)
		}
		text += ")\n"
		if len(f.Options) > 0 {
			text += fmt.Sprintf("Options: %s\n", strings.Join(f.Options, ", "))
		}
	}
	text += fmt.Sprintf("Progress: %d/%d (%d%%)\n",
		snap.Progress.Completed, snap.Progress.Total, snap.Progress.Percentage)
	text += fmt.Sprintf("Action: %s (enabled: %t)\n", snap.Action.Label, snap.Action.Enabled)
	if len(snap.ValidationErrors) > 0 {
		text += "Validation errors:\n"
		for _, problem := range snap.ValidationErrors {
			text += fmt.Sprintf("  - %s\n", problem)
		}
	}
	return text
}

func (s *Server) formatFields(fields []field.Field) string {
	if len(fields) == 0 {
		return "No form fields in the loaded document"
	}

	text := fmt.Sprintf("%d field(s) in traversal order:\n", len(fields))
	for i, f := range fields {
		text += fmt.Sprintf("%d. %s\n", i+1, f.ID)
		text += fmt.Sprintf("   Name: %s\n", f.Name)
		text += fmt.Sprintf("   Kind: %s, Page: %d\n", f.Kind, f.Page)
		flags := make([]string, 0, 3)
		if f.Required {
			flags = append(flags, "required")
		}
		if f.ReadOnly {
			flags = append(flags, "read-only")
		}
		if f.InSignatureSet() {
			flags = append(flags, "signature")
		}
		if len(flags) > 0 {
			text += fmt.Sprintf("   Flags: %s\n", strings.Join(flags, ", "))
		}
		if i < len(fields)-1 {
			text += "\n"
		}
	}
	return text
}

// Run starts the MCP server over standard I/O
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form wizard MCP server in stdio mode")
		log.Printf("Forms directory: %s", s.config.FormsDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
