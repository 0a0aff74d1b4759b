// Package mcpserver binds the expense service to the Model Context
// Protocol: nine tools plus the read-only categories resource, served
// over stdio or streamable HTTP.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

const (
	serverName    = "expense-tracker"
	serverVersion = "1.0.0"

	categoriesURI = "expense://categories"

	// Tool operation names
	ToolAddExpense        = "add_expense"
	ToolGetExpense        = "get_expense"
	ToolListExpenses      = "list_expenses"
	ToolUpdateExpense     = "update_expense"
	ToolDeleteExpense     = "delete_expense"
	ToolDeleteByDateRange = "delete_expenses_by_date_range"
	ToolSummarize         = "summarize"
	ToolGetStatistics     = "get_statistics"
	ToolExportExpenses    = "export_expenses"
)

type Server struct {
	mcp     *server.MCPServer
	service *services.ExpenseService
	logger  *log.Logger
}

func New(service *services.ExpenseService, logger *log.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
		service: service,
		logger:  logger.WithComponent("mcpserver"),
	}
	s.registerTools()
	s.registerResources()
	return s
}

func (s *Server) registerTools() {
	filterOpts := func(opts ...mcp.ToolOption) []mcp.ToolOption {
		return append(opts,
			mcp.WithString("start_date", mcp.Description("Inclusive start date filter (YYYY-MM-DD)")),
			mcp.WithString("end_date", mcp.Description("Inclusive end date filter (YYYY-MM-DD)")),
			mcp.WithString("category", mcp.Description("Filter by category")),
			mcp.WithString("subcategory", mcp.Description("Filter by subcategory")),
			mcp.WithString("min_amount", mcp.Description("Inclusive minimum amount, e.g. 5.00")),
			mcp.WithString("max_amount", mcp.Description("Inclusive maximum amount, e.g. 100.00")),
		)
	}

	s.mcp.AddTool(mcp.NewTool(ToolAddExpense,
		mcp.WithDescription("Add a new expense record"),
		mcp.WithString("date", mcp.Required(), mcp.Description("Expense date (YYYY-MM-DD)")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Amount as a decimal string, e.g. 12.50; negative for refunds")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Main category, e.g. Food")),
		mcp.WithString("subcategory", mcp.Description("Optional subcategory, e.g. Groceries")),
		mcp.WithString("description", mcp.Description("Optional free-text note")),
	), s.handleAddExpense)

	s.mcp.AddTool(mcp.NewTool(ToolGetExpense,
		mcp.WithDescription("Get a single expense by id"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Expense id")),
	), s.handleGetExpense)

	s.mcp.AddTool(mcp.NewTool(ToolListExpenses,
		filterOpts(
			mcp.WithDescription("List expenses, optionally filtered; ordered by date then id"),
			mcp.WithNumber("limit", mcp.Description("Maximum number of records to return (default: no cap)")),
		)...,
	), s.handleListExpenses)

	s.mcp.AddTool(mcp.NewTool(ToolUpdateExpense,
		mcp.WithDescription("Update an existing expense; only supplied fields change"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Expense id")),
		mcp.WithString("date", mcp.Description("New date (YYYY-MM-DD)")),
		mcp.WithString("amount", mcp.Description("New amount as a decimal string")),
		mcp.WithString("category", mcp.Description("New category")),
		mcp.WithString("subcategory", mcp.Description("New subcategory")),
		mcp.WithString("description", mcp.Description("New description")),
	), s.handleUpdateExpense)

	s.mcp.AddTool(mcp.NewTool(ToolDeleteExpense,
		mcp.WithDescription("Delete an expense by id"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Expense id")),
	), s.handleDeleteExpense)

	s.mcp.AddTool(mcp.NewTool(ToolDeleteByDateRange,
		mcp.WithDescription("Delete every expense dated within an inclusive range"),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Start date (YYYY-MM-DD)")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("End date (YYYY-MM-DD)")),
	), s.handleDeleteByDateRange)

	s.mcp.AddTool(mcp.NewTool(ToolSummarize,
		filterOpts(mcp.WithDescription("Grouped totals by category and subcategory, largest first"))...,
	), s.handleSummarize)

	s.mcp.AddTool(mcp.NewTool(ToolGetStatistics,
		filterOpts(mcp.WithDescription("Overall statistics with a monthly breakdown"))...,
	), s.handleGetStatistics)

	s.mcp.AddTool(mcp.NewTool(ToolExportExpenses,
		filterOpts(
			mcp.WithDescription("Export expenses as JSON or CSV"),
			mcp.WithString("format", mcp.Description("Export format: json or csv (default json)")),
		)...,
	), s.handleExportExpenses)
}

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(categoriesURI, "Expense categories",
		mcp.WithResourceDescription("Configured categories and their subcategories"),
		mcp.WithMIMEType("application/json"),
	), s.handleCategoriesResource)
}

func (s *Server) handleCategoriesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.service.Categories().JSON()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      categoriesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ServeStdio blocks serving the stdio transport until the client closes
// the stream or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return server.ServeStdio(s.mcp, server.WithStdioContextFunc(
		func(context.Context) context.Context { return ctx },
	))
}

// NewHTTPServer returns the streamable HTTP transport wrapper; callers
// own Start and Shutdown.
func (s *Server) NewHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp)
}
