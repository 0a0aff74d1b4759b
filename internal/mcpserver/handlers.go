package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/storage"
)

// errorPayload is the failure shape every tool returns: a stable kind
// plus a readable message, never a silent empty success.
type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	kind := ""
	switch {
	case errors.Is(err, core.ErrValidation):
		kind = "validation_error"
	case errors.Is(err, core.ErrNotFound):
		kind = "not_found"
	default:
		// Internal failure: surface as a protocol-level error.
		return nil, err
	}
	data, merr := json.Marshal(errorPayload{Kind: kind, Message: err.Error()})
	if merr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return 0, fmt.Errorf("%w: id is required and must be a number", core.ErrValidation)
	}
	return int64(id), nil
}

// parseFilter builds a core.Filter from the optional filter arguments
// shared by list, summarize, statistics and export.
func parseFilter(req mcp.CallToolRequest) (core.Filter, error) {
	var f core.Filter
	var err error

	if v := req.GetString("start_date", ""); v != "" {
		if f.StartDate, err = core.ParseDate(v); err != nil {
			return f, fmt.Errorf("start_date: %w", err)
		}
	}
	if v := req.GetString("end_date", ""); v != "" {
		if f.EndDate, err = core.ParseDate(v); err != nil {
			return f, fmt.Errorf("end_date: %w", err)
		}
	}
	f.Category = req.GetString("category", "")
	f.Subcategory = req.GetString("subcategory", "")

	if v := req.GetString("min_amount", ""); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return f, fmt.Errorf("min_amount: %w", err)
		}
		f.MinAmount = &m
	}
	if v := req.GetString("max_amount", ""); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return f, fmt.Errorf("max_amount: %w", err)
		}
		f.MaxAmount = &m
	}

	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleAddExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateStr, err := req.RequireString("date")
	if err != nil {
		return errorResult(fmt.Errorf("%w: date is required", core.ErrValidation))
	}
	amountStr, err := req.RequireString("amount")
	if err != nil {
		return errorResult(fmt.Errorf("%w: amount is required", core.ErrValidation))
	}
	category, err := req.RequireString("category")
	if err != nil {
		return errorResult(fmt.Errorf("%w: category is required", core.ErrValidation))
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return errorResult(err)
	}
	amount, err := core.ParseMoney(amountStr)
	if err != nil {
		return errorResult(err)
	}

	expense, err := s.service.Create(ctx, storage.CreateExpenseParams{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Subcategory: req.GetString("subcategory", ""),
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(export.NewRecord(expense))
}

func (s *Server) handleGetExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return errorResult(err)
	}
	expense, err := s.service.Get(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(export.NewRecord(expense))
}

func (s *Server) handleListExpenses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return errorResult(err)
	}
	if raw, ok := req.GetArguments()["limit"]; ok {
		n, ok := raw.(float64)
		if !ok {
			return errorResult(fmt.Errorf("%w: limit must be a number", core.ErrValidation))
		}
		if n < 0 {
			return errorResult(fmt.Errorf("%w: limit must not be negative", core.ErrValidation))
		}
		filter.Limit = int(n)
	}
	expenses, err := s.service.List(ctx, filter)
	if err != nil {
		return errorResult(err)
	}

	records := make([]export.Record, len(expenses))
	for i, e := range expenses {
		records[i] = export.NewRecord(e)
	}
	return jsonResult(struct {
		Count    int             `json:"count"`
		Expenses []export.Record `json:"expenses"`
	}{len(records), records})
}

func (s *Server) handleUpdateExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return errorResult(err)
	}

	// Absent arguments leave the stored field untouched, so presence has
	// to be checked on the raw argument map.
	args := req.GetArguments()
	var fields core.UpdateFields

	if raw, ok := args["date"]; ok {
		v, ok := raw.(string)
		if !ok {
			return errorResult(core.ErrInvalidDate)
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return errorResult(err)
		}
		fields.Date = &d
	}
	if raw, ok := args["amount"]; ok {
		v, ok := raw.(string)
		if !ok {
			return errorResult(core.ErrInvalidAmount)
		}
		m, err := core.ParseMoney(v)
		if err != nil {
			return errorResult(err)
		}
		fields.Amount = &m
	}
	if raw, ok := args["category"]; ok {
		v, ok := raw.(string)
		if !ok {
			return errorResult(fmt.Errorf("%w: category must be a string", core.ErrValidation))
		}
		fields.Category = &v
	}
	if raw, ok := args["subcategory"]; ok {
		v, ok := raw.(string)
		if !ok {
			return errorResult(fmt.Errorf("%w: subcategory must be a string", core.ErrValidation))
		}
		fields.Subcategory = &v
	}
	if raw, ok := args["description"]; ok {
		v, ok := raw.(string)
		if !ok {
			return errorResult(fmt.Errorf("%w: description must be a string", core.ErrValidation))
		}
		fields.Description = &v
	}

	expense, err := s.service.Update(ctx, id, fields)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(export.NewRecord(expense))
}

func (s *Server) handleDeleteExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return errorResult(err)
	}
	if err := s.service.Delete(ctx, id); err != nil {
		return errorResult(err)
	}
	return jsonResult(struct {
		Deleted bool   `json:"deleted"`
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}{true, id, fmt.Sprintf("expense %d deleted", id)})
}

func (s *Server) handleDeleteByDateRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startStr, err := req.RequireString("start_date")
	if err != nil {
		return errorResult(fmt.Errorf("%w: start_date is required", core.ErrValidation))
	}
	endStr, err := req.RequireString("end_date")
	if err != nil {
		return errorResult(fmt.Errorf("%w: end_date is required", core.ErrValidation))
	}

	start, err := core.ParseDate(startStr)
	if err != nil {
		return errorResult(err)
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return errorResult(err)
	}

	count, err := s.service.DeleteRange(ctx, start, end)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(struct {
		DeletedCount int64  `json:"deleted_count"`
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
	}{count, start.String(), end.String()})
}

type summaryGroupPayload struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Count       int64  `json:"count"`
	Total       string `json:"total"`
}

func (s *Server) handleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return errorResult(err)
	}
	summary, err := s.service.Summarize(ctx, filter)
	if err != nil {
		return errorResult(err)
	}

	groups := make([]summaryGroupPayload, len(summary.Groups))
	for i, g := range summary.Groups {
		groups[i] = summaryGroupPayload{
			Category:    g.Category,
			Subcategory: g.Subcategory,
			Count:       g.Count,
			Total:       g.Total.String(),
		}
	}
	return jsonResult(struct {
		Groups     []summaryGroupPayload `json:"groups"`
		GrandTotal string                `json:"grand_total"`
	}{groups, summary.GrandTotal.String()})
}

type monthlyPayload struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
	Total string `json:"total"`
}

type mostRecentPayload struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
}

func (s *Server) handleGetStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return errorResult(err)
	}
	stats, err := s.service.Statistics(ctx, filter)
	if err != nil {
		return errorResult(err)
	}

	monthly := make([]monthlyPayload, len(stats.Monthly))
	for i, b := range stats.Monthly {
		monthly[i] = monthlyPayload{Month: b.Month, Count: b.Count, Total: b.Total.String()}
	}
	var recent *mostRecentPayload
	if stats.MostRecent != nil {
		recent = &mostRecentPayload{
			ID:       stats.MostRecent.ID,
			Date:     stats.MostRecent.Date.String(),
			Amount:   stats.MostRecent.Amount.String(),
			Category: stats.MostRecent.Category,
		}
	}
	return jsonResult(struct {
		Count      int64              `json:"count"`
		Total      string             `json:"total"`
		Mean       string             `json:"mean"`
		Min        string             `json:"min"`
		Max        string             `json:"max"`
		Monthly    []monthlyPayload   `json:"monthly"`
		MostRecent *mostRecentPayload `json:"most_recent,omitempty"`
	}{stats.Count, stats.Total.String(), stats.Mean.String(), stats.Min.String(), stats.Max.String(), monthly, recent})
}

func (s *Server) handleExportExpenses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return errorResult(err)
	}
	format := req.GetString("format", export.FormatJSON)

	data, err := s.service.Export(ctx, format, filter)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
