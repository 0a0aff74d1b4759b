// Package services orchestrates the expense store, the category store
// and the export formatter behind the tool surface.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/categories"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/storage"
)

// ExpenseService validates inputs, applies soft category checks and
// delegates persistence to the SQLite repository.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	categories *categories.Store
}

func NewExpenseService(storage *storage.SQLiteRepository, categories *categories.Store) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		categories: categories,
	}
}

// Create validates and persists a new expense, returning the full
// record with its assigned id and timestamps.
func (s *ExpenseService) Create(ctx context.Context, p storage.CreateExpenseParams) (core.Expense, error) {
	e := core.Expense{
		Date:        p.Date,
		Amount:      p.Amount,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Description: p.Description,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.warnUnknownCategory(ctx, p.Category, p.Subcategory)

	return s.storage.CreateExpense(ctx, p)
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.storage.ListExpenses(ctx, f)
}

// Update applies a partial update. Only supplied fields change; the
// whole update commits or none of it does.
func (s *ExpenseService) Update(ctx context.Context, id int64, u core.UpdateFields) (core.Expense, error) {
	if u.Empty() {
		return core.Expense{}, fmt.Errorf("%w: no fields to update", core.ErrValidation)
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return core.Expense{}, err
		}
	}
	if u.Date != nil {
		if err := u.Date.Validate(); err != nil {
			return core.Expense{}, err
		}
	}
	if u.Category != nil {
		if *u.Category == "" {
			return core.Expense{}, core.ErrEmptyCategory
		}
		sub := ""
		if u.Subcategory != nil {
			sub = *u.Subcategory
		}
		s.warnUnknownCategory(ctx, *u.Category, sub)
	}

	return s.storage.UpdateExpense(ctx, id, u)
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeleteExpense(ctx, id)
}

// DeleteRange removes every expense dated within the inclusive bounds
// and returns the number removed.
func (s *ExpenseService) DeleteRange(ctx context.Context, start, end core.Date) (int64, error) {
	if err := start.Validate(); err != nil {
		return 0, err
	}
	if err := end.Validate(); err != nil {
		return 0, err
	}
	if start.After(end.Time) {
		return 0, fmt.Errorf("%w: start_date must not be after end_date", core.ErrValidation)
	}
	return s.storage.DeleteExpensesByDateRange(ctx, start, end)
}

// Summarize groups the filtered set by (category, subcategory) and
// totals each group exactly, plus the grand total across groups.
func (s *ExpenseService) Summarize(ctx context.Context, f core.Filter) (core.Summary, error) {
	if err := f.Validate(); err != nil {
		return core.Summary{}, err
	}
	groups, err := s.storage.SummarizeByCategory(ctx, f)
	if err != nil {
		return core.Summary{}, err
	}

	var grand int64
	for _, g := range groups {
		grand += g.Total.Cents
	}
	return core.Summary{Groups: groups, GrandTotal: core.Money{Cents: grand}}, nil
}

// Statistics computes count, total, mean, min/max, the chronological
// monthly breakdown and the most recent expense of the filtered set.
func (s *ExpenseService) Statistics(ctx context.Context, f core.Filter) (core.Statistics, error) {
	if err := f.Validate(); err != nil {
		return core.Statistics{}, err
	}
	count, total, minCents, maxCents, err := s.storage.Stats(ctx, f)
	if err != nil {
		return core.Statistics{}, err
	}
	monthly, err := s.storage.MonthlyBreakdown(ctx, f)
	if err != nil {
		return core.Statistics{}, err
	}
	recent, err := s.storage.MostRecentExpense(ctx, f)
	if err != nil {
		return core.Statistics{}, err
	}

	return core.Statistics{
		Count:      count,
		Total:      core.Money{Cents: total},
		Mean:       core.Money{Cents: core.MeanCents(total, count)},
		Min:        core.Money{Cents: minCents},
		Max:        core.Money{Cents: maxCents},
		Monthly:    monthly,
		MostRecent: recent,
	}, nil
}

// Export lists the filtered set under the usual ordering contract and
// renders it in the requested format.
func (s *ExpenseService) Export(ctx context.Context, format string, f core.Filter) ([]byte, error) {
	expenses, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data, err := export.Marshal(format, expenses)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Expenses exported", "format", format, "count", len(expenses))
	return data, nil
}

// Categories returns the read-only category store.
func (s *ExpenseService) Categories() *categories.Store {
	return s.categories
}

func (s *ExpenseService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

// warnUnknownCategory logs when a written category is not in the
// configured taxonomy. Soft validation only: the write proceeds.
func (s *ExpenseService) warnUnknownCategory(ctx context.Context, category, subcategory string) {
	if s.categories == nil {
		return
	}
	if !s.categories.Lookup(category, subcategory) {
		slog.WarnContext(ctx, "Category not in configured taxonomy",
			"category", category, "subcategory", subcategory)
	}
}
