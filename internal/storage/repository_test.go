package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *SQLiteRepository, date string, cents int64, category, subcategory string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	e, err := repo.CreateExpense(context.Background(), CreateExpenseParams{
		Date:        d,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Subcategory: subcategory,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateExpense(ctx, CreateExpenseParams{
		Date:        core.NewDate(2024, 1, 5),
		Amount:      core.Money{Cents: 2000},
		Category:    "Food",
		Subcategory: "Groceries",
		Description: "weekly shop",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be stamped")
	}

	got, err := repo.GetExpense(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != created {
		t.Fatalf("get returned %+v, want %+v", got, created)
	}
	if got.Date.String() != "2024-01-05" || got.Amount.Cents != 2000 ||
		got.Category != "Food" || got.Subcategory != "Groceries" || got.Description != "weekly shop" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetExpense(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Insert out of date order on purpose.
	mustCreate(t, repo, "2024-02-10", 300, "Transport", "Fuel")
	mustCreate(t, repo, "2024-01-05", 2000, "Food", "Groceries")
	mustCreate(t, repo, "2024-01-20", 550, "Food", "Snacks")
	mustCreate(t, repo, "2024-01-05", 150, "Food", "Coffee")

	all, err := repo.ListExpenses(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	// (date ASC, id ASC): the two 2024-01-05 rows keep insertion order.
	wantDates := []string{"2024-01-05", "2024-01-05", "2024-01-20", "2024-02-10"}
	for i, e := range all {
		if e.Date.String() != wantDates[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantDates[i], e.Date)
		}
	}
	if all[0].ID > all[1].ID {
		t.Fatalf("same-date records not ordered by id: %d before %d", all[0].ID, all[1].ID)
	}

	cases := []struct {
		name   string
		filter core.Filter
		want   int
	}{
		{"by category", core.Filter{Category: "Food"}, 3},
		{"by subcategory", core.Filter{Category: "Food", Subcategory: "Snacks"}, 1},
		{"by date range", core.Filter{StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31)}, 3},
		{"inclusive bounds", core.Filter{StartDate: core.NewDate(2024, 1, 5), EndDate: core.NewDate(2024, 1, 5)}, 2},
		{"by amount range", core.Filter{MinAmount: &core.Money{Cents: 300}, MaxAmount: &core.Money{Cents: 600}}, 2},
		{"composed", core.Filter{Category: "Food", MinAmount: &core.Money{Cents: 500}}, 2},
		{"no match", core.Filter{Category: "Housing"}, 0},
	}
	for _, tc := range cases {
		got, err := repo.ListExpenses(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d records, got %d", tc.name, tc.want, len(got))
		}
	}

	// A limit keeps the earliest records of the usual ordering.
	limited, err := repo.ListExpenses(ctx, core.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d", len(limited))
	}
	if limited[0].ID != all[0].ID || limited[1].ID != all[1].ID {
		t.Fatalf("limit changed the ordering: %v vs %v", limited, all[:2])
	}
}

func TestMostRecentExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.MostRecentExpense(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("most recent on empty set: %v", err)
	}
	if empty != nil {
		t.Fatalf("expected nil for empty set, got %+v", empty)
	}

	mustCreate(t, repo, "2024-02-10", 300, "Transport", "Fuel")
	latest := mustCreate(t, repo, "2024-02-10", 550, "Food", "Snacks")
	mustCreate(t, repo, "2024-01-05", 2000, "Food", "Groceries")

	// Latest date wins; same-date ties break on the highest id.
	got, err := repo.MostRecentExpense(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("most recent: %v", err)
	}
	if got == nil || got.ID != latest.ID {
		t.Fatalf("expected expense %d, got %+v", latest.ID, got)
	}

	filtered, err := repo.MostRecentExpense(ctx, core.Filter{Category: "Transport"})
	if err != nil {
		t.Fatalf("filtered most recent: %v", err)
	}
	if filtered == nil || filtered.Category != "Transport" {
		t.Fatalf("expected Transport expense, got %+v", filtered)
	}
}

func TestUpdatePartial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "2024-01-05", 2000, "Food", "Groceries")

	// Advance the clock so the updated_at re-stamp is observable.
	repo.now = func() time.Time { return time.Now().UTC().Add(2 * time.Second) }

	updated, err := repo.UpdateExpense(ctx, created.ID, core.UpdateFields{
		Amount: &core.Money{Cents: 999},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 999 {
		t.Fatalf("amount not updated: %d", updated.Amount.Cents)
	}
	if updated.Category != "Food" || updated.Subcategory != "Groceries" || updated.Date.String() != "2024-01-05" {
		t.Fatalf("unsupplied fields changed: %+v", updated)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("id or created_at changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updated_at not re-stamped: %v vs %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdateErrors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpdateExpense(ctx, 42, core.UpdateFields{Amount: &core.Money{Cents: 1}}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created := mustCreate(t, repo, "2024-01-05", 2000, "Food", "")
	if _, err := repo.UpdateExpense(ctx, created.ID, core.UpdateFields{}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty update, got %v", err)
	}
}

func TestDeleteNotFoundTwice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "2024-01-05", 2000, "Food", "")
	if err := repo.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Same failure on first and second attempt, never a silent success.
	if err := repo.DeleteExpense(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-delete, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on third delete, got %v", err)
	}
}

func TestDeleteByDateRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, "2024-01-05", 100, "Food", "")
	mustCreate(t, repo, "2024-01-20", 200, "Food", "")
	mustCreate(t, repo, "2024-02-10", 300, "Food", "")

	count, err := repo.DeleteExpensesByDateRange(ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("delete range: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted, got %d", count)
	}

	left, err := repo.ListExpenses(ctx, core.Filter{
		StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected empty range after delete, got %d records", len(left))
	}

	count, err = repo.DeleteExpensesByDateRange(ctx, core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31))
	if err != nil {
		t.Fatalf("delete empty range: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 deleted, got %d", count)
	}
}

func TestNoIDRecycling(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := mustCreate(t, repo, "2024-01-05", 100, "Food", "")
	if err := repo.DeleteExpense(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second := mustCreate(t, repo, "2024-01-06", 200, "Food", "")
	if second.ID <= first.ID {
		t.Fatalf("id recycled: %d after deleting %d", second.ID, first.ID)
	}
}

func TestSummarizeByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, "2024-01-05", 2000, "Food", "Groceries")
	mustCreate(t, repo, "2024-01-20", 550, "Food", "Snacks")
	mustCreate(t, repo, "2024-01-21", 550, "Transport", "Fuel")

	groups, err := repo.SummarizeByCategory(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	// Total DESC, then category ASC on the 550 tie.
	if groups[0].Category != "Food" || groups[0].Subcategory != "Groceries" || groups[0].Total.Cents != 2000 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Category != "Food" || groups[1].Subcategory != "Snacks" {
		t.Fatalf("tie not broken by category: %+v", groups[1])
	}
	if groups[2].Category != "Transport" {
		t.Fatalf("unexpected last group: %+v", groups[2])
	}

	var sum int64
	for _, g := range groups {
		sum += g.Total.Cents
	}
	if sum != 3100 {
		t.Fatalf("group totals sum to %d, want 3100", sum)
	}
}

func TestStatsAndMonthlyBreakdown(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	count, total, minC, maxC, err := repo.Stats(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 0 || total != 0 || minC != 0 || maxC != 0 {
		t.Fatalf("expected zero stats on empty table, got %d %d %d %d", count, total, minC, maxC)
	}

	mustCreate(t, repo, "2024-01-05", 2000, "Food", "Groceries")
	mustCreate(t, repo, "2024-01-20", 550, "Food", "Snacks")
	mustCreate(t, repo, "2024-03-02", 300, "Transport", "Fuel")

	count, total, minC, maxC, err = repo.Stats(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 || total != 2850 || minC != 300 || maxC != 2000 {
		t.Fatalf("unexpected stats: count=%d total=%d min=%d max=%d", count, total, minC, maxC)
	}

	buckets, err := repo.MonthlyBreakdown(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("monthly breakdown: %v", err)
	}
	// February has no expenses and is omitted, not zero-filled.
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Month != "2024-01" || buckets[0].Count != 2 || buckets[0].Total.Cents != 2550 {
		t.Fatalf("unexpected first bucket: %+v", buckets[0])
	}
	if buckets[1].Month != "2024-03" || buckets[1].Count != 1 || buckets[1].Total.Cents != 300 {
		t.Fatalf("unexpected second bucket: %+v", buckets[1])
	}
}
