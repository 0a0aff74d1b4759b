// Package storage owns the SQLite expense table: id assignment,
// timestamp stamping, filtered queries and the aggregation reads the
// reporting layer is built on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// CreateExpenseParams carries the client-settable fields of a new
// expense. ID and timestamps are assigned here.
type CreateExpenseParams struct {
	Date        core.Date
	Amount      core.Money
	Category    string
	Subcategory string
	Description string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = "id, date, amount_cents, category, subcategory, description, created_at, updated_at"

// CreateExpense persists a new record, assigning its id and stamping
// both timestamps.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, p CreateExpenseParams) (core.Expense, error) {
	now := r.now().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, amount_cents, category, subcategory, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Date.String(), p.Amount.Cents, p.Category, p.Subcategory, p.Description, now, now)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}

	expense, err := r.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", expense.ID,
		"date", expense.Date.String(),
		"amount_cents", expense.Amount.Cents,
		"category", expense.Category)

	return expense, nil
}

// GetExpense returns the record with the given id or core.ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)

	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("%w: expense %d", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return expense, nil
}

// ListExpenses returns the records matching the filter, ordered by
// date ascending then id ascending. Summaries and exports rely on this
// ordering. A positive filter limit caps the result.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	where, args := buildFilter(f)
	query := "SELECT " + expenseColumns + " FROM expenses" + where + " ORDER BY date ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense applies the non-nil fields and re-stamps updated_at.
// id and created_at never change.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, u core.UpdateFields) (core.Expense, error) {
	if u.Empty() {
		return core.Expense{}, fmt.Errorf("%w: no fields to update", core.ErrValidation)
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if u.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, u.Date.String())
	}
	if u.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, u.Amount.Cents)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *u.Category)
	}
	if u.Subcategory != nil {
		sets = append(sets, "subcategory = ?")
		args = append(args, *u.Subcategory)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().Format(time.RFC3339))
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if affected == 0 {
		return core.Expense{}, fmt.Errorf("%w: expense %d", core.ErrNotFound, id)
	}

	return r.GetExpense(ctx, id)
}

// DeleteExpense removes one record. A missing id fails with
// core.ErrNotFound, on the second call as on the first.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: expense %d", core.ErrNotFound, id)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// DeleteExpensesByDateRange removes every record with start <= date <= end
// in one atomic statement and returns the number removed. Zero is a
// valid result, not an error.
func (r *SQLiteRepository) DeleteExpensesByDateRange(ctx context.Context, start, end core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE date BETWEEN ? AND ?", start.String(), end.String())
	if err != nil {
		return 0, fmt.Errorf("delete expenses %s..%s: %w", start, end, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expenses %s..%s: %w", start, end, err)
	}

	slog.InfoContext(ctx, "Expenses deleted by date range",
		"start", start.String(), "end", end.String(), "count", affected)
	return affected, nil
}

// SummarizeByCategory groups the filtered set by (category, subcategory)
// with a cents-exact sum per group, ordered by total descending then
// category and subcategory ascending.
func (r *SQLiteRepository) SummarizeByCategory(ctx context.Context, f core.Filter) ([]core.CategoryTotal, error) {
	where, args := buildFilter(f)
	query := `SELECT category, subcategory, COUNT(*), SUM(amount_cents) FROM expenses` + where +
		` GROUP BY category, subcategory ORDER BY SUM(amount_cents) DESC, category ASC, subcategory ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	defer rows.Close()

	var groups []core.CategoryTotal
	for rows.Next() {
		var g core.CategoryTotal
		if err := rows.Scan(&g.Category, &g.Subcategory, &g.Count, &g.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	return groups, nil
}

// MonthlyBreakdown returns sum and count per calendar month present in
// the filtered set, in chronological order.
func (r *SQLiteRepository) MonthlyBreakdown(ctx context.Context, f core.Filter) ([]core.MonthlyBucket, error) {
	where, args := buildFilter(f)
	query := `SELECT substr(date, 1, 7) AS month, COUNT(*), SUM(amount_cents) FROM expenses` + where +
		` GROUP BY month ORDER BY month ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly breakdown: %w", err)
	}
	defer rows.Close()

	var buckets []core.MonthlyBucket
	for rows.Next() {
		var b core.MonthlyBucket
		if err := rows.Scan(&b.Month, &b.Count, &b.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly breakdown: %w", err)
	}
	return buckets, nil
}

// MostRecentExpense returns the latest record in the filtered set by
// date then id, or nil when the set is empty.
func (r *SQLiteRepository) MostRecentExpense(ctx context.Context, f core.Filter) (*core.Expense, error) {
	where, args := buildFilter(f)
	query := "SELECT " + expenseColumns + " FROM expenses" + where + " ORDER BY date DESC, id DESC LIMIT 1"

	row := r.db.QueryRowContext(ctx, query, args...)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent expense: %w", err)
	}
	return &expense, nil
}

// Stats returns count, total and the min/max amounts of the filtered
// set. Min and max are zero when the set is empty.
func (r *SQLiteRepository) Stats(ctx context.Context, f core.Filter) (count, total, min, max int64, err error) {
	where, args := buildFilter(f)
	query := `SELECT COUNT(*), COALESCE(SUM(amount_cents), 0), COALESCE(MIN(amount_cents), 0),
		COALESCE(MAX(amount_cents), 0) FROM expenses` + where

	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&count, &total, &min, &max); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("stats: %w", err)
	}
	return count, total, min, max, nil
}

// buildFilter translates a core.Filter into a WHERE clause. Absent
// fields add no condition; present ones AND together.
func buildFilter(f core.Filter) (string, []any) {
	var conds []string
	var args []any

	if !f.StartDate.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Subcategory != "" {
		conds = append(conds, "subcategory = ?")
		args = append(args, f.Subcategory)
	}
	if f.MinAmount != nil {
		conds = append(conds, "amount_cents >= ?")
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		conds = append(conds, "amount_cents <= ?")
		args = append(args, f.MaxAmount.Cents)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                      core.Expense
		date, created, updated string
	)
	if err := row.Scan(&e.ID, &date, &e.Amount.Cents, &e.Category, &e.Subcategory, &e.Description, &created, &updated); err != nil {
		return core.Expense{}, err
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d

	if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return core.Expense{}, fmt.Errorf("stored created_at %q: %w", created, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return core.Expense{}, fmt.Errorf("stored updated_at %q: %w", updated, err)
	}
	return e, nil
}
