package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single persisted expense record. ID and the two
	// timestamps are assigned by the store, never by callers.
	Expense struct {
		ID          int64
		Date        Date
		Amount      Money
		Category    string
		Subcategory string
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Filter narrows an expense query. Zero-valued fields impose no
	// constraint; set fields compose with logical AND. Date and amount
	// bounds are inclusive. Limit caps how many records a listing
	// returns; zero means no cap. Aggregations ignore it.
	Filter struct {
		StartDate   Date
		EndDate     Date
		Category    string
		Subcategory string
		MinAmount   *Money
		MaxAmount   *Money
		Limit       int
	}

	// UpdateFields carries a partial update. Nil fields keep the stored
	// value.
	UpdateFields struct {
		Date        *Date
		Amount      *Money
		Category    *string
		Subcategory *string
		Description *string
	}
)

// ErrValidation marks malformed input: bad dates, bad amounts, unknown
// export formats, inverted ranges. ErrNotFound marks a reference to an
// id that does not exist. Every error the store and service return
// wraps one of the two, so callers branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	ErrInvalidDate   = fmt.Errorf("%w: invalid date, use YYYY-MM-DD", ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyCategory = fmt.Errorf("%w: empty category", ErrValidation)
)

// ParseDate parses a calendar date in YYYY-MM-DD form, UTC.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 500 {
		return fmt.Errorf("%w: description too long (max 500 characters)", ErrValidation)
	}
	return nil
}

// Validate rejects inverted date and amount ranges. Open-ended bounds
// are fine.
func (f Filter) Validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate.Time) {
		return fmt.Errorf("%w: start_date must not be after end_date", ErrValidation)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.Cents > f.MaxAmount.Cents {
		return fmt.Errorf("%w: min_amount must not exceed max_amount", ErrValidation)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	return nil
}

// Empty reports whether the update carries no fields at all.
func (u UpdateFields) Empty() bool {
	return u.Date == nil && u.Amount == nil && u.Category == nil &&
		u.Subcategory == nil && u.Description == nil
}
