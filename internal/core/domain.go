package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	MaxCategoryNameLength = 100
	MaxIconLength         = 50
	MaxColorLength        = 7
	MaxDescriptionLength  = 500
)

const dateLayout = "2006-01-02"

type (
	CategoryType    string
	TransactionType string

	// Date is a calendar date at UTC midnight. Time of day is never significant.
	Date struct {
		time.Time
	}

	Category struct {
		ID        int64
		Name      string
		Type      CategoryType
		Icon      *string
		Color     *string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		Amount      int64 // smallest currency unit, never signed
		CategoryID  int64
		Description string
		Date        Date
		Type        TransactionType
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// CategoryPatch carries the mutable fields of a category. Nil fields are left untouched.
	CategoryPatch struct {
		Name  *string
		Icon  *string
		Color *string
	}

	// TransactionPatch carries the mutable fields of a transaction. The type is fixed at creation.
	TransactionPatch struct {
		Amount      *int64
		CategoryID  *int64
		Description *string
		Date        *Date
	}
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var (
	ErrInvalidAmount          = &ValidationError{Field: "amount", Message: "must be positive"}
	ErrEmptyName              = &ValidationError{Field: "name", Message: "must be between 1 and 100 characters"}
	ErrIconTooLong            = &ValidationError{Field: "icon", Message: "must be at most 50 characters"}
	ErrColorTooLong           = &ValidationError{Field: "color", Message: "must be at most 7 characters"}
	ErrDescriptionTooLong     = &ValidationError{Field: "description", Message: "must be at most 500 characters"}
	ErrInvalidCategoryType    = &ValidationError{Field: "category_type", Message: "must be income or expense"}
	ErrInvalidTransactionType = &ValidationError{Field: "transaction_type", Message: "must be income or expense"}
	ErrInvalidDate            = &ValidationError{Field: "transaction_date", Message: "must be a valid date"}
)

// ParseCategoryType parses a category type strictly, ignoring case.
func ParseCategoryType(s string) (CategoryType, error) {
	switch CategoryType(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryIncome:
		return CategoryIncome, nil
	case CategoryExpense:
		return CategoryExpense, nil
	}
	return "", fmt.Errorf("invalid category type %q: %w", s, ErrInvalidCategoryType)
}

// CategoryTypeOrExpense parses a stored category type, falling back to expense.
// The second result is false when the fallback was used.
func CategoryTypeOrExpense(s string) (CategoryType, bool) {
	ct, err := ParseCategoryType(s)
	if err != nil {
		return CategoryExpense, false
	}
	return ct, true
}

// ParseTransactionType parses a transaction type strictly, ignoring case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("invalid transaction type %q: %w", s, ErrInvalidTransactionType)
}

// TransactionTypeOrExpense parses a stored transaction type, falling back to expense.
func TransactionTypeOrExpense(s string) (TransactionType, bool) {
	tt, err := ParseTransactionType(s)
	if err != nil {
		return Expense, false
	}
	return tt, true
}

func (ct CategoryType) Valid() bool {
	return ct == CategoryIncome || ct == CategoryExpense
}

func (tt TransactionType) Valid() bool {
	return tt == Income || tt == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if d, ok := ParseISODate(s); ok {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidDate)
	}
	return DateOf(t), nil
}

// ParseISODate accepts only YYYY-MM-DD. Month and day may omit the leading
// zero, so 2026-1-5 is the fifth of January.
func ParseISODate(s string) (Date, bool) {
	y, rest, ok := strings.Cut(s, "-")
	if !ok {
		return Date{}, false
	}
	m, d, ok := strings.Cut(rest, "-")
	if !ok || !isDigits(y, 4, 4) || !isDigits(m, 1, 2) || !isDigits(d, 1, 2) {
		return Date{}, false
	}

	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	date := NewDate(year, month, day)
	// time.Date normalizes overflow such as February 30th.
	if date.Month() != month || date.Day() != day {
		return Date{}, false
	}
	return date, true
}

// YearInRange reports whether a parsed date can carry year.
func YearInRange(year int) bool {
	return year >= 0 && year <= 9999
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c Category) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(c.Name))
	if n < 1 || n > MaxCategoryNameLength {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidCategoryType
	}
	if c.Icon != nil && utf8.RuneCountInString(*c.Icon) > MaxIconLength {
		return ErrIconTooLong
	}
	if c.Color != nil && utf8.RuneCountInString(*c.Color) > MaxColorLength {
		return ErrColorTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount < 1 {
		return ErrInvalidAmount
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	return nil
}

// Apply returns c with the patch applied.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Icon != nil {
		icon := *p.Icon
		c.Icon = &icon
	}
	if p.Color != nil {
		color := *p.Color
		c.Color = &color
	}
	return c
}

// Apply returns t with the patch applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
