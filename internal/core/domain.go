package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	// Money is an amount in minor currency units.
	Money struct {
		Cents int64
	}

	// Account groups transactions, e.g. a bank account or a wallet.
	Account struct {
		ID      string
		OwnerID string
		Name    string
	}

	// Category labels transactions for the expense breakdown.
	Category struct {
		ID      string
		OwnerID string
		Name    string
	}

	// Transaction amounts are signed minor units: positive is income, negative an expense.
	Transaction struct {
		ID           string
		AccountID    string
		CategoryID   string // empty when uncategorized
		Amount       Money
		Date         Date
		Payee        string
		Notes        string
		AccountName  string
		CategoryName string
	}

	// Scope restricts a query to an owner and, optionally, one of their accounts.
	Scope struct {
		OwnerID   string
		AccountID string
	}
)

// Validation errors are reported as bad input; ErrNotFound and
// ErrUnauthenticated are not.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidRange    = errors.New("invalid date range")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyPayee      = errors.New("empty payee")
	ErrMissingAccount  = errors.New("missing account")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
)

// NewDate builds a calendar day from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a yyyy-MM-dd string strictly. Surrounding whitespace is
// rejected; callers trim user input first if they want to accept it.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// String formats d as yyyy-MM-dd.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays shifts the day by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate rejects a blank name.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks the fields a caller must supply. Ownership is checked by the service.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Payee) == "" {
		return ErrEmptyPayee
	}
	return nil
}

// IsValidationError reports whether err is caused by bad caller input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidRange, ErrInvalidAmount,
		ErrEmptyName, ErrEmptyPayee, ErrMissingAccount,
		ErrUnknownCategory, ErrInvalidMapping, ErrInvalidSource,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
