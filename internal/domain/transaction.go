package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tells whether money entered or left the wallet.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus is the statement's completion state for an entry.
// Values outside the known set are kept verbatim and treated as unknown.
type TransactionStatus string

const (
	TxCompleted TransactionStatus = "Completed"
	TxFailed    TransactionStatus = "Failed"
	TxPending   TransactionStatus = "Pending"
)

// Transaction represents one ledger entry parsed from a statement by the
// scoring backend. Amounts are non-negative; Type decides which of
// AmountIn/AmountOut carries the value.
type Transaction struct {
	ReceiptNo   string            `json:"receipt_no"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	Type        TransactionType   `json:"type"`
	AmountIn    decimal.Decimal   `json:"amount_in"`
	AmountOut   decimal.Decimal   `json:"amount_out"`
	Balance     decimal.Decimal   `json:"balance"`

	DateISO     string `json:"date_iso"`
	DateDisplay string `json:"date_display,omitempty"`
	DateShort   string `json:"date_short,omitempty"`
	MonthYear   string `json:"month_year,omitempty"`
	DayOfWeek   string `json:"day_of_week,omitempty"`
	TimeOnly    string `json:"time_only,omitempty"`

	// Date is DateISO parsed at the boundary; zero when missing or unparseable.
	Date time.Time `json:"-"`
}

// HasDate reports whether the entry carries a usable timestamp.
func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// IsDeposit reports whether the entry is a deposit.
func (t Transaction) IsDeposit() bool {
	return t.Type == TypeDeposit
}

// IsWithdrawal reports whether the entry is a withdrawal.
func (t Transaction) IsWithdrawal() bool {
	return t.Type == TypeWithdrawal
}

// IsCompleted matches the exact "Completed" status only.
func (t Transaction) IsCompleted() bool {
	return t.Status == TxCompleted
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-ish timestamps the backend emits
// (pandas isoformat, with or without zone). ok is false for empty or
// unparseable input.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// WithParsedDates returns a copy of txs with Date populated from DateISO.
func WithParsedDates(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		if parsed, ok := ParseTimestamp(tx.DateISO); ok {
			tx.Date = parsed
		} else {
			tx.Date = time.Time{}
		}
		out[i] = tx
	}
	return out
}
