package txview

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/secondlook/secondlook/internal/domain"
	"github.com/shopspring/decimal"
)

// Engine derives views over an immutable set of transactions.
type Engine struct {
	txs []domain.Transaction
}

// New copies txs and parses their dates.
func New(txs []domain.Transaction) *Engine {
	return &Engine{txs: domain.WithParsedDates(txs)}
}

// Len is the number of transactions before filtering.
func (e *Engine) Len() int {
	return len(e.txs)
}

// Filter applies the type filter and the search term, in input order.
func (e *Engine) Filter(s State) []domain.Transaction {
	term := strings.ToLower(strings.TrimSpace(s.Search))
	out := make([]domain.Transaction, 0, len(e.txs))
	for _, tx := range e.txs {
		if s.Type == FilterDeposit || s.Type == FilterWithdrawal {
			if string(tx.Type) != string(s.Type) {
				continue
			}
		}
		if term != "" && !matches(tx, term) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func matches(tx domain.Transaction, term string) bool {
	return strings.Contains(strings.ToLower(tx.Description), term) ||
		strings.Contains(strings.ToLower(tx.ReceiptNo), term) ||
		strings.Contains(strings.ToLower(string(tx.Status)), term)
}

// Process filters and then stably sorts by the state's sort key.
func (e *Engine) Process(s State) []domain.Transaction {
	out := e.Filter(s)
	Sort(out, s.SortField, s.SortDir)
	return out
}

// Sort orders txs in place. Fields named like dates compare by timestamp
// with undated entries last in both directions; amounts and balance compare
// numerically; everything else compares case-insensitively as text.
func Sort(txs []domain.Transaction, field string, dir Direction) {
	sign := 1
	if dir == Desc {
		sign = -1
	}

	switch {
	case strings.Contains(field, "date"):
		slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
			switch {
			case !a.HasDate() && !b.HasDate():
				return 0
			case !a.HasDate():
				return 1
			case !b.HasDate():
				return -1
			}
			return sign * a.Date.Compare(b.Date)
		})
	case isNumericField(field):
		slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
			return sign * numericValue(a, field).Cmp(numericValue(b, field))
		})
	default:
		slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
			return sign * cmp.Compare(textValue(a, field), textValue(b, field))
		})
	}
}

func isNumericField(field string) bool {
	switch field {
	case "amount_in", "amount_out", "balance":
		return true
	}
	return false
}

func numericValue(tx domain.Transaction, field string) decimal.Decimal {
	switch field {
	case "amount_in":
		return tx.AmountIn
	case "amount_out":
		return tx.AmountOut
	default:
		return tx.Balance
	}
}

func textValue(tx domain.Transaction, field string) string {
	var v string
	switch field {
	case "description":
		v = tx.Description
	case "receipt_no":
		v = tx.ReceiptNo
	case "status":
		v = string(tx.Status)
	case "type":
		v = string(tx.Type)
	case "month_year":
		v = tx.MonthYear
	case "day_of_week":
		v = tx.DayOfWeek
	case "time_only":
		v = tx.TimeOnly
	}
	return strings.ToLower(v)
}

// Stats aggregates a set of transactions. Deposits sums amount_in over
// deposit-typed entries and Withdrawals sums amount_out over withdrawal-typed
// ones; Completed counts entries whose status is exactly "Completed".
type Stats struct {
	Deposits    decimal.Decimal `json:"deposits"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Net         decimal.Decimal `json:"net"`
	Completed   int             `json:"completed"`
	Count       int             `json:"count"`
}

// Aggregate computes Stats over txs.
func Aggregate(txs []domain.Transaction) Stats {
	st := Stats{Deposits: decimal.Zero, Withdrawals: decimal.Zero}
	for _, tx := range txs {
		if tx.IsDeposit() {
			st.Deposits = st.Deposits.Add(tx.AmountIn)
		}
		if tx.IsWithdrawal() {
			st.Withdrawals = st.Withdrawals.Add(tx.AmountOut)
		}
		if tx.IsCompleted() {
			st.Completed++
		}
		st.Count++
	}
	st.Net = st.Deposits.Sub(st.Withdrawals)
	return st
}

// DateRange spans the dated transactions of a set. Days counts calendar
// days inclusively, so a single-day statement spans 1 day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Summary is the header of the transaction view.
type Summary struct {
	Stats
	SuccessRate float64    `json:"success_rate"`
	DateRange   *DateRange `json:"date_range,omitempty"`
}

// Summarize computes the summary of an already filtered set.
func Summarize(txs []domain.Transaction) Summary {
	sum := Summary{Stats: Aggregate(txs)}
	if sum.Count > 0 {
		sum.SuccessRate = float64(sum.Completed) / float64(sum.Count) * 100
	}
	sum.DateRange = dateRange(txs)
	return sum
}

func dateRange(txs []domain.Transaction) *DateRange {
	var start, end time.Time
	for _, tx := range txs {
		if !tx.HasDate() {
			continue
		}
		if start.IsZero() || tx.Date.Before(start) {
			start = tx.Date
		}
		if end.IsZero() || tx.Date.After(end) {
			end = tx.Date
		}
	}
	if start.IsZero() {
		return nil
	}
	return &DateRange{Start: start, End: end, Days: calendarDays(start, end)}
}

func calendarDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1
}
