package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the ISO form stored in HistoryRecord.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// HistoryRecord is one durable entry of a past analysis. Records are never
// mutated once written.
type HistoryRecord struct {
	ID           int64          `json:"id"`
	Timestamp    string         `json:"timestamp"`
	Filename     string         `json:"filename"`
	Status       DecisionStatus `json:"status"`
	Result       HistoryResult  `json:"result"`
	StatementURI string         `json:"statement_uri,omitempty"`
}

// HistoryResult is the condensed subset of a DecisionResult kept in history.
type HistoryResult struct {
	CreditScore      float64           `json:"credit_score"`
	InterestRate     float64           `json:"interest_rate"`
	ReasonCodes      []string          `json:"reason_codes"`
	Breakdown        map[string]string `json:"breakdown"`
	Explanations     *Explanations     `json:"explanations,omitempty"`
	TransactionCount int               `json:"transaction_count"`
	NetCashFlow      *decimal.Decimal  `json:"net_cash_flow,omitempty"`
	RecommendedLimit *decimal.Decimal  `json:"recommended_limit,omitempty"`
}

// NewHistoryRecord condenses a decision into a record created at the given time.
func NewHistoryRecord(id int64, created time.Time, filename string, d DecisionResult, txCount int) HistoryRecord {
	return HistoryRecord{
		ID:        id,
		Timestamp: created.UTC().Format(TimestampLayout),
		Filename:  filename,
		Status:    d.Status,
		Result: HistoryResult{
			CreditScore:      d.Score,
			InterestRate:     d.InterestRate,
			ReasonCodes:      append([]string(nil), d.ReasonCodes...),
			Breakdown:        copyStrings(d.Breakdown),
			Explanations:     d.Explanations,
			TransactionCount: txCount,
			NetCashFlow:      d.NetCashFlow,
			RecommendedLimit: d.RecommendedLimit,
		},
	}
}

// CreatedAt parses Timestamp; ok is false when it is not in TimestampLayout
// or RFC 3339.
func (r HistoryRecord) CreatedAt() (time.Time, bool) {
	if t, err := time.Parse(TimestampLayout, r.Timestamp); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
