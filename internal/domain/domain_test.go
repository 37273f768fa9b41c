package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   time.Time
		wantOK bool
	}{
		{name: "pandas isoformat", in: "2024-03-05T14:30:00", want: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), wantOK: true},
		{name: "rfc3339 with zone", in: "2024-03-05T14:30:00+03:00", want: time.Date(2024, 3, 5, 11, 30, 0, 0, time.UTC), wantOK: true},
		{name: "date only", in: "2024-03-05", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "space separated", in: "2024-03-05 08:00:00", want: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), wantOK: true},
		{name: "empty", in: "", wantOK: false},
		{name: "garbage", in: "last tuesday", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestWithParsedDates(t *testing.T) {
	in := []Transaction{
		{ReceiptNo: "A1", DateISO: "2024-01-02T10:00:00"},
		{ReceiptNo: "A2", DateISO: ""},
	}

	out := WithParsedDates(in)

	require.Len(t, out, 2)
	assert.True(t, out[0].HasDate())
	assert.False(t, out[1].HasDate())
	assert.False(t, in[0].HasDate(), "input must not be mutated")
}

func TestTransactionDecodeNullAmounts(t *testing.T) {
	var tx Transaction
	err := json.Unmarshal([]byte(`{"type":"deposit","amount_in":1500,"amount_out":null,"balance":2500.5}`), &tx)
	require.NoError(t, err)

	assert.True(t, tx.AmountIn.Equal(decimal.NewFromInt(1500)))
	assert.True(t, tx.AmountOut.IsZero())
	assert.True(t, tx.IsDeposit())
	assert.False(t, tx.IsWithdrawal())
}

func TestDecisionStatusKnown(t *testing.T) {
	for _, s := range []DecisionStatus{DecisionApproved, DecisionApprovedWithCaution, DecisionReviewNeeded, DecisionDeclined} {
		assert.True(t, s.Known(), s)
	}
	for _, s := range []DecisionStatus{"", "UNDEFINED", "approved"} {
		assert.False(t, s.Known(), s)
	}
}

func TestMetricsUnmarshalMixedValues(t *testing.T) {
	var m Metrics
	err := json.Unmarshal([]byte(`{"net_monthly_cash_flow":"KES 12,000","monthly_transactions":42,"detected_repayments":0,"ratio":0.25,"missing":null}`), &m)
	require.NoError(t, err)

	assert.Equal(t, Metrics{
		"net_monthly_cash_flow": "KES 12,000",
		"monthly_transactions":  "42",
		"detected_repayments":   "0",
		"ratio":                 "0.25",
		"missing":               "",
	}, m)
}

func TestNewHistoryRecord(t *testing.T) {
	flow := decimal.NewFromInt(-250)
	d := DecisionResult{
		Status:       DecisionReviewNeeded,
		Score:        41.5,
		InterestRate: 20.78,
		ReasonCodes:  []string{"Cash flow: Needs improvement"},
		Breakdown:    map[string]string{BreakdownCashFlow: "KES -250 net monthly flow"},
		NetCashFlow:  &flow,
	}
	created := time.Date(2025, 2, 1, 9, 15, 30, 123000000, time.FixedZone("EAT", 3*3600))

	rec := NewHistoryRecord(created.UnixMilli(), created, "statement.csv", d, 57)

	assert.Equal(t, "2025-02-01T06:15:30.123Z", rec.Timestamp)
	assert.Equal(t, DecisionReviewNeeded, rec.Status)
	assert.Equal(t, 57, rec.Result.TransactionCount)
	assert.Equal(t, 41.5, rec.Result.CreditScore)

	d.Breakdown[BreakdownCashFlow] = "changed"
	assert.Equal(t, "KES -250 net monthly flow", rec.Result.Breakdown[BreakdownCashFlow])

	at, ok := rec.CreatedAt()
	require.True(t, ok)
	assert.True(t, at.Equal(created))
}
