package scoring

import (
	"testing"

	"github.com/secondlook/secondlook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "null prediction", body: `{"prediction": null, "transactions": null}`},
		{name: "empty prediction", body: `{"prediction": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Normalize([]byte(tt.body))
			require.NoError(t, err)

			d := a.Decision
			assert.Empty(t, d.Status)
			assert.Zero(t, d.Score)
			assert.Zero(t, d.InterestRate)
			assert.NotNil(t, d.ReasonCodes)
			assert.Empty(t, d.ReasonCodes)
			assert.NotNil(t, d.Breakdown)
			assert.Empty(t, d.Breakdown)
			assert.Nil(t, d.Explanations)
			assert.Nil(t, d.NetCashFlow)
			assert.Nil(t, d.Repayments)
			assert.NotNil(t, a.Transactions)
			assert.Empty(t, a.Transactions)
		})
	}
}

func TestNormalize_CashFlowFromBreakdown(t *testing.T) {
	a, err := Normalize([]byte(`{"prediction": {"breakdown": {
		"cash_flow_analysis": "KES -12,500 net monthly flow",
		"repayment_behavior": "0 repayment transactions"}}}`))
	require.NoError(t, err)

	require.NotNil(t, a.Decision.NetCashFlow)
	assert.Equal(t, "-12500", a.Decision.NetCashFlow.String())
	require.NotNil(t, a.Decision.Repayments)
	assert.Equal(t, 0, *a.Decision.Repayments)
}

func TestNormalize_FallbackBreakdownHasNoCashFlow(t *testing.T) {
	a, err := Normalize([]byte(`{"prediction": {"decision_status": "REVIEW_NEEDED",
		"breakdown": {"fallback_analysis": "Rule-based scoring used"}}}`))
	require.NoError(t, err)

	assert.Nil(t, a.Decision.NetCashFlow)
	assert.Equal(t, "Rule-based scoring used", a.Decision.Breakdown["fallback_analysis"])
}

func TestNormalize_ExplanationsDefaults(t *testing.T) {
	a, err := Normalize([]byte(`{"prediction": {"explanations": {"note": "n"}}}`))
	require.NoError(t, err)

	require.NotNil(t, a.Decision.Explanations)
	assert.NotNil(t, a.Decision.Explanations.Explanations)
	assert.NotNil(t, a.Decision.Explanations.KeyMetrics)
	assert.Equal(t, "n", a.Decision.Explanations.Note)
}

func TestNormalize_MistypedFieldsFallBack(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, a *domain.Assessment)
	}{
		{
			name: "numeric string score",
			body: `{"prediction": {"alt_score": "85", "synthetic_interest_rate": "x"}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.Equal(t, 85.0, a.Decision.Score)
				assert.Zero(t, a.Decision.InterestRate)
			},
		},
		{
			name: "non-string reason codes dropped",
			body: `{"prediction": {"reason_codes": ["ok", 3, null, " "]}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.Equal(t, []string{"ok"}, a.Decision.ReasonCodes)
			},
		},
		{
			name: "numeric decision status",
			body: `{"prediction": {"decision_status": 1, "alt_score": 70}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.Empty(t, a.Decision.Status)
				assert.Equal(t, 70.0, a.Decision.Score)
			},
		},
		{
			name: "unparseable amount",
			body: `{"transactions": [{"receipt_no": "QK1", "amount_in": "N/A", "amount_out": "250.50", "balance": 900}]}`,
			check: func(t *testing.T, a *domain.Assessment) {
				require.Len(t, a.Transactions, 1)
				tx := a.Transactions[0]
				assert.Equal(t, "QK1", tx.ReceiptNo)
				assert.True(t, tx.AmountIn.IsZero())
				assert.Equal(t, "250.5", tx.AmountOut.String())
				assert.Equal(t, "900", tx.Balance.String())
			},
		},
		{
			name: "transactions not an array",
			body: `{"transactions": {}, "prediction": {"decision_status": "APPROVED"}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.NotNil(t, a.Transactions)
				assert.Empty(t, a.Transactions)
				assert.Equal(t, domain.DecisionApproved, a.Decision.Status)
			},
		},
		{
			name: "string repayments",
			body: `{"features": {"repayments": "3", "net_cash_flow": "lots"}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				require.NotNil(t, a.Decision.Repayments)
				assert.Equal(t, 3, *a.Decision.Repayments)
				assert.Nil(t, a.Decision.NetCashFlow)
			},
		},
		{
			name: "null features fall back to breakdown",
			body: `{"features": {"repayments": null}, "prediction": {"breakdown": {"repayment_behavior": "2 repayments"}}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				require.NotNil(t, a.Decision.Repayments)
				assert.Equal(t, 2, *a.Decision.Repayments)
			},
		},
		{
			name: "explanations not an object",
			body: `{"prediction": {"explanations": "none", "model_used": "yes"}}`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.Nil(t, a.Decision.Explanations)
				assert.False(t, a.Decision.ModelUsed)
			},
		},
		{
			name: "top level array",
			body: `[1, 2]`,
			check: func(t *testing.T, a *domain.Assessment) {
				assert.Empty(t, a.Decision.Status)
				assert.Empty(t, a.Transactions)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Normalize([]byte(tt.body))
			require.NoError(t, err)
			tt.check(t, a)
		})
	}
}

func TestNormalize_InvalidJSON(t *testing.T) {
	_, err := Normalize([]byte(`{"prediction": `))
	assert.Error(t, err)
}

func TestLeadingNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"KES 4500 net monthly flow", "4500", true},
		{"KES -1,234.50 net", "-1234.5", true},
		{"Volatility: KES 0", "0", true},
		{"Rule-based scoring used", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := leadingNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got.String(), tt.in)
		}
	}
}
