package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DecisionStatus is the backend's verdict. Anything outside the four known
// values is treated as unknown or pending.
type DecisionStatus string

const (
	DecisionApproved            DecisionStatus = "APPROVED"
	DecisionApprovedWithCaution DecisionStatus = "APPROVED_WITH_CAUTION"
	DecisionReviewNeeded        DecisionStatus = "REVIEW_NEEDED"
	DecisionDeclined            DecisionStatus = "DECLINED"
)

// Known reports whether s is one of the four recognised verdicts.
func (s DecisionStatus) Known() bool {
	switch s {
	case DecisionApproved, DecisionApprovedWithCaution, DecisionReviewNeeded, DecisionDeclined:
		return true
	}
	return false
}

// Breakdown keys the backend fills for model-based decisions.
const (
	BreakdownCashFlow          = "cash_flow_analysis"
	BreakdownRepayment         = "repayment_behavior"
	BreakdownBalanceStability  = "balance_stability"
	BreakdownTransactionVolume = "transaction_volume"
)

// Metrics maps key-metric names to display strings. Numeric values from the
// wire are kept as their literal text.
type Metrics map[string]string

// UnmarshalJSON accepts both string and non-string values.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("Metrics.UnmarshalJSON: %w", err)
	}
	out := make(Metrics, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '"' {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("Metrics.UnmarshalJSON: key %q: %w", k, err)
			}
			out[k] = s
			continue
		}
		if string(v) == "null" {
			out[k] = ""
			continue
		}
		out[k] = string(v)
	}
	*m = out
	return nil
}

// Explanations is the optional narrative package attached to a decision.
type Explanations struct {
	BusinessBehavior string   `json:"business_behavior"`
	RiskAssessment   string   `json:"risk_assessment"`
	Explanations     []string `json:"explanations"`
	KeyMetrics       Metrics  `json:"key_metrics"`
	Note             string   `json:"note"`
}

// DecisionResult is the normalized scoring outcome for one submission.
// Score and rate default to zero, ReasonCodes and Breakdown to empty.
type DecisionResult struct {
	Status       DecisionStatus    `json:"decision_status"`
	Score        float64           `json:"alt_score"`
	InterestRate float64           `json:"synthetic_interest_rate"`
	ReasonCodes  []string          `json:"reason_codes"`
	Breakdown    map[string]string `json:"breakdown"`
	Explanations *Explanations     `json:"explanations,omitempty"`

	// NetCashFlow is the signed monthly net flow, nil when the backend gave
	// no usable figure.
	NetCashFlow         *decimal.Decimal `json:"net_cash_flow,omitempty"`
	Repayments          *int             `json:"repayments,omitempty"`
	RecommendedLimit    *decimal.Decimal `json:"recommended_limit,omitempty"`
	ApprovalProbability *float64         `json:"approval_probability,omitempty"`
	ModelUsed           bool             `json:"model_used"`
	ModelType           string           `json:"model_type,omitempty"`
}

// Assessment bundles what one successful submission produced.
type Assessment struct {
	Decision     DecisionResult `json:"decision"`
	Transactions []Transaction  `json:"transactions"`
	// ScoredAt is the backend's own timestamp, verbatim.
	ScoredAt string `json:"scored_at,omitempty"`
}
