package decision

import (
	"sort"
	"strings"

	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/money"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Notes attached to breakdown items.
const (
	NoteCashFlowNegative = "Spending exceeds deposits"
	NoteCashFlowHealthy  = "Healthy financial flow"
	NoteNoRepayments     = "No loan repayment patterns detected"
	NoteRepayments       = "Regular repayment behavior"
	NoteBalanceStability = "Lower volatility indicates better financial management"
	NoteVolume           = "Total transactions analyzed"
)

// BreakdownItem is one tile of the financial breakdown.
type BreakdownItem struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
	Tone  Tone   `json:"tone,omitempty"`
}

// ExplanationsView is the narrative section, with metrics in stable order.
type ExplanationsView struct {
	BusinessBehavior string   `json:"business_behavior,omitempty"`
	RiskAssessment   string   `json:"risk_assessment,omitempty"`
	Insights         []string `json:"insights"`
	KeyMetrics       []Metric `json:"key_metrics"`
	Note             string   `json:"note,omitempty"`
}

// Metric is one labelled key metric.
type Metric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is the rendered results card.
type View struct {
	Status           domain.DecisionStatus `json:"status"`
	Theme            Theme                 `json:"theme"`
	Score            float64               `json:"score"`
	ScoreText        string                `json:"score_text"`
	InterestRate     float64               `json:"interest_rate"`
	InterestRateText string                `json:"interest_rate_text"`
	RecommendedLimit string                `json:"recommended_limit,omitempty"`
	ReasonCodes      []string              `json:"reason_codes"`
	Breakdown        []BreakdownItem       `json:"breakdown"`
	Explanations     *ExplanationsView     `json:"explanations,omitempty"`
	TransactionCount int                   `json:"transaction_count"`
	ModelType        string                `json:"model_type,omitempty"`
}

var breakdownOrder = []string{
	domain.BreakdownCashFlow,
	domain.BreakdownRepayment,
	domain.BreakdownBalanceStability,
	domain.BreakdownTransactionVolume,
}

var breakdownTitles = map[string]string{
	domain.BreakdownCashFlow:          "Cash Flow",
	domain.BreakdownRepayment:         "Repayment History",
	domain.BreakdownBalanceStability:  "Balance Stability",
	domain.BreakdownTransactionVolume: "Transaction Activity",
}

// Render describes a decision. txCount is the number of transactions the
// backend returned alongside it.
func Render(d domain.DecisionResult, txCount int) View {
	v := View{
		Status:           d.Status,
		Theme:            ThemeFor(d.Status),
		Score:            d.Score,
		ScoreText:        money.FormatPercent(d.Score),
		InterestRate:     d.InterestRate,
		InterestRateText: money.FormatPercent(d.InterestRate),
		ReasonCodes:      append([]string{}, d.ReasonCodes...),
		Breakdown:        renderBreakdown(d),
		Explanations:     renderExplanations(d.Explanations),
		TransactionCount: txCount,
		ModelType:        d.ModelType,
	}
	if d.RecommendedLimit != nil {
		v.RecommendedLimit = money.FormatKES(*d.RecommendedLimit)
	}
	return v
}

func renderBreakdown(d domain.DecisionResult) []BreakdownItem {
	items := make([]BreakdownItem, 0, len(d.Breakdown))
	for _, key := range breakdownOrder {
		value, ok := d.Breakdown[key]
		if !ok {
			continue
		}
		item := BreakdownItem{Key: key, Title: breakdownTitles[key], Value: value}
		switch key {
		case domain.BreakdownCashFlow:
			item.Note, item.Tone = cashFlowFraming(d)
		case domain.BreakdownRepayment:
			if d.Repayments != nil {
				if *d.Repayments == 0 {
					item.Note = NoteNoRepayments
				} else {
					item.Note = NoteRepayments
				}
			}
		case domain.BreakdownBalanceStability:
			item.Note = NoteBalanceStability
		case domain.BreakdownTransactionVolume:
			item.Note = NoteVolume
		}
		items = append(items, item)
	}

	var extra []string
	for key := range d.Breakdown {
		if _, known := breakdownTitles[key]; !known {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		items = append(items, BreakdownItem{Key: key, Title: humanize(key), Value: d.Breakdown[key]})
	}
	return items
}

// cashFlowFraming reads the sign of the carried net flow; with no figure
// there is nothing to say.
func cashFlowFraming(d domain.DecisionResult) (string, Tone) {
	if d.NetCashFlow == nil {
		return "", ""
	}
	if d.NetCashFlow.IsNegative() {
		return NoteCashFlowNegative, ToneNegative
	}
	return NoteCashFlowHealthy, TonePositive
}

func renderExplanations(e *domain.Explanations) *ExplanationsView {
	if e == nil {
		return nil
	}
	ev := &ExplanationsView{
		BusinessBehavior: e.BusinessBehavior,
		RiskAssessment:   e.RiskAssessment,
		Insights:         append([]string{}, e.Explanations...),
		KeyMetrics:       make([]Metric, 0, len(e.KeyMetrics)),
		Note:             e.Note,
	}
	keys := make([]string, 0, len(e.KeyMetrics))
	for k := range e.KeyMetrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.KeyMetrics = append(ev.KeyMetrics, Metric{Key: k, Label: humanize(k), Value: e.KeyMetrics[k]})
	}
	return ev
}

// humanize title-cases a snake_case key. Casers carry state, so each call
// gets its own.
func humanize(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
