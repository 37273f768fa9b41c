package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/secondlook/secondlook/internal/domain"
	"github.com/shopspring/decimal"
)

// object is one JSON object decoded lazily, field by field. A field whose
// value has the wrong type reads as absent.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage) object {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

func (o object) has(key string) bool {
	v, ok := o[key]
	return ok && !isNull(v)
}

func (o object) str(key string) (string, bool) {
	var s string
	if err := json.Unmarshal(o[key], &s); err != nil {
		return "", false
	}
	return s, true
}

// number accepts JSON numbers and numeric strings such as "85".
func (o object) number(key string) (float64, bool) {
	raw := o[key]
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (o object) amount(key string) (decimal.Decimal, bool) {
	raw := o[key]
	if len(raw) == 0 || isNull(raw) {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (o object) boolean(key string) (bool, bool) {
	var b bool
	if err := json.Unmarshal(o[key], &b); err != nil {
		return false, false
	}
	return b, true
}

// stringList keeps the string elements of an array and drops the rest.
func (o object) stringList(key string) []string {
	out := []string{}
	var items []json.RawMessage
	if err := json.Unmarshal(o[key], &items); err != nil {
		return out
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (o object) metrics(key string) domain.Metrics {
	var m domain.Metrics
	if err := json.Unmarshal(o[key], &m); err != nil || m == nil {
		return domain.Metrics{}
	}
	return m
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// Normalize decodes a 2xx backend body into a complete Assessment. Absent or
// mistyped fields take their zero or empty defaults; only invalid JSON is an
// error.
func Normalize(body []byte) (*domain.Assessment, error) {
	if !json.Valid(body) {
		var v any
		err := json.Unmarshal(body, &v)
		return nil, fmt.Errorf("Normalize: decoding response: %w", err)
	}

	resp := decodeObject(body)
	a := &domain.Assessment{
		Decision:     normalizeDecision(decodeObject(resp["prediction"]), decodeObject(resp["features"])),
		Transactions: normalizeTransactions(resp["transactions"]),
	}
	a.ScoredAt, _ = resp.str("timestamp")
	return a, nil
}

func normalizeTransactions(raw json.RawMessage) []domain.Transaction {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []domain.Transaction{}
	}
	txs := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		o := decodeObject(item)
		if o == nil {
			continue
		}
		var tx domain.Transaction
		tx.ReceiptNo, _ = o.str("receipt_no")
		tx.Description, _ = o.str("description")
		status, _ := o.str("status")
		tx.Status = domain.TransactionStatus(status)
		typ, _ := o.str("type")
		tx.Type = domain.TransactionType(typ)
		tx.AmountIn, _ = o.amount("amount_in")
		tx.AmountOut, _ = o.amount("amount_out")
		tx.Balance, _ = o.amount("balance")
		tx.DateISO, _ = o.str("date_iso")
		tx.DateDisplay, _ = o.str("date_display")
		tx.DateShort, _ = o.str("date_short")
		tx.MonthYear, _ = o.str("month_year")
		tx.DayOfWeek, _ = o.str("day_of_week")
		tx.TimeOnly, _ = o.str("time_only")
		txs = append(txs, tx)
	}
	return domain.WithParsedDates(txs)
}

func normalizeDecision(p, f object) domain.DecisionResult {
	d := domain.DecisionResult{
		ReasonCodes: []string{},
		Breakdown:   map[string]string{},
	}
	if p != nil {
		if status, ok := p.str("decision_status"); ok {
			d.Status = domain.DecisionStatus(strings.TrimSpace(status))
		}
		d.Score, _ = p.number("alt_score")
		d.InterestRate, _ = p.number("synthetic_interest_rate")
		for _, rc := range p.stringList("reason_codes") {
			if rc = strings.TrimSpace(rc); rc != "" {
				d.ReasonCodes = append(d.ReasonCodes, rc)
			}
		}
		for k, v := range p.metrics("breakdown") {
			d.Breakdown[k] = v
		}
		d.Explanations = normalizeExplanations(p)
		if limit, ok := p.amount("recommended_limit"); ok {
			d.RecommendedLimit = &limit
		}
		if v, ok := p.number("approval_probability"); ok {
			d.ApprovalProbability = &v
		}
		d.ModelUsed, _ = p.boolean("model_used")
		d.ModelType, _ = p.str("model_type")
	}

	if v, ok := f.amount("net_cash_flow"); ok {
		d.NetCashFlow = &v
	} else if v, ok := leadingNumber(d.Breakdown[domain.BreakdownCashFlow]); ok {
		d.NetCashFlow = &v
	}

	if v, ok := f.number("repayments"); ok {
		n := int(v)
		d.Repayments = &n
	} else if v, ok := leadingNumber(d.Breakdown[domain.BreakdownRepayment]); ok {
		n := int(v.IntPart())
		d.Repayments = &n
	}

	return d
}

func normalizeExplanations(p object) *domain.Explanations {
	if !p.has("explanations") {
		return nil
	}
	e := decodeObject(p["explanations"])
	if e == nil {
		return nil
	}
	out := &domain.Explanations{
		Explanations: e.stringList("explanations"),
		KeyMetrics:   e.metrics("key_metrics"),
	}
	out.BusinessBehavior, _ = e.str("business_behavior")
	out.RiskAssessment, _ = e.str("risk_assessment")
	out.Note, _ = e.str("note")
	return out
}

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// leadingNumber pulls the first signed number out of a display string such
// as "KES -1,234 net monthly flow".
func leadingNumber(s string) (decimal.Decimal, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
