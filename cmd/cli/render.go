package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/secondlook/secondlook/internal/decision"
	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/form"
	"github.com/secondlook/secondlook/internal/money"
	"github.com/secondlook/secondlook/internal/statement"
	"github.com/secondlook/secondlook/internal/txview"
	"github.com/shopspring/decimal"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderValidation(w io.Writer, errs form.ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	fmt.Fprintln(w, "Please fix the following:")
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, errs[form.Field(f)])
	}
}

func renderDecision(w io.Writer, v decision.View) {
	fmt.Fprintf(w, "\n%s %s\n", v.Theme.Icon, v.Theme.Label)
	fmt.Fprintf(w, "Credit score:   %s\n", v.ScoreText)
	fmt.Fprintf(w, "Interest rate:  %s\n", v.InterestRateText)
	if v.RecommendedLimit != "" {
		fmt.Fprintf(w, "Recommended:    %s\n", v.RecommendedLimit)
	}
	fmt.Fprintf(w, "Transactions:   %d\n", v.TransactionCount)

	if len(v.ReasonCodes) > 0 {
		fmt.Fprintln(w, "\n=== Key Factors ===")
		for _, r := range v.ReasonCodes {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}

	if len(v.Breakdown) > 0 {
		fmt.Fprintln(w, "\n=== Financial Breakdown ===")
		tw := newTable(w)
		for _, item := range v.Breakdown {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", item.Title, item.Value, item.Note)
		}
		tw.Flush()
	}

	if e := v.Explanations; e != nil {
		fmt.Fprintln(w, "\n=== AI Insights ===")
		if e.BusinessBehavior != "" {
			fmt.Fprintf(w, "Business behavior: %s\n", e.BusinessBehavior)
		}
		if e.RiskAssessment != "" {
			fmt.Fprintf(w, "Risk assessment:   %s\n", e.RiskAssessment)
		}
		for _, s := range e.Insights {
			fmt.Fprintf(w, "  • %s\n", s)
		}
		if len(e.KeyMetrics) > 0 {
			tw := newTable(w)
			for _, m := range e.KeyMetrics {
				fmt.Fprintf(tw, "  %s\t%s\n", m.Label, m.Value)
			}
			tw.Flush()
		}
		if e.Note != "" {
			fmt.Fprintf(w, "Note: %s\n", e.Note)
		}
	}
}

func renderTransactions(w io.Writer, v txview.View) {
	if v.Empty {
		fmt.Fprintln(w, "\nNo transactions found.")
		return
	}

	fmt.Fprintf(w, "\n=== Transactions (%d of %d) ===\n", v.Filtered, v.Total)
	if s := v.Summary; s != nil {
		fmt.Fprintf(w, "Deposits: %s  Withdrawals: %s  Net: %s  Success rate: %s\n",
			money.FormatKES(s.Deposits), money.FormatKES(s.Withdrawals),
			money.FormatKES(s.Net), money.FormatPercent(s.SuccessRate))
		if dr := s.DateRange; dr != nil {
			fmt.Fprintf(w, "Period: %s – %s (%d days)\n",
				dr.Start.Format("Jan 2, 2006"), dr.End.Format("Jan 2, 2006"), dr.Days)
		}
	}

	switch v.State.Mode {
	case txview.ModeGrouped:
		for _, g := range v.Groups {
			marker := "▸"
			if g.Expanded {
				marker = "▾"
			}
			fmt.Fprintf(w, "\n%s %s  (%d transactions, in %s, out %s, net %s)\n",
				marker, g.Period, g.Stats.Count,
				money.FormatKES(g.Stats.Deposits), money.FormatKES(g.Stats.Withdrawals),
				money.FormatKES(g.Stats.Net))
			if g.Expanded {
				renderRows(w, g.Items)
			}
		}
	case txview.ModeTimeline:
		renderRows(w, v.Timeline)
	default:
		if p := v.Page; p != nil {
			renderRows(w, p.Items)
			if p.Count > 1 {
				fmt.Fprintf(w, "Showing %d-%d, page %d of %d %s\n", p.From, p.To, p.Number, p.Count, pageWindow(p))
			}
		}
	}
}

func pageWindow(p *txview.Page) string {
	parts := make([]string, 0, len(p.Window))
	for _, n := range p.Window {
		if n == p.Number {
			parts = append(parts, fmt.Sprintf("[%d]", n))
		} else {
			parts = append(parts, fmt.Sprint(n))
		}
	}
	return strings.Join(parts, " ")
}

func renderRows(w io.Writer, txs []domain.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "  (no matching transactions)")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "  \tDATE\tRECEIPT\tDESCRIPTION\tIN\tOUT\tBALANCE\tSTATUS")
	for _, tx := range txs {
		date := tx.DateDisplay
		if date == "" {
			date = tx.DateISO
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			txview.TypeIcon(tx.Type), date, tx.ReceiptNo, tx.Description,
			amount(tx.AmountIn), amount(tx.AmountOut), money.FormatKES(tx.Balance),
			tx.Status)
	}
	tw.Flush()
}

func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return money.FormatKES(d)
}

func renderHistory(w io.Writer, cards []decision.HistoryCard) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No analysis history yet.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTIME\tFILE\tSTATUS\tSCORE\tRATE\tTXNS\tTOP FACTORS")
	for _, c := range cards {
		reasons := strings.Join(c.TopReasons, "; ")
		if c.MoreReasons != "" {
			reasons += " " + c.MoreReasons
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\t%d\t%s\n",
			c.Date, c.Time, c.Filename, c.Theme.Icon, c.Theme.Label,
			c.ScoreText, c.RateText, c.Transactions, reasons)
	}
	tw.Flush()
}

func renderPreview(w io.Writer, p statement.Preview) {
	status := "accepted"
	if !p.Accepted {
		status = "rejected (PDF or CSV only)"
	}
	fmt.Fprintf(w, "%s\n", p.Name)
	fmt.Fprintf(w, "  Type:   %s (%s)\n", p.MIMEType, p.Kind)
	fmt.Fprintf(w, "  Size:   %s\n", p.SizeText)
	switch p.Kind {
	case statement.KindPDF:
		fmt.Fprintf(w, "  Pages:  %d\n", p.Pages)
	case statement.KindCSV:
		fmt.Fprintf(w, "  Rows:   %d\n", p.Rows)
	}
	fmt.Fprintf(w, "  Status: %s\n", status)
}
