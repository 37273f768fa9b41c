package decision

import (
	"fmt"

	"github.com/secondlook/secondlook/internal/domain"
	"github.com/secondlook/secondlook/internal/money"
)

// maxHistoryReasons is how many reason codes a history card lists before
// summarising the rest.
const maxHistoryReasons = 3

// HistoryCard is one row of the history page.
type HistoryCard struct {
	ID           int64    `json:"id"`
	Filename     string   `json:"filename"`
	Theme        Theme    `json:"theme"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	ScoreText    string   `json:"score_text"`
	RateText     string   `json:"rate_text"`
	ReasonCount  int      `json:"reason_count"`
	TopReasons   []string `json:"top_reasons"`
	MoreReasons  string   `json:"more_reasons,omitempty"`
	Transactions int      `json:"transactions"`
	StatementURI string   `json:"statement_uri,omitempty"`
}

// RenderHistory describes a stored record. Empty statuses read UNKNOWN.
func RenderHistory(r domain.HistoryRecord) HistoryCard {
	reasons := r.Result.ReasonCodes
	card := HistoryCard{
		ID:           r.ID,
		Filename:     r.Filename,
		Theme:        themeWithFallback(r.Status, "UNKNOWN"),
		ScoreText:    money.FormatPercent(r.Result.CreditScore),
		RateText:     money.FormatPercent(r.Result.InterestRate),
		ReasonCount:  len(reasons),
		TopReasons:   append([]string{}, reasons[:min(len(reasons), maxHistoryReasons)]...),
		Transactions: r.Result.TransactionCount,
		StatementURI: r.StatementURI,
	}
	if extra := len(reasons) - maxHistoryReasons; extra > 0 {
		card.MoreReasons = fmt.Sprintf("+%d more factors", extra)
	}
	if at, ok := r.CreatedAt(); ok {
		card.Date = at.Format("Jan 2, 2006")
		card.Time = at.Format("3:04 PM")
	} else {
		card.Date = r.Timestamp
	}
	return card
}
