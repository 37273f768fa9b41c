// Package decision turns scoring outcomes into display-ready descriptions.
// Nothing here performs I/O or fails.
package decision

import (
	"strings"

	"github.com/secondlook/secondlook/internal/domain"
)

// Tone is the qualitative class derived from a decision status.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneCaution  Tone = "caution"
	ToneReview   Tone = "review"
	ToneNegative Tone = "negative"
	ToneUnknown  Tone = "unknown"
)

// Theme is the visual treatment of a status.
type Theme struct {
	Tone  Tone   `json:"tone"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

var themes = map[domain.DecisionStatus]Theme{
	domain.DecisionApproved:            {Tone: TonePositive, Color: "green", Icon: "✅"},
	domain.DecisionApprovedWithCaution: {Tone: ToneCaution, Color: "yellow", Icon: "⚠️"},
	domain.DecisionReviewNeeded:        {Tone: ToneReview, Color: "blue", Icon: "🔍"},
	domain.DecisionDeclined:            {Tone: ToneNegative, Color: "red", Icon: "❌"},
}

var unknownTheme = Theme{Tone: ToneUnknown, Color: "gray", Icon: "❓"}

// ThemeFor maps any status, recognised or not, to its theme. An empty
// status is labelled PENDING.
func ThemeFor(status domain.DecisionStatus) Theme {
	return themeWithFallback(status, "PENDING")
}

func themeWithFallback(status domain.DecisionStatus, emptyLabel string) Theme {
	th, ok := themes[status]
	if !ok {
		th = unknownTheme
	}
	th.Label = Label(status, emptyLabel)
	return th
}

// Label replaces underscores with spaces; empty statuses get emptyLabel.
func Label(status domain.DecisionStatus, emptyLabel string) string {
	s := strings.TrimSpace(string(status))
	if s == "" {
		return emptyLabel
	}
	return strings.ReplaceAll(s, "_", " ")
}
