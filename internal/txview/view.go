package txview

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/secondlook/secondlook/internal/domain"
)

const pageWindow = 5

// Page is one slice of the table view. From and To are 1-based positions in
// the filtered set; both are 0 when it is empty.
type Page struct {
	Number int                  `json:"number"`
	Count  int                  `json:"count"`
	Size   int                  `json:"size"`
	From   int                  `json:"from"`
	To     int                  `json:"to"`
	Window []int                `json:"window"`
	Items  []domain.Transaction `json:"items"`
}

// PageCount is ceil(n / PageSize).
func PageCount(n int) int {
	return (n + PageSize - 1) / PageSize
}

// ClampPage keeps p within [1, max(1, count)].
func ClampPage(p, count int) int {
	if count < 1 {
		count = 1
	}
	if p < 1 {
		return 1
	}
	if p > count {
		return count
	}
	return p
}

// Paginate cuts page p (clamped) out of txs.
func Paginate(txs []domain.Transaction, p int) Page {
	count := PageCount(len(txs))
	p = ClampPage(p, count)
	start := (p - 1) * PageSize
	end := min(start+PageSize, len(txs))

	page := Page{
		Number: p,
		Count:  count,
		Size:   PageSize,
		Window: window(p, count),
		Items:  append([]domain.Transaction{}, txs[start:end]...),
	}
	if end > start {
		page.From = start + 1
		page.To = end
	}
	return page
}

// window lists at most pageWindow page numbers around p.
func window(p, count int) []int {
	if count < 1 {
		return []int{}
	}
	first := max(1, p-pageWindow/2)
	last := min(count, first+pageWindow-1)
	first = max(1, last-pageWindow+1)
	out := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, i)
	}
	return out
}

// GoToPage moves s to page p, clamped to what the current filters allow.
func (e *Engine) GoToPage(s *State, p int) {
	s.Page = ClampPage(p, PageCount(len(e.Filter(*s))))
}

// NextPage advances one page, stopping at the last.
func (e *Engine) NextPage(s *State) {
	e.GoToPage(s, s.Page+1)
}

// PrevPage goes back one page, stopping at the first.
func (e *Engine) PrevPage(s *State) {
	e.GoToPage(s, s.Page-1)
}

// Group is one month-year bucket. Items is only populated while the group is
// expanded; Stats always covers the whole bucket.
type Group struct {
	Period   string               `json:"period"`
	Expanded bool                 `json:"expanded"`
	Stats    Stats                `json:"stats"`
	Items    []domain.Transaction `json:"items,omitempty"`
}

// GroupByPeriod partitions txs by month-year label, keeping their order
// within each group. Groups are ordered chronologically, labels that do not
// parse follow in lexical order, and UnknownPeriod is always last.
func GroupByPeriod(txs []domain.Transaction, expanded map[string]bool) []Group {
	buckets := map[string][]domain.Transaction{}
	var keys []string
	for _, tx := range txs {
		key := strings.TrimSpace(tx.MonthYear)
		if key == "" {
			key = UnknownPeriod
		}
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], tx)
	}

	slices.SortFunc(keys, comparePeriods)

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		g := Group{
			Period:   key,
			Expanded: expanded[key],
			Stats:    Aggregate(buckets[key]),
		}
		if g.Expanded {
			g.Items = buckets[key]
		}
		groups = append(groups, g)
	}
	return groups
}

var periodLayouts = []string{"Jan 2006", "January 2006", "2006-01"}

func parsePeriod(label string) (time.Time, bool) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func comparePeriods(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == UnknownPeriod:
		return 1
	case b == UnknownPeriod:
		return -1
	}
	ta, okA := parsePeriod(a)
	tb, okB := parsePeriod(b)
	switch {
	case okA && okB:
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return cmp.Compare(a, b)
}

// View is everything needed to draw the transaction panel for one state.
// When Empty is true the input had no transactions at all and nothing else
// is set.
type View struct {
	Empty    bool                 `json:"empty"`
	State    State                `json:"state"`
	Total    int                  `json:"total"`
	Filtered int                  `json:"filtered"`
	Summary  *Summary             `json:"summary,omitempty"`
	Page     *Page                `json:"page,omitempty"`
	Groups   []Group              `json:"groups,omitempty"`
	Timeline []domain.Transaction `json:"timeline,omitempty"`
}

// Render builds the view for s. The returned State has its page clamped.
func (e *Engine) Render(s State) View {
	s = s.Clone()
	if s.Mode == "" {
		s.Mode = ModeTable
	}
	if len(e.txs) == 0 {
		s.Page = 1
		return View{Empty: true, State: s}
	}

	processed := e.Process(s)
	s.Page = ClampPage(s.Page, PageCount(len(processed)))
	summary := Summarize(processed)

	v := View{
		State:    s,
		Total:    len(e.txs),
		Filtered: len(processed),
		Summary:  &summary,
	}

	switch s.Mode {
	case ModeGrouped:
		v.Groups = GroupByPeriod(processed, s.Expanded)
	case ModeTimeline:
		v.Timeline = processed
	default:
		page := Paginate(processed, s.Page)
		v.Page = &page
	}
	return v
}

// StatusTone classifies a transaction status for colouring.
func StatusTone(status domain.TransactionStatus) string {
	switch strings.ToLower(string(status)) {
	case "completed":
		return "completed"
	case "failed":
		return "failed"
	case "pending":
		return "pending"
	default:
		return "unknown"
	}
}

// TypeIcon is the glyph shown next to a transaction.
func TypeIcon(t domain.TransactionType) string {
	switch t {
	case domain.TypeDeposit:
		return "💰"
	case domain.TypeWithdrawal:
		return "💸"
	default:
		return "📄"
	}
}
