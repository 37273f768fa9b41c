// Package txview filters, sorts, paginates and groups the transactions of one
// analysed statement for display.
package txview

import (
	"strings"
)

// Mode selects how transactions are laid out.
type Mode string

const (
	ModeTable    Mode = "table"
	ModeGrouped  Mode = "grouped"
	ModeTimeline Mode = "timeline"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// TypeFilter narrows transactions by type.
type TypeFilter string

const (
	FilterAll        TypeFilter = "all"
	FilterDeposit    TypeFilter = "deposit"
	FilterWithdrawal TypeFilter = "withdrawal"
)

const (
	// PageSize is the number of rows per table page.
	PageSize = 20
	// DefaultSortField orders transactions chronologically.
	DefaultSortField = "date_iso"
	// UnknownPeriod collects transactions without a month-year label.
	UnknownPeriod = "Unknown Period"
)

// State is everything the user can change about the transaction view.
type State struct {
	Mode      Mode            `json:"mode"`
	SortField string          `json:"sort_field"`
	SortDir   Direction       `json:"sort_dir"`
	Type      TypeFilter      `json:"type_filter"`
	Search    string          `json:"search"`
	Page      int             `json:"page"`
	Expanded  map[string]bool `json:"expanded_periods"`
}

// NewState returns the initial view: table, chronological, unfiltered, page 1.
func NewState() State {
	return State{
		Mode:      ModeTable,
		SortField: DefaultSortField,
		SortDir:   Asc,
		Type:      FilterAll,
		Page:      1,
		Expanded:  map[string]bool{},
	}
}

// Clone returns a copy that shares no maps with s.
func (s State) Clone() State {
	out := s
	out.Expanded = make(map[string]bool, len(s.Expanded))
	for k, v := range s.Expanded {
		if v {
			out.Expanded[k] = true
		}
	}
	return out
}

// SetMode switches the layout. Unknown modes fall back to the table.
func (s *State) SetMode(m Mode) {
	switch m {
	case ModeTable, ModeGrouped, ModeTimeline:
		s.Mode = m
	default:
		s.Mode = ModeTable
	}
}

// SortBy flips the direction when field is already the sort key, otherwise
// sorts ascending by field. Pagination restarts at page 1.
func (s *State) SortBy(field string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	if s.SortField == field {
		if s.SortDir == Asc {
			s.SortDir = Desc
		} else {
			s.SortDir = Asc
		}
	} else {
		s.SortField = field
		s.SortDir = Asc
	}
	s.Page = 1
}

// SetTypeFilter changes the type filter and restarts at page 1.
func (s *State) SetTypeFilter(f TypeFilter) {
	switch f {
	case FilterDeposit, FilterWithdrawal:
		s.Type = f
	default:
		s.Type = FilterAll
	}
	s.Page = 1
}

// SetSearch changes the search term and restarts at page 1.
func (s *State) SetSearch(term string) {
	s.Search = term
	s.Page = 1
}

// TogglePeriod expands or collapses one month-year group.
func (s *State) TogglePeriod(period string) {
	if s.Expanded == nil {
		s.Expanded = map[string]bool{}
	}
	if s.Expanded[period] {
		delete(s.Expanded, period)
	} else {
		s.Expanded[period] = true
	}
}

// IsExpanded reports whether a period group is open.
func (s State) IsExpanded(period string) bool {
	return s.Expanded[period]
}
