package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coffersTech/logdash/internal/model"
)

// SortOrder is the severity sort applied to the table.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Next cycles none -> asc -> desc -> none.
func (o SortOrder) Next() SortOrder {
	switch o {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

// ParseSortOrder accepts "", "none", "asc" and "desc".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return SortNone, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return SortNone, fmt.Errorf("invalid sort order %q", s)
	}
}

// PageSizes are the page sizes the table offers.
var PageSizes = []int{10, 25, 50, 100}

const DefaultPageSize = 25

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// ViewState is the user's filter, sort and page selection.
// Methods return a new value; the zero SelectedLevel means "all levels".
type ViewState struct {
	SearchTerm    string      `json:"search_term"`
	SelectedLevel model.Level `json:"selected_level,omitempty"`
	SortOrder     SortOrder   `json:"sort_order,omitempty"`
	CurrentPage   int         `json:"current_page"`
	PageSize      int         `json:"page_size"`
	Query         string      `json:"query,omitempty"`
}

// NewViewState returns the state a freshly mounted table starts with.
func NewViewState() ViewState {
	return ViewState{CurrentPage: 1, PageSize: DefaultPageSize}
}

// WithSearch sets the search term; a changed predicate returns to page 1.
func (s ViewState) WithSearch(term string) ViewState {
	if term != s.SearchTerm {
		s.SearchTerm = term
		s.CurrentPage = 1
	}
	return s
}

// WithLevel sets the level filter ("" clears it); a changed predicate returns to page 1.
func (s ViewState) WithLevel(level model.Level) ViewState {
	if level != s.SelectedLevel {
		s.SelectedLevel = level
		s.CurrentPage = 1
	}
	return s
}

// WithQuery sets the advanced query after checking it compiles.
func (s ViewState) WithQuery(query string) (ViewState, error) {
	if query == s.Query {
		return s, nil
	}
	if _, err := CompileQuery(query); err != nil {
		return s, err
	}
	s.Query = query
	s.CurrentPage = 1
	return s, nil
}

// WithPageSize changes the page size and returns to page 1.
func (s ViewState) WithPageSize(n int) (ViewState, error) {
	if !ValidPageSize(n) {
		return s, fmt.Errorf("invalid page size %d (allowed: %v)", n, PageSizes)
	}
	if n != s.PageSize {
		s.PageSize = n
		s.CurrentPage = 1
	}
	return s, nil
}

// WithPage selects a page. Out-of-range pages are clamped when the view is computed.
func (s ViewState) WithPage(page int) ViewState {
	s.CurrentPage = page
	return s
}

// ToggleSort advances the sort order one step.
func (s ViewState) ToggleSort() ViewState {
	s.SortOrder = s.SortOrder.Next()
	return s
}

// View is the slice of records to render plus pagination metadata.
type View struct {
	Visible       []model.LogRecord `json:"visible"`
	TotalFiltered int               `json:"total_filtered"`
	TotalPages    int               `json:"total_pages"`
	CurrentPage   int               `json:"current_page"`
	PageSize      int               `json:"page_size"`
}

// ComputeView runs filter -> sort -> paginate over records. records is not modified.
// The only error is an advanced query that does not compile.
func ComputeView(records []model.LogRecord, state ViewState) (View, error) {
	query, err := CompileQuery(state.Query)
	if err != nil {
		return View{}, err
	}

	pageSize := state.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := filterRecords(records, state.SelectedLevel, state.SearchTerm)
	if query != nil {
		kept := filtered[:0]
		for i := range filtered {
			if matchQuery(query, &filtered[i]) {
				kept = append(kept, filtered[i])
			}
		}
		filtered = kept
	}

	sortBySeverity(filtered, state.SortOrder)

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := state.CurrentPage
	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	visible := make([]model.LogRecord, end-start)
	copy(visible, filtered[start:end])

	return View{
		Visible:       visible,
		TotalFiltered: total,
		TotalPages:    totalPages,
		CurrentPage:   page,
		PageSize:      pageSize,
	}, nil
}

// filterRecords always returns a fresh slice so later steps can reorder it.
func filterRecords(records []model.LogRecord, level model.Level, term string) []model.LogRecord {
	needle := strings.ToLower(term)
	out := make([]model.LogRecord, 0, len(records))

	for _, r := range records {
		if level != "" && r.LogLevel != level {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Message), needle) &&
			!strings.Contains(strings.ToLower(string(r.LogLevel)), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sortBySeverity(rows []model.LogRecord, order SortOrder) {
	switch order {
	case SortAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].LogLevel.Rank() < rows[j].LogLevel.Rank()
		})
	case SortDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].LogLevel.Rank() > rows[j].LogLevel.Rank()
		})
	}
}
