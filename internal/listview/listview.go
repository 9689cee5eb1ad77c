// Package listview filters, sorts and paginates fully loaded collections.
package listview

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortKey selects one of the supported orderings.
type SortKey string

const (
	SortDateDesc SortKey = "date_desc"
	SortDateAsc  SortKey = "date_asc"
	SortNameAsc  SortKey = "name_asc"
	SortNameDesc SortKey = "name_desc"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 10

// WindowSize is the number of numbered page buttons shown around the current page.
const WindowSize = 5

// ParseSort maps a query-string value to a SortKey, defaulting to newest first.
func ParseSort(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortDateAsc:
		return SortDateAsc
	case SortNameAsc:
		return SortNameAsc
	case SortNameDesc:
		return SortNameDesc
	default:
		return SortDateDesc
	}
}

// Query describes one view over a collection.
type Query struct {
	Text     string
	Sort     SortKey
	Page     int
	PageSize int
}

// Accessors tell the view how to read an item. Fields lists the values the
// free-text search matches against; Date or Name may be nil when the
// collection has no such ordering.
type Accessors[T any] struct {
	Fields func(T) []interface{}
	Date   func(T) time.Time
	Name   func(T) string
}

// Slot is one entry of the page-button row: a page number or an ellipsis.
type Slot struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// Page is the result of applying a Query.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	Window     []Slot `json:"window"`
}

// Apply filters, sorts and slices items. The input slice is not modified.
func Apply[T any](items []T, q Query, acc Accessors[T]) Page[T] {
	filtered := Filter(items, q.Text, acc.Fields)
	Sort(filtered, q.Sort, acc)
	return Paginate(filtered, q.Page, q.PageSize)
}

// Filter keeps the items whose fields contain text, ignoring case and accents.
// Numbers and other values are compared by their printed form.
func Filter[T any](items []T, text string, fields func(T) []interface{}) []T {
	needle := Fold(strings.TrimSpace(text))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if needle == "" || fields == nil || matches(fields(it), needle) {
			out = append(out, it)
		}
	}
	return out
}

func matches(values []interface{}, needle string) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		if strings.Contains(Fold(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

// Sort orders items in place. Unknown keys, or keys the accessors cannot
// serve, leave the order unchanged.
func Sort[T any](items []T, key SortKey, acc Accessors[T]) {
	switch key {
	case SortDateAsc, SortDateDesc:
		if acc.Date == nil {
			return
		}
		sort.SliceStable(items, func(i, j int) bool {
			a, b := acc.Date(items[i]), acc.Date(items[j])
			if key == SortDateAsc {
				return a.Before(b)
			}
			return a.After(b)
		})
	case SortNameAsc, SortNameDesc:
		if acc.Name == nil {
			return
		}
		sort.SliceStable(items, func(i, j int) bool {
			a, b := Fold(acc.Name(items[i])), Fold(acc.Name(items[j]))
			if key == SortNameAsc {
				return a < b
			}
			return a > b
		})
	}
}

// Paginate returns the page-th window of pageSize items. Pages are 1-based
// and clamped into range; an empty list has one empty page.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(items), pageSize)
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	window := make([]T, end-start)
	copy(window, items[start:end])

	return Page[T]{
		Items:      window,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
		TotalPages: total,
		Window:     Window(page, total),
	}
}

// TotalPages is ceil(n/pageSize), never less than 1.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n == 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// Window returns the row of page buttons: up to WindowSize consecutive pages
// centred on current, with the first and last page always reachable and
// ellipses marking the gaps.
func Window(current, total int) []Slot {
	if total < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	start, end := 1, total
	if total > WindowSize {
		start = current - WindowSize/2
		if start < 1 {
			start = 1
		}
		end = start + WindowSize - 1
		if end > total {
			end = total
			start = end - WindowSize + 1
		}
	}

	var slots []Slot
	if start > 1 {
		slots = append(slots, Slot{Page: 1})
		if start > 2 {
			slots = append(slots, Slot{Ellipsis: true})
		}
	}
	for p := start; p <= end; p++ {
		slots = append(slots, Slot{Page: p, Current: p == current})
	}
	if end < total {
		if end < total-1 {
			slots = append(slots, Slot{Ellipsis: true})
		}
		slots = append(slots, Slot{Page: total})
	}
	return slots
}
