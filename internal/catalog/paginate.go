package catalog

import (
	"slices"

	"github.com/sells-group/carlot/internal/model"
)

// DefaultPageSize is the number of listings per page.
const DefaultPageSize = 10

// Paginator accumulates pages of a filtered set for infinite scrolling.
// The page counter starts at 1 and advances on every reset and append.
type Paginator struct {
	size    int
	page    int
	total   int
	visible []model.Vehicle
	hasMore bool
}

// NewPaginator returns a paginator with the given page size.
func NewPaginator(size int) *Paginator {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Paginator{size: size, page: 1}
}

// Reset discards the visible set and shows the first page of filtered.
func (p *Paginator) Reset(filtered []model.Vehicle) []model.Vehicle {
	p.page = 1
	start := (p.page - 1) * p.size
	end := start + p.size

	p.visible = slices.Clone(filtered[min(start, len(filtered)):min(end, len(filtered))])
	p.total = len(filtered)
	p.hasMore = end < len(filtered)
	p.page++
	return p.visible
}

// Append extends the visible set with the next page of filtered, starting at
// the current visible length. It returns the added listings and false
// without changing anything when there is nothing more to show.
func (p *Paginator) Append(filtered []model.Vehicle) ([]model.Vehicle, bool) {
	if !p.hasMore {
		return nil, false
	}
	start := min(len(p.visible), len(filtered))
	end := start + p.size

	added := filtered[start:min(end, len(filtered))]
	p.visible = append(p.visible, added...)
	p.total = len(filtered)
	p.hasMore = end < len(filtered)
	p.page++
	return added, true
}

// Visible returns the accumulated listings.
func (p *Paginator) Visible() []model.Vehicle { return p.visible }

// HasMore reports whether Append would add listings.
func (p *Paginator) HasMore() bool { return p.hasMore }

// Page returns the page counter.
func (p *Paginator) Page() int { return p.page }

// Total returns the size of the filtered set last seen.
func (p *Paginator) Total() int { return p.total }

// Size returns the page size.
func (p *Paginator) Size() int { return p.size }

// PageResult is one stateless page of a filtered set.
type PageResult struct {
	Items    []model.Vehicle
	Page     int
	PageSize int
	Total    int
	HasMore  bool
}

// Page slices page (1-based) out of filtered. Pages past the end are empty.
func Page(filtered []model.Vehicle, page, size int) PageResult {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := len(filtered)
	pages := len(filtered) / size
	if len(filtered)%size != 0 {
		pages++
	}
	if page-1 < pages {
		start = (page - 1) * size
	}
	end := start + min(size, len(filtered)-start)
	return PageResult{
		Items:    filtered[start:end],
		Page:     page,
		PageSize: size,
		Total:    len(filtered),
		HasMore:  end < len(filtered),
	}
}
