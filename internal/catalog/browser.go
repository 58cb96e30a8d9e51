package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
)

// Scroll tuning for infinite loading.
const (
	ScrollThreshold = 300.0
	ScrollInterval  = 200 * time.Millisecond
)

// Source supplies the full, unfiltered inventory.
type Source interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
}

// RateSource supplies the current exchange table.
type RateSource interface {
	Table(ctx context.Context) money.Table
}

// ScrollPosition describes the client viewport, in pixels.
type ScrollPosition struct {
	Top            float64
	ViewportHeight float64
	DocumentHeight float64
}

// NearEnd reports whether the viewport is within ScrollThreshold of the end.
func (s ScrollPosition) NearEnd() bool {
	return s.DocumentHeight-(s.Top+s.ViewportHeight) < ScrollThreshold
}

// View is a snapshot of what the buyer currently sees.
type View struct {
	Vehicles []model.Vehicle
	Criteria Criteria
	Page     int
	Total    int
	HasMore  bool
	Loading  bool
}

// Browser owns one buyer's browsing state: the loaded inventory, the active
// criteria and the accumulated pages. At most one load runs at a time;
// calls made while one is running return the current view without loading.
type Browser struct {
	source Source
	rates  RateSource
	scroll rate.Sometimes

	mu         sync.Mutex
	all        []model.Vehicle
	criteria   Criteria
	pager      *Paginator
	loading    bool
	generation uint64

	// Latest throttled position, evaluated once the window closes.
	pendingScroll *ScrollPosition
	scrollTimer   *time.Timer
	onScrollLoad  func(View, error)
}

// NewBrowser creates a Browser. rates may be nil to use the default table.
func NewBrowser(src Source, rates RateSource, pageSize int) *Browser {
	return &Browser{
		source: src,
		rates:  rates,
		scroll: rate.Sometimes{Interval: ScrollInterval},
		pager:  NewPaginator(pageSize),
	}
}

// View returns the current snapshot.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

// Reset applies criteria and shows the first page. If a load is already
// running the criteria are recorded and that load renders with them.
func (b *Browser) Reset(ctx context.Context, c Criteria) (View, error) {
	b.mu.Lock()
	b.criteria = c
	b.generation++
	if b.loading {
		defer b.mu.Unlock()
		return b.viewLocked(), nil
	}
	b.loading = true
	b.mu.Unlock()

	all, table, err := b.fetch(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		return b.viewLocked(), err
	}
	b.all = all
	b.pager.Reset(Filter(all, b.criteria, table))
	return b.viewLocked(), nil
}

// LoadMore appends the next page. It does nothing when a load is running or
// every match is already visible. If the criteria changed while loading,
// the appended page is discarded and the view is rebuilt from page one.
func (b *Browser) LoadMore(ctx context.Context) (View, error) {
	b.mu.Lock()
	if b.loading || !b.pager.HasMore() {
		defer b.mu.Unlock()
		return b.viewLocked(), nil
	}
	b.loading = true
	gen := b.generation
	b.mu.Unlock()

	all, table, err := b.fetch(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		return b.viewLocked(), err
	}
	b.all = all
	filtered := Filter(all, b.criteria, table)
	if gen != b.generation {
		b.pager.Reset(filtered)
	} else {
		b.pager.Append(filtered)
	}
	return b.viewLocked(), nil
}

// OnScroll loads the next page when the viewport nears the end. Checks are
// throttled to one per ScrollInterval; the bool reports whether a load ran.
// A position that arrives inside the window is kept, and the latest one is
// checked when the window closes, so the final scroll event is never lost.
func (b *Browser) OnScroll(ctx context.Context, pos ScrollPosition) (View, bool, error) {
	checked := false
	b.scroll.Do(func() {
		checked = true
	})
	if !checked {
		b.deferScroll(ctx, pos)
		return b.View(), false, nil
	}

	b.mu.Lock()
	b.pendingScroll = nil
	b.mu.Unlock()

	if !pos.NearEnd() {
		return b.View(), false, nil
	}
	v, err := b.LoadMore(ctx)
	return v, true, err
}

// OnScrollLoad registers fn to receive the result of loads started by a
// deferred scroll check.
func (b *Browser) OnScrollLoad(fn func(View, error)) {
	b.mu.Lock()
	b.onScrollLoad = fn
	b.mu.Unlock()
}

func (b *Browser) deferScroll(ctx context.Context, pos ScrollPosition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingScroll = &pos
	if b.scrollTimer != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	b.scrollTimer = time.AfterFunc(ScrollInterval, func() { b.trailingScroll(ctx) })
}

func (b *Browser) trailingScroll(ctx context.Context) {
	b.mu.Lock()
	pos := b.pendingScroll
	notify := b.onScrollLoad
	b.pendingScroll, b.scrollTimer = nil, nil
	b.mu.Unlock()

	if pos == nil || !pos.NearEnd() {
		return
	}
	v, err := b.LoadMore(ctx)
	if notify != nil {
		notify(v, err)
	}
}

// Facets describes the loaded inventory, ignoring the active criteria.
func (b *Browser) Facets() Facets {
	b.mu.Lock()
	all := b.all
	b.mu.Unlock()
	return BuildFacets(all)
}

func (b *Browser) fetch(ctx context.Context) ([]model.Vehicle, money.Table, error) {
	all, err := b.source.Vehicles(ctx)
	if err != nil {
		return nil, nil, err
	}
	table := money.DefaultTable()
	if b.rates != nil {
		table = b.rates.Table(ctx)
	}
	return all, table, nil
}

func (b *Browser) viewLocked() View {
	return View{
		Vehicles: slices.Clone(b.pager.Visible()),
		Criteria: b.criteria,
		Page:     b.pager.Page(),
		Total:    b.pager.Total(),
		HasMore:  b.pager.HasMore(),
		Loading:  b.loading,
	}
}
