package inventory

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/carlot/internal/fetcher"
	"github.com/sells-group/carlot/internal/model"
)

// DefaultCacheTTL is how long a non-empty batch is served without refetching.
const DefaultCacheTTL = 5 * time.Minute

// maxDocumentBytes caps a downloaded export.
const maxDocumentBytes = 32 << 20

// Recorder persists one history entry per non-cached load.
type Recorder interface {
	RecordIngest(ctx context.Context, run model.IngestRun) error
}

// SnapshotRecorder is a Recorder that also keeps the listings of every
// successful load.
type SnapshotRecorder interface {
	Recorder
	SaveInventory(ctx context.Context, runID string, vehicles []model.Vehicle) (int64, error)
}

// Batch is one ingestion result. Vehicles is shared between callers and must
// be treated as read-only.
type Batch struct {
	Vehicles  []model.Vehicle
	Source    string
	Headers   []string
	Missing   []Field
	Dropped   int
	Skipped   int
	FetchedAt time.Time
	FromCache bool
}

// Empty reports a successful load with no data rows.
func (b *Batch) Empty() bool {
	return len(b.Vehicles) == 0
}

// Find returns the vehicle with the given id.
func (b *Batch) Find(id string) (model.Vehicle, bool) {
	for _, v := range b.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return model.Vehicle{}, false
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Sources are tried in order until one yields a non-blank document.
	Sources    []string
	CacheTTL   time.Duration
	Normalizer Normalizer
	Recorder   Recorder
}

// Loader fetches, parses and caches the inventory.
type Loader struct {
	fetcher fetcher.Fetcher
	opts    LoaderOptions

	group singleflight.Group

	mu       sync.Mutex
	cached   *Batch
	cachedAt time.Time

	nowFunc func() time.Time
}

// NewLoader creates a Loader reading through f.
func NewLoader(f fetcher.Fetcher, opts LoaderOptions) *Loader {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	opts.Normalizer = opts.Normalizer.withDefaults()
	return &Loader{fetcher: f, opts: opts, nowFunc: time.Now}
}

// Load returns the cached batch while it is fresh, otherwise fetches a new
// one. Concurrent callers share a single fetch. An empty batch is a success
// and is never cached.
func (l *Loader) Load(ctx context.Context) (*Batch, error) {
	if b, ok := l.fresh(); ok {
		ingestCacheHits.Inc()
		zap.L().Debug("inventory: serving cached batch", zap.Int("vehicles", len(b.Vehicles)))
		return b, nil
	}

	v, err, _ := l.group.Do("load", func() (any, error) {
		if b, ok := l.fresh(); ok {
			return b, nil
		}
		return l.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Batch), nil
}

// Vehicles returns the current inventory listings.
func (l *Loader) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	b, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return b.Vehicles, nil
}

// Invalidate forgets the cached batch so the next Load fetches.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	l.cachedAt = time.Time{}
}

func (l *Loader) fresh() (*Batch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached == nil || l.cached.Empty() || l.nowFunc().Sub(l.cachedAt) >= l.opts.CacheTTL {
		return nil, false
	}
	b := *l.cached
	b.FromCache = true
	return &b, true
}

func (l *Loader) refresh(ctx context.Context) (*Batch, error) {
	run := model.IngestRun{ID: uuid.NewString(), StartedAt: l.nowFunc()}

	data, source, err := l.download(ctx)
	if err != nil {
		var sue *SourceUnavailableError
		if errors.As(err, &sue) {
			run.Source = sue.Last().URL
		}
		run.Status = model.IngestStatusFailed
		run.Error = err.Error()
		l.finish(ctx, run, nil)
		ingestTotal.WithLabelValues(string(model.IngestStatusFailed)).Inc()
		return nil, err
	}

	rows, err := decodeRows(source, data)
	if err != nil {
		run.Source = source
		run.Status = model.IngestStatusFailed
		run.Error = err.Error()
		l.finish(ctx, run, nil)
		ingestTotal.WithLabelValues(string(model.IngestStatusFailed)).Inc()
		return nil, err
	}

	batch := l.parse(rows)
	batch.Source = source
	batch.FetchedAt = l.nowFunc()

	run.Source = source
	run.Records = len(batch.Vehicles)
	run.Skipped = batch.Skipped
	run.Status = model.IngestStatusOK
	if batch.Empty() {
		run.Status = model.IngestStatusEmpty
	} else {
		l.mu.Lock()
		l.cached = batch
		l.cachedAt = batch.FetchedAt
		l.mu.Unlock()
	}
	l.finish(ctx, run, batch.Vehicles)
	ingestTotal.WithLabelValues(string(run.Status)).Inc()
	if batch.Skipped > 0 {
		ingestRowsSkipped.Add(float64(batch.Skipped))
	}

	zap.L().Info("inventory: loaded",
		zap.String("source", source),
		zap.Int("vehicles", len(batch.Vehicles)),
		zap.Int("dropped", batch.Dropped),
		zap.Int("skipped", batch.Skipped),
	)
	return batch, nil
}

func (l *Loader) parse(rows [][]string) *Batch {
	if len(rows) == 0 {
		return &Batch{Vehicles: []model.Vehicle{}}
	}

	schema := NewSchema(rows[0])
	batch := &Batch{Headers: schema.Headers(), Missing: schema.Missing()}
	if len(batch.Missing) > 0 {
		zap.L().Debug("inventory: unresolved columns",
			zap.Any("missing", batch.Missing),
			zap.Strings("headers", batch.Headers),
		)
	}

	vehicles, stats := l.opts.Normalizer.NormalizeRows(rows[1:], schema)
	batch.Vehicles = vehicles
	batch.Dropped = stats.Dropped
	batch.Skipped = stats.Failed
	return batch
}

// download walks the sources in order and returns the first non-blank document.
func (l *Loader) download(ctx context.Context) ([]byte, string, error) {
	if len(l.opts.Sources) == 0 {
		return nil, "", eris.New("inventory: no sources configured")
	}

	failure := &SourceUnavailableError{}
	for i, src := range l.opts.Sources {
		data, attempt := l.tryFetch(ctx, src)
		if attempt == nil {
			return data, src, nil
		}
		failure.Attempts = append(failure.Attempts, *attempt)

		if ctx.Err() != nil {
			return nil, "", eris.Wrap(ctx.Err(), "inventory: load cancelled")
		}
		if i < len(l.opts.Sources)-1 {
			zap.L().Warn("inventory: source failed, trying next",
				zap.String("source", src),
				zap.Int("status", attempt.StatusCode),
				zap.Error(attempt.Err),
			)
		}
	}
	return nil, "", failure
}

func (l *Loader) tryFetch(ctx context.Context, src string) ([]byte, *SourceAttempt) {
	body, err := l.fetcher.Download(ctx, src)
	if err != nil {
		attempt := &SourceAttempt{URL: src, Err: err}
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			attempt.StatusCode = se.StatusCode
		}
		return nil, attempt
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxDocumentBytes))
	if err != nil {
		return nil, &SourceAttempt{URL: src, Err: eris.Wrap(err, "inventory: read body")}
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, &SourceAttempt{URL: src, StatusCode: 200, Err: eris.New("inventory: blank document")}
	}
	return data, nil
}

func (l *Loader) finish(ctx context.Context, run model.IngestRun, vehicles []model.Vehicle) {
	run.FinishedAt = l.nowFunc()
	if l.opts.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := l.opts.Recorder.RecordIngest(ctx, run); err != nil {
		zap.L().Warn("inventory: record ingest run", zap.Error(err))
	}

	sr, ok := l.opts.Recorder.(SnapshotRecorder)
	if !ok || len(vehicles) == 0 {
		return
	}
	if _, err := sr.SaveInventory(ctx, run.ID, vehicles); err != nil {
		zap.L().Warn("inventory: save snapshot", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// decodeRows turns a document into header-first rows with blank rows removed.
func decodeRows(source string, data []byte) ([][]string, error) {
	if fetcher.IsXLSXSource(source) {
		sheet, err := fetcher.ReadXLSXRows(data, fetcher.XLSXOptions{})
		if err != nil {
			return nil, err
		}
		rows := make([][]string, 0, len(sheet))
		for _, r := range sheet {
			if !blankRow(r) {
				rows = append(rows, r)
			}
		}
		return rows, nil
	}

	lines := fetcher.SplitLines(string(data))
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = fetcher.SplitLine(line)
	}
	return rows, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
