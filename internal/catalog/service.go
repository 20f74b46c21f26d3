package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFetchTimeout = 30 * time.Second
	reloadKey           = "reload"

	msgReloadFailed = "The menu could not be refreshed right now; the previous menu is still available."
)

// ServiceParams configure the catalog service.
type ServiceParams struct {
	Source       Source
	Logger       *logger.Logger
	Metrics      *metrics.CatalogMetrics
	Labels       Labels
	Locale       string
	FetchTimeout time.Duration
	Clock        func() time.Time
}

// ReloadResult summarizes a successful rebuild.
type ReloadResult struct {
	Generation int64         `json:"generation"`
	Categories int           `json:"categories"`
	Products   int           `json:"products"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}

// Service holds the live catalog snapshot and rebuilds it from the source.
type Service struct {
	source       Source
	logg         *logger.Logger
	metrics      *metrics.CatalogMetrics
	labels       Labels
	locale       string
	fetchTimeout time.Duration
	clock        func() time.Time

	current    atomic.Pointer[Snapshot]
	generation atomic.Int64
	group      singleflight.Group
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	labels := params.Labels
	if labels == nil {
		labels = DefaultLabels()
	}
	timeout := params.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		source:       params.Source,
		logg:         logg,
		metrics:      params.Metrics,
		labels:       labels,
		locale:       params.Locale,
		fetchTimeout: timeout,
		clock:        clock,
	}, nil
}

// Current returns the live snapshot, or nil before the first successful load.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

func (s *Service) Loaded() bool {
	return s.current.Load() != nil
}

// Price looks up the live price of slug.
func (s *Service) Price(slug string) (int64, bool) {
	return s.Current().Price(slug)
}

func (s *Service) ProductName(slug string) string {
	return s.Current().ProductName(slug)
}

// Reload fetches and rebuilds the catalog. Concurrent callers share one fetch.
// On failure the previous snapshot keeps being served.
func (s *Service) Reload(ctx context.Context) (ReloadResult, error) {
	ch := s.group.DoChan(reloadKey, func() (any, error) {
		return s.reload(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ReloadResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), msgReloadFailed)
	case res := <-ch:
		if res.Err != nil {
			return ReloadResult{}, res.Err
		}
		return res.Val.(ReloadResult), nil
	}
}

func (s *Service) reload(ctx context.Context) (ReloadResult, error) {
	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		categories []CategoryRecord
		products   []ProductRecord
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		categories, err = s.source.FetchCategories(gctx)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.source.FetchProducts(gctx)
		if err != nil {
			return fmt.Errorf("fetch products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("catalog fetch timed out after %s: %w", s.fetchTimeout, err)
		}
		s.metrics.ObserveReload(time.Since(start), err)
		s.logg.Error(s.logg.WithField(ctx, "event", "catalog.reload"), "catalog reload failed; keeping previous snapshot", err)
		return ReloadResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, msgReloadFailed)
	}

	snapshot, report := Build(categories, products, BuildOptions{
		Locale:     s.locale,
		Labels:     s.labels,
		Now:        s.clock(),
		Generation: s.generation.Load() + 1,
	})
	s.current.Store(snapshot)
	s.generation.Store(snapshot.Generation())

	duration := time.Since(start)
	s.metrics.ObserveReload(duration, nil)
	s.metrics.SetSize(snapshot.Len(), snapshot.ProductCount())
	s.logReport(ctx, report)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":       "catalog.reload",
		"generation":  snapshot.Generation(),
		"categories":  snapshot.Len(),
		"products":    snapshot.ProductCount(),
		"duration_ms": duration.Milliseconds(),
	})
	s.logg.Info(logCtx, "catalog reloaded")

	return ReloadResult{
		Generation: snapshot.Generation(),
		Categories: snapshot.Len(),
		Products:   snapshot.ProductCount(),
		Skipped:    len(report.Skipped),
		Duration:   duration,
	}, nil
}

func (s *Service) logReport(ctx context.Context, report BuildReport) {
	for _, skipped := range report.Skipped {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"product": skipped.Ref,
			"reason":  skipped.Reason,
		}), "catalog product skipped")
	}
	if len(report.Unplaced) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "products", report.Unplaced), "products without category are priced but not listed")
	}
	if len(report.Appended) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "categories", report.Appended), "products referenced unknown categories; appended to the menu")
	}
}

// RefreshJob reloads the catalog on the job scheduler's cadence.
type RefreshJob struct {
	service *Service
}

func NewRefreshJob(service *Service) *RefreshJob {
	return &RefreshJob{service: service}
}

func (j *RefreshJob) Name() string { return "catalog_refresh" }

func (j *RefreshJob) Run(ctx context.Context) error {
	_, err := j.service.Reload(ctx)
	return err
}
