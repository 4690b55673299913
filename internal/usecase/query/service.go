// Package query implements the scatter-gather query executor. A request
// whose course list fits the store's clause ceiling is delegated to the
// store's native pagination; an oversized request is decomposed into shards,
// executed concurrently, then merged, deduplicated, re-sorted, and sliced so
// the caller sees exactly what a single unsplit query would have returned.
package query

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meritview/cutoffd/internal/compiler"
	"github.com/meritview/cutoffd/internal/domain"
	domquery "github.com/meritview/cutoffd/internal/domain/query"
	"github.com/meritview/cutoffd/internal/metrics"
)

const (
	defaultShardPageSize       = 200
	defaultMaxConcurrentShards = 6
)

// Service executes compiled query plans against the record store.
type Service struct {
	store         Store
	auth          Authenticator
	cache         Cache
	collection    string
	comp          compiler.Compiler
	shardPageSize int
	maxConcurrent int
	group         singleflight.Group
	logger        *zap.Logger
}

// New creates a query service with default shard limits and no cache.
func New(store Store, auth Authenticator, collection string, logger *zap.Logger) *Service {
	return &Service{
		store:         store,
		auth:          auth,
		collection:    collection,
		comp:          compiler.New(0),
		shardPageSize: defaultShardPageSize,
		maxConcurrent: defaultMaxConcurrentShards,
		logger:        logger,
	}
}

// WithCache attaches a result cache.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// WithLimits overrides the per-shard fetch window and shard concurrency.
// Non-positive values keep the defaults.
func (s *Service) WithLimits(shardPageSize, maxConcurrent int) *Service {
	if shardPageSize > 0 {
		s.shardPageSize = shardPageSize
	}
	if maxConcurrent > 0 {
		s.maxConcurrent = maxConcurrent
	}
	return s
}

// WithMaxValuesPerClause overrides the compiler's facet chunk size.
func (s *Service) WithMaxValuesPerClause(n int) *Service {
	s.comp = compiler.New(n)
	return s
}

// Execute runs one query end to end. The credential check always precedes
// shard dispatch; an invalid credential issues zero store queries.
func (s *Service) Execute(ctx context.Context, req *domquery.Request) (domquery.Page, error) {
	plan := s.comp.Compile(req)

	if err := s.auth.EnsureAuthenticated(ctx); err != nil {
		return domquery.Page{}, fmt.Errorf("ensure authenticated: %w", err)
	}

	if s.cache == nil {
		return s.run(ctx, plan, req)
	}

	key := cacheKey(s.collection, plan, req)
	if page, ok := s.cache.Get(ctx, key); ok {
		return *page, nil
	}

	// Collapse concurrent identical queries into one store round trip.
	v, err, _ := s.group.Do(key, func() (any, error) {
		if page, ok := s.cache.Get(ctx, key); ok {
			return page, nil
		}
		page, err := s.run(ctx, plan, req)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, &page)
		return &page, nil
	})
	if err != nil {
		return domquery.Page{}, err
	}
	return *(v.(*domquery.Page)), nil
}

func (s *Service) run(ctx context.Context, plan compiler.Plan, req *domquery.Request) (domquery.Page, error) {
	start := time.Now()

	if len(plan.Shards) == 1 {
		page, err := s.store.Query(
			ctx, s.collection, plan.Shards[0], plan.Sort.Expr(), req.Page(), req.PerPage(),
		)
		if err != nil {
			return domquery.Page{}, fmt.Errorf("%w: %w", domain.ErrBackendQueryFailed, err)
		}
		metrics.QueryDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
		return page, nil
	}

	pages, err := s.scatter(ctx, plan)
	if err != nil {
		return domquery.Page{}, err
	}

	page := s.gather(pages, plan.Sort, req.Page(), req.PerPage())

	metrics.QueryDuration.WithLabelValues("scatter").Observe(time.Since(start).Seconds())
	metrics.ShardFanout.Observe(float64(len(plan.Shards)))
	if page.Truncated {
		metrics.TruncatedTotal.Inc()
	}

	s.logger.Info("scatter-gather query executed",
		zap.Int("shards", len(plan.Shards)),
		zap.Int("merged_items", page.TotalItems),
		zap.Bool("truncated", page.Truncated),
		zap.Duration("latency", time.Since(start)),
	)
	return page, nil
}

// scatter fires every shard concurrently, each fetching store page 1 with
// the per-shard window instead of the caller's page size. The first failure
// cancels the in-flight siblings and aborts the whole query: a page missing
// one shard would look valid while under-representing the course facet.
func (s *Service) scatter(ctx context.Context, plan compiler.Plan) ([]domquery.Page, error) {
	pages := make([]domquery.Page, len(plan.Shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, shard := range plan.Shards {
		i, shard := i, shard
		g.Go(func() error {
			page, err := s.store.Query(gctx, s.collection, shard, plan.Sort.Expr(), 1, s.shardPageSize)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendQueryFailed, err)
	}
	return pages, nil
}

// gather merges shard pages in shard order, drops duplicate ids keeping the
// first occurrence, re-sorts the union under the plan's comparator, and
// slices the caller's page.
func (s *Service) gather(pages []domquery.Page, sortSpec domquery.Spec, page, perPage int) domquery.Page {
	truncated := false
	seen := make(map[string]struct{})
	var merged []domain.CutoffRecord
	for _, p := range pages {
		if p.TotalItems > len(p.Items) {
			truncated = true
		}
		for _, rec := range p.Items {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return sortSpec.Less(merged[i], merged[j])
	})

	total := len(merged)
	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	startIdx := (page - 1) * perPage
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + perPage
	if endIdx > total {
		endIdx = total
	}

	items := make([]domain.CutoffRecord, endIdx-startIdx)
	copy(items, merged[startIdx:endIdx])

	return domquery.Page{
		Items:      items,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       page,
		PerPage:    perPage,
		Truncated:  truncated,
	}
}

// cacheKey hashes the full compiled plan plus the pagination window, so any
// semantic difference in filters, sort, or page yields a distinct key.
func cacheKey(collection string, plan compiler.Plan, req *domquery.Request) string {
	raw := strings.Join(plan.Shards, "\x1f") + "\x1e" + plan.Sort.Expr() +
		fmt.Sprintf("\x1e%s\x1e%d\x1e%d", collection, req.Page(), req.PerPage())
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum[:16])
}
