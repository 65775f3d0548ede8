// Package inventory merges the cluster lists of every configured region into
// one cached inventory and tracks the read state consumed by list views.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lruexp "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mitchellh/copystructure"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const tracerName = "hub-clusters/inventory"

// Defaults for NewSource
const (
	DefaultConcurrency     = 4
	DefaultDetailCacheSize = 256
	DefaultDetailTTL       = 5 * time.Minute
	DefaultStaleAfter      = 5 * time.Minute
)

type entry struct {
	opts     Options
	items    []cluster.Cluster
	total    int
	errors   []RegionError
	revision uint64
	fetched  bool
	stale    bool
	storedAt time.Time
	inFlight int
	// appliedSeq is the sequence number of the read whose result is stored
	appliedSeq uint64
	// generation is bumped by Invalidate
	generation uint64
}

// Source is the cluster inventory shared by every view
type Source struct {
	registry    *cluster_service.Registry
	log         logger.Logger
	metrics     *metrics
	concurrency int
	detailSize  int
	detailTTL   time.Duration
	staleAfter  time.Duration
	now         func() time.Time

	group   singleflight.Group
	details *lruexp.LRU[string, cluster.Cluster]

	mu       sync.Mutex
	entries  map[string]*entry
	revision uint64
	seq      uint64
}

// SourceOption configures a Source
type SourceOption func(*Source)

// WithConcurrency bounds the number of regions read in parallel
func WithConcurrency(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDetailCache sizes the cluster detail cache
func WithDetailCache(size int, ttl time.Duration) SourceOption {
	return func(s *Source) {
		if size > 0 {
			s.detailSize = size
		}
		if ttl > 0 {
			s.detailTTL = ttl
		}
	}
}

// WithStaleAfter sets how long a successful read is served before the
// regions are read again. Zero disables expiry.
func WithStaleAfter(d time.Duration) SourceOption {
	return func(s *Source) {
		if d >= 0 {
			s.staleAfter = d
		}
	}
}

// WithMetricsRegisterer registers the inventory collectors on reg
func WithMetricsRegisterer(reg prometheus.Registerer) SourceOption {
	return func(s *Source) {
		s.metrics = newMetrics(reg)
	}
}

// NewSource creates an inventory over every region of registry
func NewSource(registry *cluster_service.Registry, log logger.Logger, opts ...SourceOption) (*Source, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	s := &Source{
		registry:    registry,
		log:         log,
		concurrency: DefaultConcurrency,
		detailSize:  DefaultDetailCacheSize,
		detailTTL:   DefaultDetailTTL,
		staleAfter:  DefaultStaleAfter,
		now:         time.Now,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	s.details = lruexp.NewLRU[string, cluster.Cluster](s.detailSize, nil, s.detailTTL)
	return s, nil
}

// Fetch returns the inventory for opts, reading every region when the cached
// entry is missing, stale, expired or holds region failures. Per-region
// failures are reported in the result.
func (s *Source) Fetch(ctx context.Context, opts Options) Result {
	key := opts.key()

	s.mu.Lock()
	e := s.entryLocked(key, opts)
	if s.freshLocked(e) {
		r := s.snapshotLocked(e)
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(ctx, key, opts), nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	// the entry read may have been dropped by Invalidate meanwhile
	if cur, ok := s.entries[key]; ok {
		return s.snapshotLocked(cur)
	}
	return s.snapshotLocked(v.(*entry))
}

// freshLocked reports whether e can be served without reading the regions
func (s *Source) freshLocked(e *entry) bool {
	if !e.fetched || e.stale {
		return false
	}
	return s.staleAfter <= 0 || s.now().Sub(e.storedAt) < s.staleAfter
}

// Peek returns the current state for opts without reading
func (s *Source) Peek(opts Options) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[opts.key()]
	if !ok {
		return Result{Items: []cluster.Cluster{}, IsPending: true}
	}
	return s.snapshotLocked(e)
}

// Invalidate marks every full read stale, drops server page reads and drops
// cached cluster details. Reads in flight when Invalidate is called do not
// clear the stale mark.
func (s *Source) Invalidate() {
	s.mu.Lock()
	for key, e := range s.entries {
		s.group.Forget(key)
		if e.opts.Pagination != nil {
			delete(s.entries, key)
			continue
		}
		e.stale = true
		e.generation++
	}
	s.mu.Unlock()
	s.details.Purge()
}

// Refetch reads every known full inventory again, fresh or not. Server page
// reads are left to the next Fetch of that page. The returned error
// aggregates the region failures of all reads.
func (s *Source) Refetch(ctx context.Context) error {
	s.mu.Lock()
	known := make([]Options, 0, len(s.entries))
	for key, e := range s.entries {
		if e.opts.Pagination != nil {
			continue
		}
		e.stale = true
		s.group.Forget(key)
		known = append(known, e.opts)
	}
	s.mu.Unlock()

	errs := make([]error, len(known))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, opts := range known {
		g.Go(func() error {
			errs[i] = s.Fetch(ctx, opts).Err()
			return nil
		})
	}
	_ = g.Wait()
	return utilerrors.NewAggregate(errs)
}

// Cluster returns the detail record of one cluster, served from the detail
// cache when possible.
func (s *Source) Cluster(ctx context.Context, region, id string) (cluster.Cluster, error) {
	if region == "" {
		region = s.registry.Default()
	}
	key := region + "/" + id
	if c, ok := s.details.Get(key); ok {
		return c, nil
	}

	svc, err := s.registry.ForRegion(region)
	if err != nil {
		return cluster.Cluster{}, err
	}
	ctx = logger.WithClusterID(logger.WithRegion(ctx, region), id)
	c, err := svc.GetCluster(ctx, id)
	if err != nil {
		return cluster.Cluster{}, fmt.Errorf("get cluster %s: %w", id, err)
	}
	s.fillRegion(&c, region)
	s.details.Add(key, c)
	return c, nil
}

// Lookup resolves a cluster by id from the cached inventory, reading the
// full inventory when no cached read contains it.
func (s *Source) Lookup(ctx context.Context, id string) (cluster.Cluster, error) {
	if c, ok := s.lookupCached(id); ok {
		return c, nil
	}
	res := s.Fetch(ctx, Options{UseManagedEndpoints: true})
	for _, c := range res.Items {
		if c.ID == id {
			return c, nil
		}
	}
	return cluster.Cluster{}, apperrors.NotFound("cluster %q not found", id)
}

func (s *Source) lookupCached(id string) (cluster.Cluster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if !s.freshLocked(e) {
			continue
		}
		for _, c := range e.items {
			if c.ID == id {
				return copyClusters([]cluster.Cluster{c})[0], true
			}
		}
	}
	return cluster.Cluster{}, false
}

func (s *Source) entryLocked(key string, opts Options) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{opts: opts}
		s.entries[key] = e
	}
	return e
}

func (s *Source) snapshotLocked(e *entry) Result {
	r := Result{
		Items:      copyClusters(e.items),
		Total:      e.total,
		Paged:      e.opts.Pagination != nil,
		Revision:   e.revision,
		Errors:     append([]RegionError(nil), e.errors...),
		IsError:    len(e.errors) > 0,
		IsFetching: e.inFlight > 0,
		IsFetched:  e.fetched,
		IsLoading:  !e.fetched && e.inFlight > 0,
		IsPending:  !e.fetched,
	}
	return r
}

// load reads every region and stores the merged result unless a read started
// later has already been stored. A result with region failures is stored
// stale so the next Fetch reads the regions again.
func (s *Source) load(ctx context.Context, key string, opts Options) *entry {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	e := s.entryLocked(key, opts)
	generation := e.generation
	e.inFlight++
	s.mu.Unlock()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "FetchInventory")
	defer span.End()
	ctx = logger.WithOTelTraceContext(ctx)

	items, total, errs := s.readRegions(ctx, opts)
	span.SetAttributes(
		attribute.Int("clusters.count", len(items)),
		attribute.Int("regions.failed", len(errs)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.inFlight--
	if seq < e.appliedSeq {
		s.metrics.discarded.Inc()
		s.log.Debugf(ctx, "Discarding superseded inventory read %d (stored read %d)", seq, e.appliedSeq)
		return e
	}
	s.revision++
	e.items = items
	e.total = total
	e.errors = errs
	e.revision = s.revision
	e.fetched = true
	e.appliedSeq = seq
	e.storedAt = s.now()
	e.stale = generation != e.generation || len(errs) > 0
	return e
}

type regionRead struct {
	items []cluster.Cluster
	total int
	err   error
}

func (s *Source) readRegions(ctx context.Context, opts Options) ([]cluster.Cluster, int, []RegionError) {
	regions := s.registry.Regions()
	reads := make([]regionRead, len(regions))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, region := range regions {
		g.Go(func() error {
			reads[i] = s.readRegion(ctx, region, opts)
			return nil
		})
	}
	_ = g.Wait()

	items := []cluster.Cluster{}
	total := 0
	var errs []RegionError
	for i, read := range reads {
		if read.err != nil {
			errs = append(errs, newRegionError(regions[i], s.registry.Default(), read.err))
			continue
		}
		items = append(items, read.items...)
		total += read.total
	}
	return items, total, errs
}

func (s *Source) readRegion(ctx context.Context, region string, opts Options) regionRead {
	ctx = logger.WithRegion(ctx, region)
	label := metricRegion(region)

	svc, err := s.registry.ForRegion(region)
	if err != nil {
		return regionRead{err: err}
	}

	listOpts := cluster_service.ListOptions{
		IncludeArchived:     opts.IncludeArchived,
		UseManagedEndpoints: opts.UseManagedEndpoints,
	}
	if p := opts.Pagination; p != nil {
		listOpts.Page = p.Page
		listOpts.Size = p.PageSize
		listOpts.OrderBy = p.OrderBy
	}

	start := time.Now()
	list, err := svc.ListClusters(ctx, listOpts)
	s.metrics.fetches.WithLabelValues(label).Inc()
	s.metrics.fetchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.fetchErrors.WithLabelValues(label).Inc()
		s.log.Warnf(logger.WithErrorField(ctx, err), "Failed to list clusters")
		return regionRead{err: err}
	}

	for i := range list.Items {
		s.fillRegion(&list.Items[i], region)
	}
	total := list.Total
	if total < len(list.Items) {
		total = len(list.Items)
	}
	s.log.Debugf(ctx, "Listed %d clusters (total %d)", len(list.Items), total)
	return regionRead{items: list.Items, total: total}
}

// fillRegion records the owning region on records read from a non-default
// region so edits are routed back to it.
func (s *Source) fillRegion(c *cluster.Cluster, region string) {
	if c.Region == "" && region != s.registry.Default() {
		c.Region = region
	}
}

func metricRegion(region string) string {
	if region == "" {
		return "default"
	}
	return region
}

// copyClusters deep-copies items so callers cannot mutate cached property bags
func copyClusters(items []cluster.Cluster) []cluster.Cluster {
	if len(items) == 0 {
		return []cluster.Cluster{}
	}
	copied, err := copystructure.Copy(items)
	if err != nil {
		out := make([]cluster.Cluster, len(items))
		for i, c := range items {
			out[i] = cluster.WithProperties(c, cluster.PropertiesOf(c).Clone())
		}
		return out
	}
	return copied.([]cluster.Cluster)
}
