// Package tagging applies and removes the hub tag on clusters, one at a time
// or as an independent batch, and keeps the inventory consistent with the
// writes it makes.
package tagging

import (
	"context"
	"fmt"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"
	"github.com/openshift-hyperfleet/hub-clusters/internal/hub"
	"github.com/openshift-hyperfleet/hub-clusters/internal/notify"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/constants"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const tracerName = "hub-clusters/tagging"

// DefaultConcurrency bounds the number of edit calls of a batch in flight
const DefaultConcurrency = 8

// Services resolves the cluster service owning a region
type Services interface {
	ForRegion(region string) (cluster_service.Service, error)
}

// Inventory is the cache refreshed after successful writes
type Inventory interface {
	Invalidate()
	Refetch(ctx context.Context) error
}

// Coordinator executes tag mutations. It never returns edit failures as
// errors from Toggle or TagBatch; they are reported in the results.
type Coordinator struct {
	services    Services
	inventory   Inventory
	notifier    notify.Notifier
	log         logger.Logger
	metrics     *metrics
	concurrency int
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithConcurrency bounds concurrent edit calls in a batch
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithNotifier sets the sink for success notifications
func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetricsRegisterer registers the tagging collectors on reg
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Coordinator) {
		c.metrics = newMetrics(reg)
	}
}

// NewCoordinator creates a Coordinator
func NewCoordinator(services Services, inventory Inventory, log logger.Logger, opts ...Option) (*Coordinator, error) {
	if services == nil {
		return nil, fmt.Errorf("cluster services are required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	c := &Coordinator{
		services:    services,
		inventory:   inventory,
		notifier:    notify.Discard{},
		log:         log,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c, nil
}

// SetTag issues one edit call on the cluster's region writing the hub tag.
// Untagging writes the empty value. The call is not retried.
func (c *Coordinator) SetTag(ctx context.Context, cl cluster.Cluster, tag bool) (cluster.Cluster, error) {
	ctx = logger.WithRegion(logger.WithClusterID(ctx, cl.ID), cl.Region)

	svc, err := c.services.ForRegion(cl.Region)
	if err != nil {
		return cl, err
	}

	value := constants.HubTagRemovedValue
	if tag {
		value = constants.HubTagValue
	}
	patch := cluster_service.ClusterPatch{Properties: map[string]string{constants.HubTagKey: value}}

	updated, err := svc.EditCluster(ctx, cl.ID, patch)
	if err != nil {
		return cl, fmt.Errorf("edit cluster %s: %w", cl.ID, err)
	}
	// Some services answer an edit with an empty body
	if updated.ID == "" {
		updated = cluster.WithProperty(cl, constants.HubTagKey, value)
	}
	if updated.Region == "" {
		updated.Region = cl.Region
	}
	return updated, nil
}

// Toggle flips the hub tag of one cluster. On success the inventory is
// invalidated and refetched.
func (c *Coordinator) Toggle(ctx context.Context, cl cluster.Cluster) Result {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ToggleHubTag")
	defer span.End()
	ctx = logger.WithOTelTraceContext(ctx)

	tag := !hub.IsHubTagged(cl)
	span.SetAttributes(attribute.String("cluster.id", cl.ID), attribute.Bool("tag", tag))

	updated, err := c.SetTag(ctx, cl, tag)
	if err != nil {
		c.metrics.record(tag, Failed)
		c.log.Warnf(logger.WithErrorField(ctx, err), "Failed to change hub tag of cluster %s", cl.Label())
		return Result{Cluster: cl, Outcome: Failed, Err: err}
	}

	c.metrics.record(tag, Applied)
	c.log.Infof(ctx, "Changed hub tag of cluster %s to %t", cl.Label(), tag)
	c.refresh(ctx)
	return Result{Cluster: updated, Outcome: Applied}
}

// TagBatch tags every cluster independently and concurrently and waits for
// all of them. Already tagged clusters succeed without an edit call. When at
// least one cluster succeeded the inventory is refreshed and a notification
// is sent.
func (c *Coordinator) TagBatch(ctx context.Context, clusters []cluster.Cluster) BatchResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "TagBatch")
	defer span.End()
	ctx = logger.WithOTelTraceContext(ctx)
	c.metrics.batches.Inc()

	results := make([]Result, len(clusters))
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, cl := range clusters {
		g.Go(func() error {
			results[i] = c.tagOne(ctx, cl)
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchResult{Results: results, Failures: []Failure{}}
	var tagged []string
	for _, r := range results {
		if r.Succeeded() {
			batch.SuccessCount++
			tagged = append(tagged, r.Cluster.ID)
			continue
		}
		batch.Failures = append(batch.Failures, newFailure(r.Cluster, r.Err))
	}
	span.SetAttributes(
		attribute.Int("clusters.count", len(clusters)),
		attribute.Int("clusters.succeeded", batch.SuccessCount),
	)

	if len(batch.Failures) > 0 {
		c.log.Warnf(ctx, "Failed to tag %d of %d clusters as hub", len(batch.Failures), len(clusters))
	}
	if batch.SuccessCount > 0 {
		c.refresh(ctx)
		n := notify.Notification{
			Variant:    notify.VariantSuccess,
			Title:      SuccessMessage(batch.SuccessCount),
			Count:      batch.SuccessCount,
			ClusterIDs: tagged,
		}
		if err := c.notifier.Notify(ctx, n); err != nil {
			c.log.Warnf(logger.WithErrorField(ctx, err), "Failed to deliver tagging notification")
		}
	}
	return batch
}

// tagOne never panics: a panic in the edit path becomes a failure of this cluster
func (c *Coordinator) tagOne(ctx context.Context, cl cluster.Cluster) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Cluster: cl, Outcome: Failed, Err: fmt.Errorf("tagging cluster %s panicked: %v", cl.ID, r)}
			c.metrics.record(true, Failed)
		}
	}()

	if hub.IsHubTagged(cl) {
		c.metrics.record(true, AlreadyTagged)
		return Result{Cluster: cl, Outcome: AlreadyTagged}
	}

	updated, err := c.SetTag(ctx, cl, true)
	if err != nil {
		c.metrics.record(true, Failed)
		c.log.Warnf(logger.WithErrorField(logger.WithClusterID(ctx, cl.ID), err), "Failed to tag cluster %s as hub", cl.Label())
		return Result{Cluster: cl, Outcome: Failed, Err: err}
	}
	c.metrics.record(true, Applied)
	return Result{Cluster: updated, Outcome: Applied}
}

// refresh drops cached inventory and details, then reads again so the next
// read reflects the write.
func (c *Coordinator) refresh(ctx context.Context) {
	c.inventory.Invalidate()
	if err := c.inventory.Refetch(ctx); err != nil {
		c.log.Warnf(logger.WithErrorField(ctx, err), "Inventory refetch after tagging reported errors")
	}
}

// SuccessMessage is the notification title for n tagged clusters
func SuccessMessage(n int) string {
	noun := "clusters"
	if n == 1 {
		noun = "cluster"
	}
	return fmt.Sprintf("Successfully tagged %d %s as ACM Hub", n, noun)
}

// ActionText is the label of the single item action for cl
func ActionText(cl cluster.Cluster) string {
	if hub.IsHubTagged(cl) {
		return constants.UntagActionText
	}
	return constants.TagActionText
}
