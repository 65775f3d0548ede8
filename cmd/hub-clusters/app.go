package main

import (
	"context"
	"fmt"
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"
	"github.com/openshift-hyperfleet/hub-clusters/internal/config_loader"
	"github.com/openshift-hyperfleet/hub-clusters/internal/criteria"
	"github.com/openshift-hyperfleet/hub-clusters/internal/hubview"
	"github.com/openshift-hyperfleet/hub-clusters/internal/inventory"
	"github.com/openshift-hyperfleet/hub-clusters/internal/notify"
	"github.com/openshift-hyperfleet/hub-clusters/internal/tagging"
	"github.com/openshift-hyperfleet/hub-clusters/internal/viewstate"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds the services built from one configuration
type app struct {
	config    *config_loader.HubClustersConfig
	registry  *cluster_service.Registry
	inventory *inventory.Source
	views     *hubview.Service
	coord     *tagging.Coordinator
	workflows *tagging.Workflows
}

// buildApp wires the services described by cfg. Collectors are registered
// on reg when it is not nil.
func buildApp(ctx context.Context, cfg *config_loader.HubClustersConfig, log logger.Logger, reg prometheus.Registerer) (*app, error) {
	def, ok := cfg.DefaultRegion()
	if !ok {
		return nil, fmt.Errorf("no default region configured")
	}

	services := make([]cluster_service.Service, 0, len(cfg.Spec.Regions))
	for _, r := range cfg.Spec.Regions {
		client := cluster_service.NewClient(log, cfg.ClientOptions(r)...)
		services = append(services, cluster_service.NewService(client))
		log.Infof(logger.WithRegion(ctx, r.ServiceRegion()), "Cluster service configured: id=%s url=%s default=%t", r.ID, r.URL, r.Default)
	}
	registry, err := cluster_service.NewRegistry(def.ServiceRegion(), services...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster service registry: %w", err)
	}

	invOpts := []inventory.SourceOption{
		inventory.WithMetricsRegisterer(reg),
		inventory.WithStaleAfter(cfg.StaleAfter()),
	}
	if n := cfg.Spec.Inventory.Concurrency; n > 0 {
		invOpts = append(invOpts, inventory.WithConcurrency(n))
	}
	if size := cfg.Spec.Inventory.DetailCacheSize; size > 0 {
		invOpts = append(invOpts, inventory.WithDetailCache(size, cfg.DetailCacheTTL()))
	}
	source, err := inventory.NewSource(registry, log, invOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory: %w", err)
	}

	eval, err := criteria.NewEvaluator(log, cfg.Spec.Views.FilterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter evaluator: %w", err)
	}
	store := viewstate.NewStore(
		viewstate.WithDefaultPageSize(cfg.Spec.Views.DefaultPageSize),
		viewstate.WithDefaultSort(cfg.DefaultSort()),
	)
	views, err := hubview.NewService(source, store, eval, log, hubview.Config{
		Regions:         len(registry.Regions()),
		IncludeArchived: cfg.Spec.Inventory.IncludeArchived,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create list views: %w", err)
	}

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return nil, err
	}
	tagOpts := []tagging.Option{
		tagging.WithNotifier(notifier),
		tagging.WithMetricsRegisterer(reg),
	}
	if n := cfg.Spec.Tagging.Concurrency; n > 0 {
		tagOpts = append(tagOpts, tagging.WithConcurrency(n))
	}
	coord, err := tagging.NewCoordinator(registry, source, log, tagOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tagging coordinator: %w", err)
	}

	return &app{
		config:    cfg,
		registry:  registry,
		inventory: source,
		views:     views,
		coord:     coord,
		workflows: tagging.NewWorkflows(coord),
	}, nil
}

func buildNotifier(cfg *config_loader.HubClustersConfig, log logger.Logger) (notify.Notifier, error) {
	var notifiers notify.Multi
	if cfg.Spec.Notifications.Log {
		notifiers = append(notifiers, notify.NewLogNotifier(log))
	}
	if target := cfg.Spec.Notifications.CloudEventsTarget; target != "" {
		ce, err := notify.NewCloudEventsNotifier(target, cfg.NotificationTimeout())
		if err != nil {
			return nil, fmt.Errorf("failed to create CloudEvents notifier: %w", err)
		}
		notifiers = append(notifiers, ce)
	}
	if len(notifiers) == 0 {
		return notify.Discard{}, nil
	}
	return notifiers, nil
}

// regionStatus receives the outcome of a region listing; a nil err means
// the region answered
type regionStatus func(region string, err error)

// warmUp reads the full inventory once and reports every region to status.
// It reports whether at least one region answered.
func (a *app) warmUp(ctx context.Context, log logger.Logger, status regionStatus) bool {
	res := a.inventory.Fetch(ctx, inventory.Options{UseManagedEndpoints: true})
	failed := make(map[string]error, len(res.Errors))
	for _, e := range res.Errors {
		log.Warnf(logger.WithRegion(ctx, e.Region), "Initial cluster listing failed: %s", e.Error())
		failed[e.Region] = e
	}
	answered := 0
	for _, region := range a.registry.Regions() {
		err := failed[region]
		if err == nil {
			answered++
		}
		if status != nil {
			status(region, err)
		}
	}
	log.Infof(ctx, "Initial cluster listing: %d cluster(s) from %d region(s)", len(res.Items), answered)
	return answered > 0
}

// warmUpUntilAnswered repeats warmUp every interval until a region answers
// or ctx is done
func (a *app) warmUpUntilAnswered(ctx context.Context, log logger.Logger, status regionStatus, interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if a.warmUp(ctx, log, status) {
			return true
		}
		log.Warnf(ctx, "No region answered the initial cluster listing, retrying in %v", interval)
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
