package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/internal/api"
	"github.com/openshift-hyperfleet/hub-clusters/internal/config_loader"
	"github.com/openshift-hyperfleet/hub-clusters/internal/tagging"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/health"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/otel"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command-line flags
var (
	configPath string
	logLevel   string
	logFormat  string
	logOutput  string
)

const componentName = "hub-clusters"

// Timeout constants
const (
	// OTelShutdownTimeout is the timeout for gracefully shutting down the OpenTelemetry TracerProvider
	OTelShutdownTimeout = 5 * time.Second
	// ServerShutdownTimeout is the timeout for gracefully shutting down each HTTP server
	ServerShutdownTimeout = 5 * time.Second
	// WorkflowPruneInterval is how often idle tagging workflows are dropped
	WorkflowPruneInterval = time.Minute
	// WarmUpRetryInterval is how often the initial listing is retried while no region answered
	WarmUpRetryInterval = 15 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hub-clusters",
		Short: "Hub clusters - list and tag ACM hub clusters across regions",
		Long: `Hub clusters reads the cluster inventory of every configured regional
cluster service and maintains the ACM hub tag stored in each cluster's
property bag.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("Path to configuration file (can also use %s env var)", config_loader.EnvConfigPath))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error). Env: LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (text, json). Env: LOG_FORMAT")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "",
		"Log output (stdout, stderr). Env: LOG_OUTPUT")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API",
		Long: `Start the hub clusters service. It will:
- Read the cluster inventory of every configured region
- Serve the hub and all clusters list views
- Accept single and batch hub tagging requests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	hubsCmd := &cobra.Command{
		Use:   "hubs",
		Short: "Print the hub clusters as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHubs(cmd.Context())
		},
	}

	tagCmd := &cobra.Command{
		Use:   "tag CLUSTER_ID...",
		Short: "Tag clusters as ACM hubs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd.Context(), args)
		},
	}

	untagCmd := &cobra.Command{
		Use:   "untag CLUSTER_ID...",
		Short: "Remove the ACM hub tag from clusters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntag(cmd.Context(), args)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			fmt.Printf("Hub Clusters\n")
			fmt.Printf("  Version:    %s\n", info.Version)
			fmt.Printf("  Commit:     %s\n", info.Commit)
			fmt.Printf("  Built:      %s\n", info.BuildDate)
			fmt.Printf("  Tag:        %s\n", info.Tag)
			fmt.Printf("  Go:         %s\n", info.GoVersion)
		},
	}

	rootCmd.AddCommand(serveCmd, hubsCmd, tagCmd, untagCmd, versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// buildLoggerConfig creates a logger configuration from environment variables
// and command-line flags. Flags take precedence over environment variables.
func buildLoggerConfig(component string) logger.Config {
	cfg := logger.ConfigFromEnv()

	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	if logOutput != "" {
		cfg.Output = logOutput
	}

	cfg.Component = component
	cfg.Version = version.Version

	return cfg
}

// loadConfig creates the logger and loads the configuration
func loadConfig(ctx context.Context) (logger.Logger, *config_loader.HubClustersConfig, error) {
	log, err := logger.NewLogger(buildLoggerConfig(componentName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// If configPath flag is empty, loader will read from HUB_CLUSTERS_CONFIG_PATH env var
	cfg, err := config_loader.Load(configPath)
	if err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to load configuration")
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Infof(ctx, "Configuration loaded successfully: name=%s regions=%d", cfg.Metadata.Name, len(cfg.Spec.Regions))
	return log, cfg, nil
}

// runServe contains the main application logic for the serve command
func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	info := version.Info()
	log.Infof(ctx, "Starting %s", info)

	// Get trace sample ratio from environment (default: 10%)
	sampleRatio := otel.GetTraceSampleRatio(log, ctx)
	tp, err := otel.InitTracer(componentName, info.Version, sampleRatio)
	if err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to initialize OpenTelemetry")
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), OTelShutdownTimeout)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errCtx := logger.WithErrorField(shutdownCtx, err)
			log.Warnf(errCtx, "Failed to shutdown TracerProvider")
		}
	}()

	def, _ := cfg.DefaultRegion()
	regionIDs := make([]string, 0, len(cfg.Spec.Regions))
	serviceRegions := make([]string, 0, len(cfg.Spec.Regions))
	for _, r := range cfg.Spec.Regions {
		regionIDs = append(regionIDs, r.ID)
		serviceRegions = append(serviceRegions, r.ServiceRegion())
	}

	// Start health server immediately (readiness starts as false)
	healthServer := health.NewServer(log, cfg.Spec.Server.HealthPort, componentName, serviceRegions...)
	if err := healthServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start health server")
		return fmt.Errorf("failed to start health server: %w", err)
	}
	healthServer.SetConfigLoaded()
	defer shutdown(log, "health server", healthServer.Shutdown)

	// Every collector of the service registers on this registry
	registry := prometheus.NewRegistry()
	metricsServer := health.NewMetricsServer(log, cfg.Spec.Server.MetricsPort, registry, health.MetricsConfig{
		Component:     componentName,
		Version:       info.Version,
		Commit:        info.Commit,
		Regions:       regionIDs,
		DefaultRegion: def.ID,
	})
	if err := metricsServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start metrics server")
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer shutdown(log, "metrics server", metricsServer.Shutdown)

	a, err := buildApp(ctx, cfg, log, registry)
	if err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to create services")
		return err
	}

	handler := api.NewHandler(a.views, a.inventory, a.workflows, log)
	router := api.NewRouter(handler, registry)
	apiServer := api.NewServer(log, cfg.Spec.Server.APIPort, router)
	if err := apiServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start API server")
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer shutdown(log, "API server", apiServer.Shutdown)

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof(ctx, "Received signal %s, initiating graceful shutdown...", sig)
		// /readyz must return 503 before the context is cancelled
		healthServer.SetShuttingDown(true)
		cancel()

		// Second signal forces immediate exit
		sig = <-sigCh
		log.Infof(ctx, "Received second signal %s, forcing immediate exit", sig)
		os.Exit(1)
	}()

	// The service is ready once one region answered the initial listing
	go a.warmUpUntilAnswered(ctx, log, healthServer.SetRegionStatus, WarmUpRetryInterval)

	go pruneWorkflows(ctx, log, a.workflows, cfg.WorkflowIdleTimeout())

	log.Info(ctx, "Hub clusters service started")
	<-ctx.Done()
	log.Info(ctx, "Context cancelled, shutting down...")
	return nil
}

func shutdown(log logger.Logger, name string, fn func(context.Context) error) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
	defer shutdownCancel()
	if err := fn(shutdownCtx); err != nil {
		errCtx := logger.WithErrorField(shutdownCtx, err)
		log.Warnf(errCtx, "Failed to shutdown %s", name)
	}
}

// pruneWorkflows drops workflows untouched for idle until ctx is done
func pruneWorkflows(ctx context.Context, log logger.Logger, workflows *tagging.Workflows, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(WorkflowPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := workflows.Prune(idle); n > 0 {
				log.Infof(ctx, "Dropped %d idle tagging workflow(s)", n)
			}
		}
	}
}

// runHubs prints the hub cluster view
func runHubs(ctx context.Context) error {
	log, cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	lv, err := a.views.HubClusters(ctx)
	if err != nil {
		return err
	}
	for _, detail := range lv.ErrorDetails {
		log.Warn(ctx, detail)
	}
	return printJSON(lv.Items)
}

// runTag tags the clusters with the given ids as one batch
func runTag(ctx context.Context, ids []string) error {
	log, cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, log, nil)
	if err != nil {
		return err
	}

	wf := a.workflows.Open()
	for _, id := range ids {
		c, err := a.inventory.Lookup(ctx, id)
		if err != nil {
			return err
		}
		if err := wf.Select(c); err != nil {
			return err
		}
	}
	res, err := wf.HandleTagClusters(logger.WithWorkflowID(ctx, wf.ID()))
	if err != nil {
		return err
	}
	if res.SuccessCount > 0 {
		fmt.Println(tagging.SuccessMessage(res.SuccessCount))
	}
	if len(res.Failures) > 0 {
		if err := printJSON(res.Failures); err != nil {
			return err
		}
		return fmt.Errorf("failed to tag %d cluster(s)", len(res.Failures))
	}
	return nil
}

// runUntag removes the hub tag from the clusters with the given ids
func runUntag(ctx context.Context, ids []string) error {
	log, cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	a, err := buildApp(ctx, cfg, log, nil)
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		c, err := a.inventory.Lookup(ctx, id)
		if err == nil {
			_, err = a.coord.SetTag(ctx, c, false)
		}
		if err != nil {
			failed++
			errCtx := logger.WithErrorField(logger.WithClusterID(ctx, id), err)
			log.Errorf(errCtx, "Failed to remove hub tag")
			continue
		}
		fmt.Printf("Removed ACM Hub tag from %s\n", c.Label())
	}
	if failed > 0 {
		return fmt.Errorf("failed to untag %d cluster(s)", failed)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
