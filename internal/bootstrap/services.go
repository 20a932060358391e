package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/adapters/orchestrator"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/data"
	"github.com/voicebot/consultd/internal/domain/status"
	"github.com/voicebot/consultd/internal/observability/notify/pagerduty"
	"github.com/voicebot/consultd/internal/observability/notify/slack"
	"github.com/voicebot/consultd/internal/observability/statsd"
	"github.com/voicebot/consultd/internal/service"
	"github.com/voicebot/consultd/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Broadcaster   *status.DefaultBroadcaster
	Batch         *service.BatchService
	Dispatcher    *service.Dispatcher
	Reconciler    *service.Reconciler
	History       core.HistoryReader
	Cache         core.CacheRepository
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Queue        *data.RedisWaitingQueue
	Cache        *data.RedisCacheRepo
	Correlations *data.RedisCorrelationStore
	InFlight     *data.RedisInFlightTracker
	Contacts     *data.ContactRepo
	QuestionSets *data.QuestionSetRepo
	History      *data.ConsultationRepo
	Sessions     core.SessionIndexAllocator
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "consultd",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, cfg config.DispatchConfig) *serviceRepositories {
	var sessions core.SessionIndexAllocator
	switch cfg.SessionCounterBackend {
	case config.SessionCounterRedis:
		sessions = data.NewRedisSessionCounter(rdb)
	default:
		sessions = data.NewSessionCounterRepo(db)
	}

	return &serviceRepositories{
		Queue:        data.NewRedisWaitingQueue(rdb, cfg.QueueKey),
		Cache:        data.NewRedisCacheRepo(rdb),
		Correlations: data.NewRedisCorrelationStore(rdb),
		InFlight:     data.NewRedisInFlightTracker(rdb),
		Contacts:     data.NewContactRepo(db),
		QuestionSets: data.NewQuestionSetRepo(db),
		History:      data.NewConsultationRepo(db),
		Sessions:     sessions,
	}
}

// DomainServicesOptions groups inputs for buildDomainServices.
type DomainServicesOptions struct {
	Repos         *serviceRepositories
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

// buildDomainServices wires business services using repositories and observability adapters.
func buildDomainServices(opts *DomainServicesOptions) (ServiceContainer, error) {
	cfg := opts.Config
	repos := opts.Repos
	obs := opts.Observability
	metrics := metricsSink(obs)
	notifier := failureNotifier(obs)

	broadcaster := status.NewBroadcaster(status.Options{
		Buffer:      cfg.Broadcast.Buffer,
		MaxPending:  cfg.Broadcast.MaxPending,
		SendTimeout: cfg.Broadcast.SendTimeout,
	})
	questionSets := core.NewQuestionSetCache(core.QuestionSetCacheOptions{
		Cache:   repos.Cache,
		Catalog: repos.QuestionSets,
		TTL:     cfg.Dispatch.QuestionCacheTTL,
	})

	orch, err := orchestrator.NewClient(orchestrator.Options{
		BaseURL: cfg.Dispatch.OrchestratorBaseURL,
		Logger:  opts.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("orchestrator client: %w", err)
	}

	batch, err := service.NewBatchService(service.BatchServiceOptions{
		Queue:        repos.Queue,
		Contacts:     repos.Contacts,
		QuestionSets: questionSets,
		Publisher:    broadcaster,
		Logger:       opts.Logger,
		Metrics:      metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("batch service: %w", err)
	}

	dispatcher, err := service.NewDispatcher(service.DispatcherOptions{
		Queue:        repos.Queue,
		Contacts:     repos.Contacts,
		QuestionSets: questionSets,
		Sessions:     repos.Sessions,
		Correlations: repos.Correlations,
		Orchestrator: orch,
		Publisher:    broadcaster,
		InFlight:     repos.InFlight,
		Notifier:     notifier,
		Config:       cfg.Dispatch,
		Logger:       opts.Logger,
		Metrics:      metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("dispatcher: %w", err)
	}

	reconciler, err := service.NewReconciler(service.ReconcilerOptions{
		Correlations: repos.Correlations,
		History:      repos.History,
		Contacts:     repos.Contacts,
		Publisher:    broadcaster,
		InFlight:     repos.InFlight,
		Logger:       opts.Logger,
		Metrics:      metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("reconciler: %w", err)
	}

	return ServiceContainer{
		Broadcaster:   broadcaster,
		Batch:         batch,
		Dispatcher:    dispatcher,
		Reconciler:    reconciler,
		History:       repos.History,
		Cache:         repos.Cache,
		Observability: obs,
	}, nil
}

// NewServices wires every service the enabled modes may need.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, deps.Config.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, deps.Config.Dispatch)
	return buildDomainServices(&DomainServicesOptions{
		Repos:         repos,
		Observability: observability,
		Config:        deps.Config,
		Logger:        logger,
	})
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   cfg.Slack.WebhookURL,
			Channel:      cfg.Slack.Channel,
			Username:     cfg.Slack.Username,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
			DashboardURL: cfg.Slack.DashboardURL,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger,
		Sinks:  sinks,
	})
}

// metricsSink returns the statsd client as a Sink, or nil when metrics are off.
//
//nolint:ireturn // a nil *statsd.Client must not become a non-nil interface.
func metricsSink(obs ObservabilityContainer) statsd.Sink {
	if obs.MetricsSink == nil {
		return nil
	}
	return obs.MetricsSink
}

//nolint:ireturn // a nil *failurenotifier.Service must not become a non-nil interface.
func failureNotifier(obs ObservabilityContainer) service.FailureNotifier {
	if obs.FailureNotifier == nil {
		return nil
	}
	return obs.FailureNotifier
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:      deps.cfg.Config,
		Services:    deps.cfg.Services,
		DB:          deps.cfg.DB,
		RedisClient: deps.cfg.RedisClient,
		Logger:      deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newDispatchSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeDispatchScheduler,
		name: "dispatch scheduler",
		start: func(ctx context.Context) error {
			return RunDispatchScheduler(ctx, DispatchSchedulerConfig{
				Starter: deps.cfg.Services.Dispatcher,
				Lock:    deps.cfg.Services.Cache,
				Config:  deps.cfg.Config.DispatchScheduler,
				Logger:  deps.logger,
				Metrics: metricsSink(deps.cfg.Services.Observability),
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			return RunReaper(ctx, ReaperConfig{
				DB:        deps.cfg.DB,
				Redis:     deps.cfg.RedisClient,
				Publisher: deps.cfg.Services.Broadcaster,
				Notifier:  failureNotifier(deps.cfg.Services.Observability),
				Logger:    deps.logger,
				Config:    deps.cfg.Config.Reaper,
				Metrics:   metricsSink(deps.cfg.Services.Observability),
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newDispatchSchedulerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		services:    cfg.Services,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	services    ServiceContainer
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, lets in-flight orchestrator calls settle,
// and waits for background services.
func gracefulStop(cfg shutdownConfig) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	if cfg.httpServer != nil {
		shutdown := ShutdownConfig{Context: shutdownCtx, Server: cfg.httpServer, Logger: cfg.logger}
		if cfg.services.Broadcaster != nil {
			shutdown.Broadcaster = cfg.services.Broadcaster
		}
		if err := ShutdownHTTPServer(shutdown); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.services.Dispatcher != nil {
		if err := cfg.services.Dispatcher.Wait(shutdownCtx); err != nil {
			cfg.logger.Warn("timeout waiting for in-flight dispatches", "error", err)
		}
	}
	if cfg.services.Observability.MetricsSink != nil {
		if err := cfg.services.Observability.MetricsSink.Close(); err != nil {
			cfg.logger.Warn("close statsd client failed", "error", err)
		}
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
