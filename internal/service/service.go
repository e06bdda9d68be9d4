package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regionatlas/atlasd/internal/config"
	"github.com/regionatlas/atlasd/internal/dataset"
	"github.com/regionatlas/atlasd/internal/server"
	"github.com/regionatlas/atlasd/internal/util"
)

// Service is the root lifecycle owner for the atlas service
type Service struct {
	cfg config.Config

	// Lifecycle state
	started         chan struct{}
	stopped         chan struct{}
	shutdown        chan struct{}
	shutdownStarted atomic.Bool

	store      *dataset.Store
	watcher    *dataset.Watcher
	handler    *server.Handler
	httpServer *http.Server

	logger *zap.Logger
}

// New creates a new Service with the given configuration
func New(cfg config.Config, baseLogger *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
		shutdown: make(chan struct{}),
		logger:   baseLogger.Named("service"),
	}
}

// Initialize resolves the dataset, performs the initial load, and sets up
// the HTTP server (idempotent). A failed initial load is fatal: the
// process has nothing to serve.
func (s *Service) Initialize(ctx context.Context) error {
	if s.httpServer != nil {
		return nil
	}
	log := s.logger.Sugar()

	manifest, err := util.ReadManifest(s.cfg.DatasetRoot)
	if err != nil {
		return fmt.Errorf("failed to read atlas.yaml: %w", err)
	}
	paths := dataset.ResolvePaths(s.cfg.DatasetRoot, manifest)
	thresholds := dataset.DefaultThresholds
	if manifest.Thresholds.Alert != 0 || manifest.Thresholds.OK != 0 {
		thresholds = dataset.Thresholds{Alert: manifest.Thresholds.Alert, OK: manifest.Thresholds.OK}
	}
	if err := thresholds.Validate(); err != nil {
		return err
	}

	cfg := s.cfg
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = manifest.Notify.Webhook
	}

	if _, err := server.LoadSchema(); err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	s.store = dataset.NewStore(paths, thresholds, cfg.Workers)
	s.handler = server.NewHandler(cfg, s.store, func() { s.Shutdown(ctx) })

	log.Infow("loading dataset", "root", cfg.DatasetRoot, "workers", cfg.Workers)
	loadStarted := time.Now()
	_, err = s.store.Reload(ctx)
	s.handler.SetupCompleted(loadStarted, err)
	if err != nil {
		return fmt.Errorf("initial dataset load failed: %w", err)
	}

	if cfg.Reload {
		w, err := dataset.NewWatcher(s.store)
		if err != nil {
			return fmt.Errorf("failed to start dataset watcher: %w", err)
		}
		s.watcher = w
	}

	mux := server.NewServeMux(s.handler)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           otelhttp.NewHandler(mux, "atlasd"),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}

	return nil
}

// Run starts the service and blocks until shutdown
func (s *Service) Run(ctx context.Context) error {
	log := s.logger.Sugar()

	select {
	case <-s.started:
		log.Errorw("service already started")
		return nil
	default:
	}

	if s.httpServer == nil {
		return fmt.Errorf("service not initialized - call Initialize() first")
	}

	log.Infow("starting service",
		"addr", s.httpServer.Addr,
		"dataset_root", s.cfg.DatasetRoot,
		"auto_reload", s.cfg.Reload,
	)

	eg, egCtx := errgroup.WithContext(ctx)

	// The watcher needs its own cancellation: errgroup only cancels egCtx
	// on error, and a clean shutdown must still stop it.
	watchCtx, stopWatcher := context.WithCancel(egCtx)
	defer stopWatcher()

	eg.Go(func() error {
		log.Info("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if s.watcher != nil {
		eg.Go(func() error {
			log.Info("starting dataset watcher")
			if err := s.watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("dataset watcher failed: %w", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-s.shutdown
		log.Info("initiating graceful shutdown")
		stopWatcher()

		drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := s.httpServer.Shutdown(drainCtx); err != nil {
			log.Errorw("graceful shutdown failed, closing", "error", err)
			return s.httpServer.Close()
		}
		return nil
	})

	// Monitor for context cancellation (handles external cancellation)
	eg.Go(func() error {
		select {
		case <-s.shutdown:
			return nil
		case <-egCtx.Done():
			log.Info("context canceled, forcing immediate shutdown")
			if s.shutdownStarted.CompareAndSwap(false, true) {
				close(s.shutdown)
			}
			if err := s.httpServer.Close(); err != nil {
				log.Errorw("failed to close HTTP server", "error", err)
			}
			return egCtx.Err()
		}
	})

	eg.Go(func() error {
		return s.handleSignals(egCtx)
	})

	close(s.started)

	err := eg.Wait()

	s.stop()

	return err
}

// Shutdown initiates graceful shutdown of the service (non-blocking)
func (s *Service) Shutdown(ctx context.Context) {
	log := s.logger.Sugar()
	log.Info("shutdown requested")

	if !s.shutdownStarted.CompareAndSwap(false, true) {
		log.Debug("already shutting down")
		return
	}

	close(s.shutdown)
}

// stop performs final cleanup after shutdown
func (s *Service) stop() {
	log := s.logger.Sugar()
	log.Info("stopping service")

	select {
	case <-s.stopped:
		log.Debug("service already stopped")
	default:
		close(s.stopped)
	}
}

// IsStarted returns true if the service has been started
func (s *Service) IsStarted() bool {
	select {
	case <-s.started:
		return true
	default:
		return false
	}
}

// IsStopped returns true if the service has been stopped
func (s *Service) IsStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// IsRunning returns true if the service is running (started but not stopped)
func (s *Service) IsRunning() bool {
	return s.IsStarted() && !s.IsStopped()
}

// Store exposes the dataset store, nil before Initialize.
func (s *Service) Store() *dataset.Store {
	return s.store
}

func (s *Service) handleSignals(ctx context.Context) error {
	log := s.logger.Sugar()
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case <-s.shutdown:
		return nil
	case <-ctx.Done():
		return nil
	case sig := <-ch:
		log.Infow("received signal, starting graceful shutdown", "signal", sig)
		s.Shutdown(ctx)
		return nil
	}
}
