package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"rinha-relay/internal/application"
	"rinha-relay/internal/config"
	"rinha-relay/internal/domain"
	"rinha-relay/internal/infra/database"
	"rinha-relay/internal/infra/gateway"
	"rinha-relay/internal/infra/healthcheck"
	http_infra "rinha-relay/internal/infra/http"
	redis_impl "rinha-relay/internal/infra/redis"
	"rinha-relay/internal/infra/worker"
	"rinha-relay/internal/pprof"
)

func run(ctx context.Context, cfg config.Config, withAPI, withWorkers bool) error {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// background goroutines stop on cancel, including when the API fails to start
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue, ledger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.StoreBackend == config.BackendMemory && withAPI != withWorkers {
		logger.Warn("memory store is per-process; api and worker must run in the same process")
	}

	var wg sync.WaitGroup

	if cfg.PprofAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pprof.Serve(ctx, cfg.PprofAddr, logger); err != nil {
				logger.Error("pprof server failed", "error", err)
			}
		}()
	}

	if withWorkers {
		client := gateway.NewPaymentProcessorClient(
			cfg.ProcessorDefaultURL, cfg.ProcessorFallbackURL,
			cfg.ProcessorTimeout, cfg.HealthCheckTimeout,
		)
		health := healthcheck.NewHealthCheckService(client, cfg.HealthCheckInterval, healthcheck.WithLogger(logger))
		settle := &application.SettlePaymentUseCase{
			Health:   health,
			Selector: &application.FailoverSelector{Health: health, BothDownDelay: cfg.BothDownDelay},
			Gateway:  client,
			Ledger:   ledger,
			Queue:    queue,
			Logger:   logger.With("component", "settlement"),
		}
		pool := &worker.Pool{
			Queue:        queue,
			Settler:      settle,
			Size:         cfg.Workers,
			PopTimeout:   cfg.QueuePopTimeout,
			ErrorBackoff: cfg.WorkerErrorBackoff,
			Logger:       logger,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}

	var serveErr error
	if withAPI {
		serveErr = serveAPI(ctx, cfg, logger,
			&application.ProcessPaymentUseCase{Queue: queue, Ledger: ledger},
			&application.GetSummaryUseCase{Repo: ledger},
		)
	} else {
		<-ctx.Done()
	}
	if serveErr != nil {
		logger.Error("api server failed", "error", serveErr)
	}
	cancel()

	logger.Info("waiting for background work to finish")
	wg.Wait()
	logger.Info("shutdown complete")
	return serveErr
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.PaymentQueue, domain.PaymentLedger, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		return database.NewMemQueue(), database.NewMemDB(), func() {}, nil
	}

	client, err := redis_impl.NewClient(ctx, cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing redis client", "error", err)
		}
	}
	return redis_impl.NewRedisPaymentQueue(client),
		redis_impl.NewRedisPaymentRepository(client, logger.With("component", "ledger")),
		closeFn, nil
}

func serveAPI(ctx context.Context, cfg config.Config, logger *slog.Logger,
	submit *application.ProcessPaymentUseCase, summary *application.GetSummaryUseCase) error {

	listener, err := listen(cfg.ListenAddr)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		Handler:           http_infra.SetupRoutes(submit, summary, logger),
		Name:              "rinha-relay",
		ReduceMemoryUsage: true,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr)
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	logger.Info("http server stopped")
	return nil
}

// listen accepts "host:port" or "unix:/path/to.sock".
func listen(addr string) (net.Listener, error) {
	path, ok := strings.CutPrefix(addr, "unix:")
	if !ok {
		return net.Listen("tcp", addr)
	}
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on unix socket %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o777); err != nil {
		l.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}
	return l, nil
}
