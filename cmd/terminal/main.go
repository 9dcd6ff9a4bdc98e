package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/adoniasgoesw/filazero/internal/lifecycle"
	"github.com/adoniasgoesw/filazero/internal/notify"
	"github.com/adoniasgoesw/filazero/internal/pricing"
	"github.com/adoniasgoesw/filazero/pkg/config"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/metrics"
	"github.com/adoniasgoesw/filazero/pkg/orderapi"
	"github.com/adoniasgoesw/filazero/pkg/redis"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func main() {
	slotFlag := flag.String("slot", "", "slot to open, e.g. table-05, counter-02, tab-17")
	metricsAddr := flag.String("metrics-addr", "", "serve commit metrics on this address, e.g. :9100")
	flag.Parse()

	// Console output owns stdout.
	logg := logger.New(logger.Options{ServiceName: "terminal", Output: os.Stderr})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	slot, err := types.ParseSlot(*slotFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -slot: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithTerminalID(ctx, cfg.App.TerminalID)

	client, err := orderapi.NewClient(cfg.Backend.BaseURL,
		orderapi.WithTimeout(cfg.Backend.Timeout),
		orderapi.WithTerminalID(cfg.App.TerminalID),
	)
	requireResource(ctx, logg, "order api client", err)

	registry := prometheus.NewRegistry()
	commitMetrics := metrics.NewCommitMetrics(registry)
	var metricsServer *http.Server
	if *metricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
	}

	lock, redisClient, err := buildCommitLock(ctx, cfg, logg)
	requireResource(ctx, logg, "commit lock", err)

	controller, err := lifecycle.NewController(lifecycle.Params{
		Orders:              client,
		Catalog:             client,
		Lock:                lock,
		Logger:              logg,
		Metrics:             commitMetrics,
		Printer:             logReceiptPrinter{logg: logg},
		TerminalID:          cfg.App.TerminalID,
		Timeout:             cfg.Backend.Timeout,
		LockWait:            cfg.Commit.LockWait,
		DeleteAttempts:      cfg.Commit.DeleteRetryAttempts,
		DeleteQueueCapacity: cfg.Commit.DeleteQueueCapacity,
	})
	requireResource(ctx, logg, "lifecycle controller", err)

	session, res := controller.Open(ctx, slot)
	requireResource(ctx, logg, "order session", res.Error())
	unsubscribe := session.Subscribe(func(ctx context.Context, event notify.Event) {
		logg.Info(logg.WithField(ctx, "event", string(event.Type)), "order event")
	})

	runErr := newConsole(session, client, os.Stdout).Run(ctx, os.Stdin)
	unsubscribe()

	if pending := session.PendingDeletions(); pending > 0 {
		logg.Warn(logg.WithField(ctx, "pending_deletions", pending), "payment deletions still queued at exit")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var closeErr error
	if metricsServer != nil {
		closeErr = multierr.Append(closeErr, metricsServer.Shutdown(shutdownCtx))
	}
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	if err := multierr.Append(runErr, closeErr); err != nil {
		logg.Error(ctx, "terminal exited with errors", err)
		os.Exit(1)
	}
}

// buildCommitLock picks the per-slot commit lock. The redis lock serialises commits across
// terminal processes; the local one only within this process.
func buildCommitLock(ctx context.Context, cfg *config.Config, logg *logger.Logger) (lifecycle.CommitLock, *redis.Client, error) {
	if !strings.EqualFold(cfg.Commit.LockBackend, config.CommitLockRedis) {
		return lifecycle.NewLocalCommitLock(), nil, nil
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, err
	}
	lock, err := lifecycle.NewRedisCommitLock(redisClient, redisClient.CommitLockKey, cfg.Commit.LockTTL, cfg.Commit.LockPollInterval)
	if err != nil {
		return nil, nil, multierr.Append(err, redisClient.Close())
	}
	return lock, redisClient, nil
}

// logReceiptPrinter records finalized receipts in the terminal log.
type logReceiptPrinter struct {
	logg *logger.Logger
}

func (p logReceiptPrinter) Print(ctx context.Context, receipt lifecycle.Receipt) error {
	ctx = p.logg.WithFields(ctx, map[string]any{
		"order_id": receipt.OrderID.String(),
		"slot":     receipt.Slot,
		"items":    len(receipt.Items),
		"total":    pricing.Format(receipt.Totals.Total),
		"paid":     pricing.Format(receipt.Payments.PaidTotal),
		"change":   pricing.Format(receipt.Payments.Change),
	})
	p.logg.Info(ctx, "receipt")
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
