// Command server runs the push notification fan-out HTTP service:
// /sendPushNotification, /androidV1, /iOSV1, /checkRateLimits, /health,
// and /metrics.
//
// Grounded on the teacher's cmd/consumer/main.go for the overall shape
// (load config, build logger, dial every backend, wire the pipeline,
// start an HTTP server, wait for a shutdown signal, drain) — adapted
// from a queue consumer entry point to a synchronous HTTP server entry
// point, since this system answers requests directly rather than
// draining an inbound AMQP queue.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/audit"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/config"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/gateway"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/httpapi"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/orchestrator"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/ratelimit"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/telemetry"
	"github.com/home-assistant/mobile-apps-fcm-push/pkg/logger"
	"github.com/home-assistant/mobile-apps-fcm-push/pkg/metrics"
	"github.com/home-assistant/mobile-apps-fcm-push/pkg/retry"
)

// startupRetryConfig is the §7-mandated backoff for dialing an external
// backend at startup: a handful of attempts, backing off geometrically
// but never waiting longer than 2s between tries.
func startupRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logr := logger.New(cfg.LogLevel)
	logr.Info("starting push service", slog.String("app", cfg.AppName), slog.String("region", cfg.Region))

	quirkSet, err := quirks.Load(cfg.QuirksConfigPath)
	if err != nil {
		logr.Error("failed to load quirks config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.StartupDialTimeout)
	defer cancelDial()

	store, closeStore, err := dialRateLimitStore(dialCtx, cfg)
	if err != nil {
		logr.Error("failed to connect rate limit backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	fcmGateway, err := gateway.NewFCMGateway(dialCtx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
	if err != nil {
		logr.Error("failed to connect fcm gateway", slog.Any("error", err))
		os.Exit(1)
	}

	recorder, closeAudit := dialAuditRecorder(dialCtx, cfg, logr)
	defer closeAudit()

	engine := ratelimit.NewEngine(store, cfg.MaxNotificationsPerDay)
	errorLog := telemetry.New(logr, "global")
	orch := orchestrator.New(engine, fcmGateway, errorLog, logr)

	reg := prometheus.NewRegistry()
	metricsCollector := metrics.New(reg)

	router := httpapi.NewRouter(orch, metricsCollector, quirkSet, logr, time.Now())
	if recorder != nil {
		router = router.WithAudit(recorder)
	}
	httpSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router.Handler(reg),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logr.Info("http server listening", slog.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	<-ctx.Done()
	logr.Info("shutdown signal received")

	if err := group.Wait(); err != nil {
		logr.Error("server exited with error", slog.Any("error", err))
	}
	logr.Info("push service stopped")
}

// dialRateLimitStore connects the configured backend and returns a
// close function that tears it down cleanly. Per §7, the KV connection
// is the one retryable piece of startup state, so the dial itself runs
// under startupRetryConfig rather than failing on the first hiccup.
func dialRateLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func(), error) {
	switch cfg.RateLimitBackend {
	case config.BackendRedis:
		addr := cfg.ValkeyHost + ":" + cfg.ValkeyPort
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := retry.Do(ctx, startupRetryConfig(), func() error {
			return client.Ping(ctx).Err()
		}); err != nil {
			return nil, nil, err
		}
		store := ratelimit.NewRedisStore(client)
		return store, func() { _ = store.Close() }, nil
	default:
		var client *firestore.Client
		err := retry.Do(ctx, startupRetryConfig(), func() error {
			app, appErr := firebase.NewApp(ctx,
				&firebase.Config{ProjectID: cfg.FirestoreProjectID},
				option.WithCredentialsFile(cfg.FirestoreCredentialsFile),
			)
			if appErr != nil {
				return appErr
			}
			c, clientErr := app.Firestore(ctx)
			if clientErr != nil {
				return clientErr
			}
			client = c
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		store := ratelimit.NewFirestoreStore(client, cfg.FirestoreCollectionName)
		return store, func() { _ = store.Close() }, nil
	}
}

// dialAuditRecorder builds the audit trail's Postgres store and, if a
// broker URL is configured, its AMQP publisher. Both are optional: a
// deployment without AUDIT_DATABASE_URL simply runs without an audit
// trail rather than failing startup, since spec's core pipeline never
// depends on it. Each dial runs under the same startup retry as the
// rate limit backend, since both sit behind flaky network hops at boot.
func dialAuditRecorder(ctx context.Context, cfg *config.Config, logr *slog.Logger) (*audit.Recorder, func()) {
	if cfg.AuditDatabaseURL == "" {
		return nil, func() {}
	}

	var store *audit.Store
	err := retry.Do(ctx, startupRetryConfig(), func() error {
		s, openErr := audit.Open(cfg.AuditDatabaseURL)
		if openErr != nil {
			return openErr
		}
		store = s
		return nil
	})
	if err != nil {
		logr.Error("failed to connect audit database, continuing without audit trail", slog.Any("error", err))
		return nil, func() {}
	}

	var publisher *audit.Publisher
	closeFns := []func(){func() { _ = store.Close() }}
	if cfg.AuditQueueURL != "" {
		err := retry.Do(ctx, startupRetryConfig(), func() error {
			p, pubErr := audit.NewPublisher(cfg.AuditQueueURL, 50, logr)
			if pubErr != nil {
				return pubErr
			}
			publisher = p
			return nil
		})
		if err != nil {
			logr.Error("failed to connect audit queue, continuing with database-only audit trail", slog.Any("error", err))
			publisher = nil
		} else {
			closeFns = append(closeFns, func() { _ = publisher.Close() })
		}
	}

	recorder := audit.NewRecorder(store, publisher, logr)
	return recorder, func() {
		for _, fn := range closeFns {
			fn()
		}
	}
}
