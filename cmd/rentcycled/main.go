// cmd/rentcycled/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rentpulse/internal/analytics"
	"rentpulse/internal/campaign"
	commonaws "rentpulse/internal/common/aws"
	"rentpulse/internal/common/config"
	"rentpulse/internal/common/database"
	"rentpulse/internal/common/logger"
	"rentpulse/internal/common/observability"
	"rentpulse/internal/directory"
	"rentpulse/internal/dispatch"
	"rentpulse/internal/engagement"
	"rentpulse/internal/gateway"
	"rentpulse/internal/reminder"
	"rentpulse/internal/rentcycle"
	"rentpulse/internal/rentledger"
	"rentpulse/internal/templates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting rentpulse daemon...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()

	// --- Init Elasticsearch (analytics mirror; non-fatal if absent) ---
	var sink dispatch.Sink
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil || es.Ping() != nil {
		zapLog.Warn("elasticsearch unavailable, analytics mirroring disabled", zap.Error(err))
	} else {
		sink = analytics.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index, log)
	}

	// --- Gateway adapter selection ---
	adapter, resolver, err := buildGateway(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("gateway init failed", zap.Error(err))
	}

	// --- Wire the engine ---
	rents := rentledger.NewPostgresRepository(pg.GetDB())
	units := directory.NewPostgresDirectory(pg.GetDB())
	ledger := dispatch.NewPostgresLedger(pg.GetDB())
	catalog := templates.NewEngine(templates.NewPostgresRepository(pg.GetDB()), log)

	dispatcher := dispatch.NewDispatcher(ledger, adapter, resolver, dispatch.Options{
		SegmentPrice:   cfg.Dispatch.SegmentPrice,
		ResolveTimeout: time.Duration(cfg.Dispatch.ResolveTimeout) * time.Millisecond,
		Sink:           sink,
	}, log)
	defer dispatcher.Shutdown()

	engine := rentcycle.NewEngine(rents, log)
	scheduler := reminder.NewScheduler(rents, units, catalog, dispatcher,
		reminder.NewRedisDedup(rds.GetClient()), cfg.Rent.ManagerPhone, log)
	orchestrator := campaign.NewOrchestrator(campaign.NewPostgresRepository(pg.GetDB()),
		units, rents, catalog, dispatcher,
		time.Duration(cfg.Campaigns.PacingDelay)*time.Millisecond, log)

	reconciler := dispatch.NewReconciler(ledger,
		time.Duration(cfg.Dispatch.StaleAfter)*time.Millisecond,
		time.Duration(cfg.Dispatch.ReconcileInterval)*time.Millisecond, log)
	go reconciler.Run(ctx)

	scorer := engagement.NewScorer(rents, ledger)
	if sink != nil {
		reports := analytics.NewReports(es.Client, cfg.Database.Elasticsearch.Index, ledger, rents, scorer, log)
		http.HandleFunc("/reports/summary", func(w http.ResponseWriter, r *http.Request) {
			summary, err := reports.Summary(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			writeJSON(w, summary)
		})
		http.HandleFunc("/reports/engagement", func(w http.ResponseWriter, r *http.Request) {
			buckets, err := reports.EngagementDistribution(r.Context(), time.Now().UTC())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, buckets)
		})
	}

	// --- Metrics and pprof endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("metrics endpoint listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// --- Daily tick loop ---
	go runTicks(ctx, cfg, obs, log, engine, scheduler, orchestrator)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	zapLog.Info("Shutdown signal received, stopping...")
	stop()
}

// runTicks fires one tick immediately, then once per day at the configured
// hour. The rent cycle engine runs before the reminder scheduler on every
// tick; the scheduler depends on the ledger being advanced for today.
func runTicks(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger, engine *rentcycle.Engine, scheduler *reminder.Scheduler, orchestrator *campaign.Orchestrator) {
	tick := func() {
		start := time.Now()
		now := time.Now().UTC()
		status := "ok"

		if err := engine.InitializeCycle(ctx, now); err != nil {
			status = "error"
			log.Error("cycle initialization failed", map[string]interface{}{"error": err.Error()})
		}
		if err := engine.AdvanceOverdue(ctx, now); err != nil {
			status = "error"
			log.Error("overdue advancement failed", map[string]interface{}{"error": err.Error()})
		}
		if err := scheduler.RunDaily(ctx, now); err != nil {
			status = "error"
			log.Error("reminder run failed", map[string]interface{}{"error": err.Error()})
		}
		if err := orchestrator.ExecuteDue(ctx, now); err != nil {
			status = "error"
			log.Error("scheduled campaign run failed", map[string]interface{}{"error": err.Error()})
		}

		obs.RecordTickProcessed(ctx, status)
		obs.RecordTickDuration(ctx, time.Since(start), status)
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(untilNextTick(time.Now().UTC(), cfg.Rent.TickHourUTC)):
			tick()
		}
	}
}

// untilNextTick returns the wait until the next daily tick hour, always in
// the future so back-to-back ticks cannot happen.
func untilNextTick(now time.Time, hourUTC int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func buildGateway(ctx context.Context, cfg *config.Config, log logger.Logger) (gateway.Adapter, gateway.DeliveryResolver, error) {
	switch cfg.Gateway.Provider {
	case "sns":
		client, err := commonaws.NewSNSClient(ctx, cfg.Gateway.AWS.Region)
		if err != nil {
			return nil, nil, err
		}
		adapter := gateway.NewSNSAdapter(client, cfg.Gateway.AWS.SMSSenderID, log)
		// SNS has no synchronous delivery receipt; the simulated resolver
		// stands in until the DLR webhook lands.
		sim := gateway.NewSimulated(1, cfg.Gateway.Simulated.DeliveryRate,
			time.Duration(cfg.Gateway.Simulated.MaxLatency)*time.Millisecond)
		return adapter, sim, nil
	case "ses":
		client, err := commonaws.NewSESClient(ctx, cfg.Gateway.AWS.Region)
		if err != nil {
			return nil, nil, err
		}
		adapter := gateway.NewSESAdapter(client, cfg.Gateway.AWS.FromEmail, log)
		sim := gateway.NewSimulated(1, cfg.Gateway.Simulated.DeliveryRate,
			time.Duration(cfg.Gateway.Simulated.MaxLatency)*time.Millisecond)
		return adapter, sim, nil
	default:
		sim := gateway.NewSimulated(cfg.Gateway.Simulated.AcceptRate,
			cfg.Gateway.Simulated.DeliveryRate,
			time.Duration(cfg.Gateway.Simulated.MaxLatency)*time.Millisecond)
		return sim, sim, nil
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
