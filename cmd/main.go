package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/RaloEc/lol-sync-core/internal"
)

// How far behind a player's account data may fall before the scheduler
// enqueues a background refresh, and how many players each pass touches.
const (
	staleRefreshInterval = 30 * time.Minute
	staleAccountAge      = 6 * time.Hour
	staleRefreshBatch    = 25
)

func main() {
	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := internal.NewLogger(cfg)
	metrics := internal.NewMetricsCollector(logger)

	cacheManager := internal.NewCacheManager(cfg)
	rateLimiter := internal.NewRateLimiter(cfg, logger)

	db, err := internal.NewDatabaseManager(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Error preparing schema: %v", err)
	}

	riotClient := internal.NewRiotAPIClient(cfg, logger)
	riotClient.SetMetrics(metrics)

	rankCache := internal.NewRankCache(db, riotClient, logger, cfg.RankTTL)
	rankCache.SetMetrics(metrics)

	snapshots := internal.NewSnapshotRecorder(rankCache, db, logger)
	matchSyncer := internal.NewMatchHistorySyncer(riotClient, db, snapshots, logger, cfg.RiotRegion, cfg.MatchSyncLimit)
	accountSyncer := internal.NewAccountSyncer(riotClient, db, rankCache, logger, cfg.RiotRegion, cfg.MasteryTTL)

	coordinator := internal.NewSyncCoordinator(accountSyncer, matchSyncer, cacheManager, cacheManager, logger, cfg.RiotRegion, cfg.SyncCooldown)
	coordinator.SetMetrics(metrics)

	natsClient, err := internal.NewNATSClient(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to NATS: %v", err)
	}
	defer natsClient.Conn.Close()

	coordinator.SetPublisher(natsClient)

	if _, err := natsClient.StartSyncWorker(coordinator); err != nil {
		log.Fatalf("Error starting sync worker: %v", err)
	}

	scheduleStaleRefresh(db, natsClient, logger, cfg.RiotRegion)

	profiler := internal.NewProfiler(logger)
	profiler.StartMemoryProfiling()

	middleware := internal.NewLoggingMiddleware(logger, metrics)

	http.HandleFunc("/healthz", middleware.Handler(internal.HealthHandler(logger)))
	http.HandleFunc("/metrics", middleware.Handler(internal.MetricsHandler(logger, metrics)))
	http.HandleFunc("/sync", middleware.Handler(internal.SyncHandler(coordinator, rateLimiter, logger)))
	http.HandleFunc("/rank", middleware.Handler(internal.RankHandler(rankCache, rateLimiter, logger)))
	http.HandleFunc("/matches", middleware.Handler(internal.MatchHistoryHandler(db, cacheManager, logger)))
	http.HandleFunc("/mastery", middleware.Handler(internal.MasteryHandler(accountSyncer, rateLimiter, logger)))
	http.HandleFunc("/player", middleware.Handler(internal.PlayerHandler(db, logger)))

	logger.Info("server_started").
		Component("main").
		Operation("listen").
		Meta("port", cfg.AppPort).
		Log()

	if err := http.ListenAndServe(":"+cfg.AppPort, nil); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}

// scheduleStaleRefresh periodically enqueues background sync tasks for
// players whose mirrored account data has aged out. Tasks go through the
// same coordinator as human triggers, so cooldowns still apply.
func scheduleStaleRefresh(db *internal.DatabaseManager, natsClient *internal.NATSClient, logger *internal.Logger, region string) {
	ticker := time.NewTicker(staleRefreshInterval)
	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			accounts, err := db.ListStaleAccounts(ctx, staleAccountAge, staleRefreshBatch)
			cancel()
			if err != nil {
				logger.Error("stale_account_scan_failed").
					Component("scheduler").
					Operation("list_stale").
					Err(err).
					Log()
				continue
			}

			for _, account := range accounts {
				task := internal.SyncTask{PUUID: account.PUUID, Region: region}
				if err := natsClient.PublishSyncTask(task); err != nil {
					logger.Error("sync_task_publish_failed").
						Component("scheduler").
						Operation("publish_task").
						Player(account.PUUID, region).
						Err(err).
						Log()
				}
			}

			if len(accounts) > 0 {
				logger.Info("stale_refresh_scheduled").
					Component("scheduler").
					Operation("publish_task").
					Meta("count", len(accounts)).
					Log()
			}
		}
	}()

	logger.Info("stale_refresh_scheduler_started").
		Component("scheduler").
		Operation("start").
		Meta("interval", staleRefreshInterval.String()).
		Log()
}
