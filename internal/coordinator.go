package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyncCoordinator is the externally triggered entry point: it gates on the
// per-player cooldown, runs the account sync and the match-history sync
// concurrently, and reports a combined outcome. Sub-sync failures never
// propagate as errors; only a cooldown rejection does.
type SyncCoordinator struct {
	accounts  *AccountSyncer
	matches   *MatchHistorySyncer
	cooldown  CooldownGate
	caches    ReadCacheInvalidator
	publisher SyncEventPublisher
	logger    *Logger
	metrics   *MetricsCollector
	region    string
	window    time.Duration
}

func NewSyncCoordinator(accounts *AccountSyncer, matches *MatchHistorySyncer, cooldown CooldownGate, caches ReadCacheInvalidator, logger *Logger, region string, window time.Duration) *SyncCoordinator {
	return &SyncCoordinator{
		accounts: accounts,
		matches:  matches,
		cooldown: cooldown,
		caches:   caches,
		logger:   logger,
		region:   region,
		window:   window,
	}
}

func (sc *SyncCoordinator) SetPublisher(publisher SyncEventPublisher) {
	sc.publisher = publisher
}

func (sc *SyncCoordinator) SetMetrics(metrics *MetricsCollector) {
	sc.metrics = metrics
}

func (sc *SyncCoordinator) Sync(ctx context.Context, puuid string) (*SyncReport, error) {
	acquired, retryAfter, err := sc.cooldown.AcquireCooldown(ctx, puuid, sc.window)
	if err != nil {
		// The cooldown is advisory state, not a lock: if the gate itself
		// is down the sync proceeds, it just loses repeat-trigger
		// protection until the gate recovers.
		sc.logger.Warn("cooldown_gate_unavailable").
			Component("sync_coordinator").
			Operation("sync").
			Player(puuid, sc.region).
			Err(err).
			Log()
	} else if !acquired {
		return nil, NewCooldownError(retryAfter)
	}

	syncID := uuid.New().String()
	started := time.Now()

	sc.logger.Info("sync_started").
		Component("sync_coordinator").
		Operation("sync").
		Sync(syncID).
		Player(puuid, sc.region).
		Log()

	// The two sub-syncs touch disjoint rows and their failures are
	// independent, so they run concurrently and both always finish.
	var accountOutcome, matchesOutcome SyncOutcome
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		accountOutcome = sc.accounts.Sync(ctx, puuid)
	}()
	go func() {
		defer wg.Done()
		matchesOutcome = sc.matches.Sync(ctx, puuid)
	}()
	wg.Wait()

	report := &SyncReport{
		SyncID:      syncID,
		PUUID:       puuid,
		Status:      combinedStatus(accountOutcome, matchesOutcome),
		AccountSync: accountOutcome,
		MatchesSync: matchesOutcome,
	}

	sc.invalidateReadCaches(ctx, puuid)

	if sc.publisher != nil {
		event := SyncCompletedEvent{
			PUUID:      puuid,
			Region:     sc.region,
			Status:     report.Status,
			NewMatches: matchesOutcome.NewMatches,
			FinishedAt: time.Now(),
		}
		if err := sc.publisher.PublishSyncCompleted(event); err != nil {
			sc.logger.Error("sync_event_publish_failed").
				Component("sync_coordinator").
				Operation("sync").
				Sync(syncID).
				Player(puuid, sc.region).
				Err(err).
				Log()
		}
	}

	if sc.metrics != nil {
		sc.metrics.RecordSyncOutcome(report.Status, matchesOutcome.NewMatches)
	}

	sc.logger.Info("sync_completed").
		Component("sync_coordinator").
		Operation("sync").
		Sync(syncID).
		Player(puuid, sc.region).
		Duration(time.Since(started)).
		Meta("status", string(report.Status)).
		Meta("new_matches", matchesOutcome.NewMatches).
		Meta("total_matches", matchesOutcome.TotalMatches).
		Log()

	return report, nil
}

// invalidateReadCaches runs regardless of partial failure: whichever side
// succeeded has already changed what the read endpoints should serve.
func (sc *SyncCoordinator) invalidateReadCaches(ctx context.Context, puuid string) {
	if sc.caches == nil {
		return
	}
	pattern := fmt.Sprintf("lol:view:*:%s*", puuid)
	if err := sc.caches.DeletePattern(ctx, pattern); err != nil {
		sc.logger.Error("read_cache_invalidation_failed").
			Component("sync_coordinator").
			Operation("invalidate").
			Player(puuid, sc.region).
			Err(err).
			Log()
	}
}
