package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func coordinatorFixture(riot *mockRiotAPI, store *mockStore, gate *mockCooldownGate, caches *mockInvalidator) *SyncCoordinator {
	logger := createTestLogger()
	ranks := NewRankCache(store, riot, logger, time.Hour)
	snapshots := NewSnapshotRecorder(ranks, store, logger)
	matches := NewMatchHistorySyncer(riot, store, snapshots, logger, "BR1", 20)
	accounts := NewAccountSyncer(riot, store, ranks, logger, "BR1", 30*time.Minute)
	return NewSyncCoordinator(accounts, matches, gate, caches, logger, "BR1", time.Minute)
}

func healthyRiot() *mockRiotAPI {
	return &mockRiotAPI{
		summoner: &SummonerDTO{PUUID: "test-puuid", SummonerLevel: 100, ProfileIconID: 1},
		leagueEntries: []LeagueEntryDTO{
			soloEntry("test-puuid", "GOLD", "II", 45, 120, 110),
		},
		matchIDs: []string{"BR1_1"},
		matches: map[string]*MatchDTO{
			"BR1_1": rankedMatchDTO("BR1_1", "test-puuid"),
		},
		masteries: []MasteryDTO{
			{PUUID: "test-puuid", ChampionID: 103, ChampionLevel: 7, ChampionPoints: 250000},
		},
	}
}

func TestCoordinatorFullSyncSucceeds(t *testing.T) {
	store := newMockStore()
	gate := &mockCooldownGate{}
	caches := &mockInvalidator{}
	coordinator := coordinatorFixture(healthyRiot(), store, gate, caches)

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if report.Status != SyncStatusSucceeded {
		t.Errorf("Expected succeeded, got %s", report.Status)
	}
	if report.SyncID == "" {
		t.Error("Expected a sync id")
	}
	if report.MatchesSync.NewMatches != 1 {
		t.Errorf("Expected 1 new match, got %d", report.MatchesSync.NewMatches)
	}

	if gate.calls != 1 {
		t.Errorf("Expected 1 cooldown acquisition, got %d", gate.calls)
	}
	if len(gate.windows) != 1 || gate.windows[0] != time.Minute {
		t.Errorf("Cooldown window should be the configured one, got %v", gate.windows)
	}

	if len(caches.patterns) != 1 || !strings.Contains(caches.patterns[0], "test-puuid") {
		t.Errorf("Read caches should be invalidated for the player, got %v", caches.patterns)
	}
}

func TestCoordinatorCooldownRejection(t *testing.T) {
	store := newMockStore()
	riot := healthyRiot()
	gate := &mockCooldownGate{reject: true, retryAfter: 42 * time.Second}
	coordinator := coordinatorFixture(riot, store, gate, &mockInvalidator{})

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if report != nil {
		t.Error("Rejected sync must not produce a report")
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected SyncError, got %v", err)
	}
	if syncErr.Code != ErrCodeCooldown {
		t.Errorf("Expected cooldown_active, got %s", syncErr.Code)
	}
	if syncErr.RetryAfter != 42*time.Second {
		t.Errorf("Expected RetryAfter 42s, got %v", syncErr.RetryAfter)
	}

	// No upstream work happened.
	if riot.matchIDsCalls != 0 || riot.leagueCalls != 0 {
		t.Error("Rejected sync must not reach upstream")
	}
}

func TestCoordinatorFailsOpenWhenGateErrors(t *testing.T) {
	store := newMockStore()
	gate := &mockCooldownGate{err: errors.New("redis connection refused")}
	coordinator := coordinatorFixture(healthyRiot(), store, gate, &mockInvalidator{})

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if err != nil {
		t.Fatalf("Gate outage must not block syncs, got %v", err)
	}
	if report.Status != SyncStatusSucceeded {
		t.Errorf("Expected succeeded, got %s", report.Status)
	}
}

func TestCoordinatorPartialFailureIndependence(t *testing.T) {
	store := newMockStore()
	riot := healthyRiot()
	riot.matchIDsErr = NewSyncError(ErrCodeUpstream, "upstream returned 503", nil)
	coordinator := coordinatorFixture(riot, store, &mockCooldownGate{}, &mockInvalidator{})

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if err != nil {
		t.Fatalf("Partial failure is a report, not an error, got %v", err)
	}
	if report.Status != SyncStatusPartial {
		t.Errorf("Expected partial, got %s", report.Status)
	}
	if !report.AccountSync.Success {
		t.Errorf("Account sync should have succeeded: %s", report.AccountSync.Error)
	}
	if report.MatchesSync.Success {
		t.Error("Match sync should have failed")
	}

	// The account side still landed in the store.
	if store.accounts["test-puuid"] == nil {
		t.Error("Account data should be persisted despite match sync failure")
	}
}

func TestCoordinatorFailedStatusWhenBothSidesFail(t *testing.T) {
	store := newMockStore()
	riot := &mockRiotAPI{
		summonerErr:  NewSyncError(ErrCodeUpstream, "upstream returned 503", nil),
		leagueErr:    NewSyncError(ErrCodeUpstream, "upstream returned 503", nil),
		masteriesErr: NewSyncError(ErrCodeUpstream, "upstream returned 503", nil),
		matchIDsErr:  NewSyncError(ErrCodeUpstream, "upstream returned 503", nil),
	}
	coordinator := coordinatorFixture(riot, store, &mockCooldownGate{}, &mockInvalidator{})

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if err != nil {
		t.Fatalf("Expected report, got %v", err)
	}
	if report.Status != SyncStatusFailed {
		t.Errorf("Expected failed, got %s", report.Status)
	}
}

func TestCoordinatorInvalidatesCachesOnPartialFailure(t *testing.T) {
	store := newMockStore()
	riot := healthyRiot()
	riot.matchIDsErr = NewSyncError(ErrCodeUpstream, "upstream returned 503", nil)
	caches := &mockInvalidator{}
	coordinator := coordinatorFixture(riot, store, &mockCooldownGate{}, caches)

	coordinator.Sync(context.Background(), "test-puuid")

	if len(caches.patterns) != 1 {
		t.Errorf("Invalidation must run even on partial failure, got %v", caches.patterns)
	}
}

func TestCoordinatorPublishesCompletionEvent(t *testing.T) {
	store := newMockStore()
	publisher := &mockPublisher{}
	coordinator := coordinatorFixture(healthyRiot(), store, &mockCooldownGate{}, &mockInvalidator{})
	coordinator.SetPublisher(publisher)

	coordinator.Sync(context.Background(), "test-puuid")

	if len(publisher.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.PUUID != "test-puuid" || event.Region != "BR1" {
		t.Errorf("Unexpected event %+v", event)
	}
	if event.Status != SyncStatusSucceeded {
		t.Errorf("Expected succeeded status, got %s", event.Status)
	}
	if event.NewMatches != 1 {
		t.Errorf("Expected 1 new match in event, got %d", event.NewMatches)
	}
}

func TestCoordinatorPublishFailureDoesNotFailSync(t *testing.T) {
	store := newMockStore()
	publisher := &mockPublisher{err: errors.New("nats disconnected")}
	coordinator := coordinatorFixture(healthyRiot(), store, &mockCooldownGate{}, &mockInvalidator{})
	coordinator.SetPublisher(publisher)

	report, err := coordinator.Sync(context.Background(), "test-puuid")
	if err != nil {
		t.Fatalf("Publish failure must not fail the sync, got %v", err)
	}
	if report.Status != SyncStatusSucceeded {
		t.Errorf("Expected succeeded, got %s", report.Status)
	}
}
