package internal

import (
	"context"
	"strings"
	"time"
)

// How many mastery entries each refresh pulls and stores. Reads default
// to fewer; storing a slightly wider set keeps small count changes from
// forcing upstream calls.
const masteryFetchCount = 10

// AccountSyncer refreshes account-level data: profile fields and ranked
// standing in one pass, champion mastery on its own shorter TTL.
type AccountSyncer struct {
	riot       RiotAPI
	store      Store
	ranks      *RankCache
	logger     *Logger
	region     string
	masteryTTL time.Duration
}

func NewAccountSyncer(riot RiotAPI, store Store, ranks *RankCache, logger *Logger, region string, masteryTTL time.Duration) *AccountSyncer {
	return &AccountSyncer{
		riot:       riot,
		store:      store,
		ranks:      ranks,
		logger:     logger,
		region:     region,
		masteryTTL: masteryTTL,
	}
}

// Sync refreshes profile, rank and mastery. The three portions are
// independent: whichever succeeds is persisted even when another fails,
// and the outcome names every failing portion.
func (as *AccountSyncer) Sync(ctx context.Context, puuid string) SyncOutcome {
	var failures []string

	if err := as.syncProfile(ctx, puuid); err != nil {
		failures = append(failures, "profile: "+err.Error())
	}

	if _, err := as.ranks.Refresh(ctx, puuid); err != nil {
		failures = append(failures, "rank: "+err.Error())
	}

	if err := as.refreshMastery(ctx, puuid); err != nil {
		failures = append(failures, "mastery: "+err.Error())
	}

	if len(failures) > 0 {
		as.logger.Warn("account_sync_partial").
			Component("account_syncer").
			Operation("sync").
			Player(puuid, as.region).
			Meta("failures", failures).
			Log()
		return SyncOutcome{Success: false, Error: strings.Join(failures, "; ")}
	}

	as.logger.Info("account_sync_completed").
		Component("account_syncer").
		Operation("sync").
		Player(puuid, as.region).
		Log()
	return SyncOutcome{Success: true}
}

func (as *AccountSyncer) syncProfile(ctx context.Context, puuid string) error {
	summoner, err := as.riot.GetSummonerByPUUID(ctx, puuid)
	if err != nil {
		return err
	}

	account := &PlayerAccount{
		PUUID:         puuid,
		Region:        as.region,
		SummonerLevel: summoner.SummonerLevel,
		ProfileIconID: summoner.ProfileIconID,
	}

	// Riot ID lives on the regional account endpoint. Losing the display
	// name is not worth failing the profile sync over.
	if riotAccount, err := as.riot.GetAccountByPUUID(ctx, puuid); err == nil {
		account.GameName = riotAccount.GameName
		account.TagLine = riotAccount.TagLine
	} else if existing, lookupErr := as.store.GetPlayerAccount(ctx, puuid); lookupErr == nil && existing != nil {
		account.GameName = existing.GameName
		account.TagLine = existing.TagLine
	}

	return as.store.UpsertPlayerAccount(ctx, account)
}

func (as *AccountSyncer) refreshMastery(ctx context.Context, puuid string) error {
	_, err := as.refreshMasteryIfStale(ctx, puuid)
	return err
}

// GetTopMastery serves reads: cached entries within TTL come straight
// from the store, anything else triggers a refresh first.
func (as *AccountSyncer) GetTopMastery(ctx context.Context, puuid string, count int) ([]ChampionMasteryEntry, error) {
	if count <= 0 || count > masteryFetchCount {
		count = masteryFetchCount
	}

	entries, err := as.refreshMasteryIfStale(ctx, puuid)
	if err != nil {
		return nil, err
	}
	if len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// refreshMasteryIfStale implements the mastery TTL cache. The new top-N
// set replaces the old one atomically; the write is awaited before
// returning so a read immediately after a sync sees the fresh data.
func (as *AccountSyncer) refreshMasteryIfStale(ctx context.Context, puuid string) ([]ChampionMasteryEntry, error) {
	cached, err := as.store.GetTopMasteries(ctx, puuid, masteryFetchCount)
	if err != nil {
		return nil, err
	}

	if len(cached) > 0 && time.Since(oldestMasteryUpdate(cached)) < as.masteryTTL {
		return cached, nil
	}

	dtos, err := as.riot.GetTopMasteries(ctx, puuid, masteryFetchCount)
	if err != nil {
		if len(cached) > 0 && ErrorCodeOf(err) != ErrCodePersistence {
			as.logger.Warn("mastery_refresh_failed_serving_stale").
				Component("account_syncer").
				Operation("refresh_mastery").
				Player(puuid, as.region).
				Err(err).
				Log()
			return cached, nil
		}
		return nil, err
	}

	now := time.Now()
	entries := make([]ChampionMasteryEntry, 0, len(dtos))
	for i, dto := range dtos {
		entries = append(entries, ChampionMasteryEntry{
			PUUID:          puuid,
			ChampionID:     dto.ChampionID,
			ChampionLevel:  dto.ChampionLevel,
			ChampionPoints: dto.ChampionPoints,
			LastPlayTime:   time.UnixMilli(dto.LastPlayTime),
			RankPosition:   i + 1,
			LastUpdated:    now,
		})
	}

	if err := as.store.ReplaceTopMasteries(ctx, puuid, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func oldestMasteryUpdate(entries []ChampionMasteryEntry) time.Time {
	oldest := entries[0].LastUpdated
	for _, e := range entries[1:] {
		if e.LastUpdated.Before(oldest) {
			oldest = e.LastUpdated
		}
	}
	return oldest
}
