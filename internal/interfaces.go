package internal

import (
	"context"
	"time"
)

type RiotAPI interface {
	GetSummonerByPUUID(ctx context.Context, puuid string) (*SummonerDTO, error)
	GetAccountByPUUID(ctx context.Context, puuid string) (*AccountDTO, error)
	GetLeagueEntries(ctx context.Context, puuid string) ([]LeagueEntryDTO, error)
	GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*MatchDTO, error)
	GetTopMasteries(ctx context.Context, puuid string, count int) ([]MasteryDTO, error)
}

// Store is the persistent mirror. Absent rows come back as (nil, nil);
// every failure is a persistence_failure SyncError.
type Store interface {
	GetPlayerAccount(ctx context.Context, puuid string) (*PlayerAccount, error)
	UpsertPlayerAccount(ctx context.Context, account *PlayerAccount) error

	GetRankedStanding(ctx context.Context, puuid, queue string) (*RankedStanding, error)
	GetRankedStandings(ctx context.Context, puuid string) ([]RankedStanding, error)
	UpsertRankedStanding(ctx context.Context, standing *RankedStanding) error

	InsertRankSnapshot(ctx context.Context, snapshot *RankSnapshot) error

	FilterKnownMatchIDs(ctx context.Context, matchIDs []string) (map[string]struct{}, error)
	InsertMatch(ctx context.Context, match *MatchRecord) (bool, error)
	GetMatchHistory(ctx context.Context, puuid string, limit, offset int) ([]MatchRecord, error)

	GetTopMasteries(ctx context.Context, puuid string, count int) ([]ChampionMasteryEntry, error)
	ReplaceTopMasteries(ctx context.Context, puuid string, entries []ChampionMasteryEntry) error

	ListStaleAccounts(ctx context.Context, olderThan time.Duration, limit int) ([]PlayerAccount, error)
}

// CooldownGate hands out the per-player sync cooldown. Acquire is atomic
// read-and-set: exactly one caller wins an idle window.
type CooldownGate interface {
	AcquireCooldown(ctx context.Context, puuid string, window time.Duration) (bool, time.Duration, error)
}

type SyncEventPublisher interface {
	PublishSyncCompleted(event SyncCompletedEvent) error
}

// ReadCacheInvalidator clears the response caches the presentation layer
// reads through, once a sync has changed what they would serve.
type ReadCacheInvalidator interface {
	DeletePattern(ctx context.Context, pattern string) error
}
