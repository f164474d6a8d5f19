package internal

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const detailFetchConcurrency = 4

// MatchHistorySyncer brings the stored match list for a player up to date,
// fetching at most the matches not yet persisted. The sync window is a
// hard cap: matches older than the most recent `limit` ids are never
// backfilled.
type MatchHistorySyncer struct {
	riot      RiotAPI
	store     Store
	snapshots *SnapshotRecorder
	logger    *Logger
	region    string
	limit     int
}

func NewMatchHistorySyncer(riot RiotAPI, store Store, snapshots *SnapshotRecorder, logger *Logger, region string, limit int) *MatchHistorySyncer {
	return &MatchHistorySyncer{
		riot:      riot,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
		region:    region,
		limit:     limit,
	}
}

// Sync is idempotent: already-stored matches are always skipped, and a
// re-run after a partial failure re-attempts only the ids still missing.
// Only a failure to enumerate the list is fatal; individual detail
// fetches fail soft and are reported as skipped.
func (s *MatchHistorySyncer) Sync(ctx context.Context, puuid string) SyncOutcome {
	matchIDs, err := s.riot.GetMatchIDs(ctx, puuid, s.limit)
	if err != nil {
		s.logger.Error("match_list_fetch_failed").
			Component("match_syncer").
			Operation("sync").
			Player(puuid, s.region).
			Err(err).
			Log()
		return SyncOutcome{Success: false, Error: err.Error()}
	}

	known, err := s.store.FilterKnownMatchIDs(ctx, matchIDs)
	if err != nil {
		return SyncOutcome{Success: false, Error: err.Error()}
	}

	var unseen []string
	for _, id := range matchIDs {
		if _, ok := known[id]; !ok {
			unseen = append(unseen, id)
		}
	}

	var mu sync.Mutex
	ingested := 0
	skipped := 0

	// Unseen matches are independently keyed and idempotent, so detail
	// fetches can run concurrently. Goroutines always return nil: one
	// corrupt match must not abort the batch.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchConcurrency)
	for _, matchID := range unseen {
		matchID := matchID
		g.Go(func() error {
			if err := s.ingestMatch(gctx, matchID); err != nil {
				s.logger.Warn("match_ingest_skipped").
					Component("match_syncer").
					Operation("ingest_match").
					Player(puuid, s.region).
					Match(matchID).
					Err(err).
					Log()
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			ingested++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	s.logger.Info("match_sync_completed").
		Component("match_syncer").
		Operation("sync").
		Player(puuid, s.region).
		Meta("total_matches", len(matchIDs)).
		Meta("already_known", len(known)).
		Meta("new_matches", ingested).
		Meta("skipped", skipped).
		Log()

	return SyncOutcome{
		Success:      true,
		NewMatches:   ingested,
		TotalMatches: len(matchIDs),
	}
}

func (s *MatchHistorySyncer) ingestMatch(ctx context.Context, matchID string) error {
	dto, err := s.riot.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	match := mapMatch(dto, s.region)

	inserted, err := s.store.InsertMatch(ctx, match)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost a race with a concurrent ingestion attempt. The winner
		// records the snapshots.
		return nil
	}

	s.snapshots.RecordParticipants(ctx, match)
	return nil
}

func mapMatch(dto *MatchDTO, region string) *MatchRecord {
	match := &MatchRecord{
		MatchID:      dto.Metadata.MatchID,
		Region:       region,
		QueueID:      dto.Info.QueueID,
		QueueType:    QueueTypeFromID(dto.Info.QueueID),
		GameCreation: time.UnixMilli(dto.Info.GameCreation),
		GameDuration: dto.Info.GameDuration,
	}
	if dto.Info.PlatformID != "" {
		match.Region = dto.Info.PlatformID
	}

	for _, p := range dto.Info.Participants {
		match.Participants = append(match.Participants, MatchParticipant{
			MatchID:      dto.Metadata.MatchID,
			PUUID:        p.PUUID,
			ChampionID:   p.ChampionID,
			ChampionName: p.ChampionName,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			Assists:      p.Assists,
			DamageDealt:  p.TotalDamageDealtToChampions,
			GoldEarned:   p.GoldEarned,
			VisionScore:  p.VisionScore,
			Win:          p.Win,
		})
	}
	return match
}
