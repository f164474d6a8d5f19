package internal

import (
	"context"
	"time"
)

// RankCache answers "what is this player's ranked standing right now"
// while bounding upstream calls to once per player per TTL. Live rows sit
// in the persistent store; Redis only carries the read-side response
// cache, so a restart never loses freshness bookkeeping.
type RankCache struct {
	store   Store
	riot    RiotAPI
	logger  *Logger
	metrics *MetricsCollector
	ttl     time.Duration
}

func NewRankCache(store Store, riot RiotAPI, logger *Logger, ttl time.Duration) *RankCache {
	return &RankCache{
		store:  store,
		riot:   riot,
		logger: logger,
		ttl:    ttl,
	}
}

func (rc *RankCache) SetMetrics(metrics *MetricsCollector) {
	rc.metrics = metrics
}

// GetOrRefresh returns the live standing for every tracked queue. Fresh
// rows are served as-is; otherwise one upstream call refreshes all queues
// together. If the refresh fails and stale rows exist, the stale values
// are returned rather than the error.
func (rc *RankCache) GetOrRefresh(ctx context.Context, puuid string) (map[string]RankedStanding, error) {
	cached, err := rc.store.GetRankedStandings(ctx, puuid)
	if err != nil {
		return nil, err
	}

	byQueue := make(map[string]RankedStanding, len(cached))
	for _, s := range cached {
		byQueue[s.QueueType] = s
	}

	if rc.isFresh(byQueue) {
		if rc.metrics != nil {
			rc.metrics.RecordCacheHit("rank:" + puuid)
		}
		return byQueue, nil
	}

	if rc.metrics != nil {
		rc.metrics.RecordCacheMiss("rank:" + puuid)
	}

	refreshed, err := rc.Refresh(ctx, puuid)
	if err != nil {
		// Stale-but-available beats unavailable, but persistence failures
		// and empty caches still surface.
		if len(byQueue) > 0 && ErrorCodeOf(err) != ErrCodePersistence {
			rc.logger.Warn("rank_refresh_failed_serving_stale").
				Component("rank_cache").
				Operation("get_or_refresh").
				Player(puuid, "").
				Err(err).
				Log()
			return byQueue, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// GetOrRefreshQueue narrows GetOrRefresh to a single queue; an unranked
// sentinel is returned when the player has no entry for it.
func (rc *RankCache) GetOrRefreshQueue(ctx context.Context, puuid, queue string) (RankedStanding, error) {
	standings, err := rc.GetOrRefresh(ctx, puuid)
	if err != nil {
		return RankedStanding{}, err
	}
	if s, ok := standings[queue]; ok {
		return s, nil
	}
	return UnrankedStanding(puuid, queue), nil
}

// Refresh bypasses the TTL: one upstream call, then an upsert per tracked
// queue. Queues with no upstream entry get the unranked sentinel, which is
// cached like any other value and ages out normally.
func (rc *RankCache) Refresh(ctx context.Context, puuid string) (map[string]RankedStanding, error) {
	entries, err := rc.riot.GetLeagueEntries(ctx, puuid)
	if err != nil {
		return nil, err
	}

	entryByQueue := make(map[string]LeagueEntryDTO, len(entries))
	for _, e := range entries {
		entryByQueue[e.QueueType] = e
	}

	now := time.Now()
	result := make(map[string]RankedStanding, len(TrackedQueues))
	for _, queue := range TrackedQueues {
		standing := UnrankedStanding(puuid, queue)
		if e, ok := entryByQueue[queue]; ok {
			division := e.Rank
			standing = RankedStanding{
				PUUID:        puuid,
				QueueType:    queue,
				Tier:         e.Tier,
				Division:     &division,
				LeaguePoints: e.LeaguePoints,
				Wins:         e.Wins,
				Losses:       e.Losses,
			}
		}
		standing.LastUpdated = now

		if err := rc.store.UpsertRankedStanding(ctx, &standing); err != nil {
			return nil, err
		}
		result[queue] = standing
	}

	rc.logger.Debug("rank_refreshed").
		Component("rank_cache").
		Operation("refresh").
		Player(puuid, "").
		Meta("queues", len(result)).
		Log()

	return result, nil
}

// isFresh requires a row for every tracked queue, all within TTL. Tracked
// queues are always refreshed together, so a missing queue means the
// player predates the current queue set and needs a refresh.
func (rc *RankCache) isFresh(byQueue map[string]RankedStanding) bool {
	now := time.Now()
	for _, queue := range TrackedQueues {
		s, ok := byQueue[queue]
		if !ok {
			return false
		}
		if now.Sub(s.LastUpdated) >= rc.ttl {
			return false
		}
	}
	return true
}
