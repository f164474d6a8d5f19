package internal

import (
	"context"
	"time"
)

// SnapshotRecorder freezes each participant's ranked standing at the
// moment a match is ingested. The live rank cache mutates daily; these
// rows never do, so "rank at the time of this game" stays true forever.
type SnapshotRecorder struct {
	ranks  *RankCache
	store  Store
	logger *Logger
}

func NewSnapshotRecorder(ranks *RankCache, store Store, logger *Logger) *SnapshotRecorder {
	return &SnapshotRecorder{ranks: ranks, store: store, logger: logger}
}

// RecordParticipants writes one snapshot per participant for the match's
// queue, copying whatever the rank cache returns right now (priming the
// live cache as a side effect). A participant whose rank cannot be
// resolved is skipped and logged; the match itself is already persisted.
// Returns the number of snapshots written.
func (sr *SnapshotRecorder) RecordParticipants(ctx context.Context, match *MatchRecord) int {
	queue := SnapshotQueueFor(match.QueueID)
	recorded := 0

	for _, participant := range match.Participants {
		standing, err := sr.ranks.GetOrRefreshQueue(ctx, participant.PUUID, queue)
		if err != nil {
			sr.logger.Warn("snapshot_rank_unavailable").
				Component("snapshot_recorder").
				Operation("record_participants").
				Match(match.MatchID).
				Player(participant.PUUID, match.Region).
				Queue(queue).
				Err(err).
				Log()
			continue
		}

		snapshot := RankSnapshot{
			MatchID:      match.MatchID,
			PUUID:        participant.PUUID,
			QueueType:    queue,
			Tier:         standing.Tier,
			Division:     standing.Division,
			LeaguePoints: standing.LeaguePoints,
			Wins:         standing.Wins,
			Losses:       standing.Losses,
			RecordedAt:   time.Now(),
		}

		// Insert-if-absent: a retry that reaches an existing key is a
		// no-op, never an overwrite.
		if err := sr.store.InsertRankSnapshot(ctx, &snapshot); err != nil {
			sr.logger.Error("snapshot_write_failed").
				Component("snapshot_recorder").
				Operation("record_participants").
				Match(match.MatchID).
				Player(participant.PUUID, match.Region).
				Queue(queue).
				Err(err).
				Log()
			continue
		}
		recorded++
	}

	return recorded
}
