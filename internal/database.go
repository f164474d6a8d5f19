package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type DatabaseManager struct {
	DB     *sql.DB
	logger *Logger
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS player_accounts (
		puuid           TEXT PRIMARY KEY,
		region          TEXT NOT NULL,
		game_name       TEXT NOT NULL DEFAULT '',
		tag_line        TEXT NOT NULL DEFAULT '',
		summoner_level  INT NOT NULL DEFAULT 0,
		profile_icon_id INT NOT NULL DEFAULT 0,
		last_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ranked_standings (
		puuid         TEXT NOT NULL,
		queue_type    TEXT NOT NULL,
		tier          TEXT NOT NULL,
		division      TEXT,
		league_points INT NOT NULL DEFAULT 0,
		wins          INT NOT NULL DEFAULT 0,
		losses        INT NOT NULL DEFAULT 0,
		last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (puuid, queue_type)
	)`,
	`CREATE TABLE IF NOT EXISTS rank_snapshots (
		match_id      TEXT NOT NULL,
		puuid         TEXT NOT NULL,
		queue_type    TEXT NOT NULL,
		tier          TEXT NOT NULL,
		division      TEXT,
		league_points INT NOT NULL DEFAULT 0,
		wins          INT NOT NULL DEFAULT 0,
		losses        INT NOT NULL DEFAULT 0,
		recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (match_id, puuid, queue_type)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id      TEXT PRIMARY KEY,
		region        TEXT NOT NULL,
		queue_id      INT NOT NULL,
		queue_type    TEXT NOT NULL DEFAULT '',
		game_creation TIMESTAMPTZ NOT NULL,
		game_duration BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_participants (
		match_id      TEXT NOT NULL REFERENCES matches(match_id),
		puuid         TEXT NOT NULL,
		champion_id   INT NOT NULL,
		champion_name TEXT NOT NULL DEFAULT '',
		kills         INT NOT NULL DEFAULT 0,
		deaths        INT NOT NULL DEFAULT 0,
		assists       INT NOT NULL DEFAULT 0,
		damage_dealt  INT NOT NULL DEFAULT 0,
		gold_earned   INT NOT NULL DEFAULT 0,
		vision_score  INT NOT NULL DEFAULT 0,
		win           BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (match_id, puuid)
	)`,
	`CREATE TABLE IF NOT EXISTS champion_masteries (
		puuid           TEXT NOT NULL,
		champion_id     INT NOT NULL,
		champion_level  INT NOT NULL DEFAULT 0,
		champion_points INT NOT NULL DEFAULT 0,
		last_play_time  TIMESTAMPTZ,
		rank_position   INT NOT NULL DEFAULT 0,
		last_updated    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (puuid, champion_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_participants_puuid
		ON match_participants (puuid)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_game_creation
		ON matches (game_creation DESC)`,
}

func NewDatabaseManager(cfg *Config, logger *Logger) (*DatabaseManager, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDb,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	logger.Info("database_connected").
		Component("database").
		Operation("connect").
		Log()

	return &DatabaseManager{DB: db, logger: logger}, nil
}

func (dm *DatabaseManager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := dm.DB.ExecContext(ctx, stmt); err != nil {
			return NewSyncError(ErrCodePersistence, "schema bootstrap failed", err)
		}
	}
	return nil
}

func (dm *DatabaseManager) GetPlayerAccount(ctx context.Context, puuid string) (*PlayerAccount, error) {
	var acc PlayerAccount
	err := dm.DB.QueryRowContext(ctx, `
		SELECT puuid, region, game_name, tag_line, summoner_level, profile_icon_id, last_updated, created_at
		FROM player_accounts WHERE puuid = $1`, puuid).Scan(
		&acc.PUUID, &acc.Region, &acc.GameName, &acc.TagLine,
		&acc.SummonerLevel, &acc.ProfileIconID, &acc.LastUpdated, &acc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read player account", err)
	}
	return &acc, nil
}

func (dm *DatabaseManager) UpsertPlayerAccount(ctx context.Context, account *PlayerAccount) error {
	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO player_accounts (puuid, region, game_name, tag_line, summoner_level, profile_icon_id, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (puuid) DO UPDATE SET
			region = $2,
			game_name = $3,
			tag_line = $4,
			summoner_level = $5,
			profile_icon_id = $6,
			last_updated = NOW()`,
		account.PUUID, account.Region, account.GameName, account.TagLine,
		account.SummonerLevel, account.ProfileIconID,
	)
	if err != nil {
		return NewSyncError(ErrCodePersistence, "failed to upsert player account", err)
	}
	return nil
}

func (dm *DatabaseManager) GetRankedStanding(ctx context.Context, puuid, queue string) (*RankedStanding, error) {
	var s RankedStanding
	var division sql.NullString
	err := dm.DB.QueryRowContext(ctx, `
		SELECT puuid, queue_type, tier, division, league_points, wins, losses, last_updated
		FROM ranked_standings WHERE puuid = $1 AND queue_type = $2`, puuid, queue).Scan(
		&s.PUUID, &s.QueueType, &s.Tier, &division,
		&s.LeaguePoints, &s.Wins, &s.Losses, &s.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read ranked standing", err)
	}
	if division.Valid {
		s.Division = &division.String
	}
	return &s, nil
}

func (dm *DatabaseManager) GetRankedStandings(ctx context.Context, puuid string) ([]RankedStanding, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT puuid, queue_type, tier, division, league_points, wins, losses, last_updated
		FROM ranked_standings WHERE puuid = $1 ORDER BY queue_type`, puuid)
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read ranked standings", err)
	}
	defer rows.Close()

	var standings []RankedStanding
	for rows.Next() {
		var s RankedStanding
		var division sql.NullString
		if err := rows.Scan(&s.PUUID, &s.QueueType, &s.Tier, &division,
			&s.LeaguePoints, &s.Wins, &s.Losses, &s.LastUpdated); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan ranked standing", err)
		}
		if division.Valid {
			s.Division = &division.String
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate ranked standings", err)
	}
	return standings, nil
}

func (dm *DatabaseManager) UpsertRankedStanding(ctx context.Context, standing *RankedStanding) error {
	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO ranked_standings (puuid, queue_type, tier, division, league_points, wins, losses, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (puuid, queue_type) DO UPDATE SET
			tier = $3,
			division = $4,
			league_points = $5,
			wins = $6,
			losses = $7,
			last_updated = NOW()`,
		standing.PUUID, standing.QueueType, standing.Tier, nullableString(standing.Division),
		standing.LeaguePoints, standing.Wins, standing.Losses,
	)
	if err != nil {
		return NewSyncError(ErrCodePersistence, "failed to upsert ranked standing", err)
	}
	return nil
}

// InsertRankSnapshot is write-once: a conflicting key means the snapshot
// already exists and the write is a no-op, which keeps match ingestion
// idempotent under retry.
func (dm *DatabaseManager) InsertRankSnapshot(ctx context.Context, snapshot *RankSnapshot) error {
	_, err := dm.DB.ExecContext(ctx, `
		INSERT INTO rank_snapshots (match_id, puuid, queue_type, tier, division, league_points, wins, losses, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (match_id, puuid, queue_type) DO NOTHING`,
		snapshot.MatchID, snapshot.PUUID, snapshot.QueueType, snapshot.Tier,
		nullableString(snapshot.Division), snapshot.LeaguePoints, snapshot.Wins, snapshot.Losses,
	)
	if err != nil {
		return NewSyncError(ErrCodePersistence, "failed to insert rank snapshot", err)
	}
	return nil
}

func (dm *DatabaseManager) FilterKnownMatchIDs(ctx context.Context, matchIDs []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(matchIDs) == 0 {
		return known, nil
	}

	rows, err := dm.DB.QueryContext(ctx,
		`SELECT match_id FROM matches WHERE match_id = ANY($1)`, pq.Array(matchIDs))
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to check stored matches", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan match id", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate match ids", err)
	}
	return known, nil
}

// InsertMatch persists a match and all its participants in one
// transaction. Returns false when the match id was already stored; the
// existing rows are left untouched.
func (dm *DatabaseManager) InsertMatch(ctx context.Context, match *MatchRecord) (bool, error) {
	tx, err := dm.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, NewSyncError(ErrCodePersistence, "failed to begin match transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO matches (match_id, region, queue_id, queue_type, game_creation, game_duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO NOTHING`,
		match.MatchID, match.Region, match.QueueID, match.QueueType,
		match.GameCreation, match.GameDuration,
	)
	if err != nil {
		return false, NewSyncError(ErrCodePersistence, "failed to insert match", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, NewSyncError(ErrCodePersistence, "failed to read insert result", err)
	}
	if inserted == 0 {
		return false, nil
	}

	for _, p := range match.Participants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_participants (match_id, puuid, champion_id, champion_name, kills, deaths, assists, damage_dealt, gold_earned, vision_score, win)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (match_id, puuid) DO NOTHING`,
			match.MatchID, p.PUUID, p.ChampionID, p.ChampionName,
			p.Kills, p.Deaths, p.Assists, p.DamageDealt,
			p.GoldEarned, p.VisionScore, p.Win,
		)
		if err != nil {
			return false, NewSyncError(ErrCodePersistence, "failed to insert match participant", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, NewSyncError(ErrCodePersistence, "failed to commit match", err)
	}
	return true, nil
}

func (dm *DatabaseManager) GetMatchHistory(ctx context.Context, puuid string, limit, offset int) ([]MatchRecord, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT m.match_id, m.region, m.queue_id, m.queue_type, m.game_creation, m.game_duration, m.created_at
		FROM matches m
		JOIN match_participants mp ON mp.match_id = m.match_id
		WHERE mp.puuid = $1
		ORDER BY m.game_creation DESC
		LIMIT $2 OFFSET $3`, puuid, limit, offset)
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read match history", err)
	}
	defer rows.Close()

	var matches []MatchRecord
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.MatchID, &m.Region, &m.QueueID, &m.QueueType,
			&m.GameCreation, &m.GameDuration, &m.CreatedAt); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan match", err)
		}
		index[m.MatchID] = len(matches)
		ids = append(ids, m.MatchID)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate matches", err)
	}
	if len(matches) == 0 {
		return matches, nil
	}

	prows, err := dm.DB.QueryContext(ctx, `
		SELECT match_id, puuid, champion_id, champion_name, kills, deaths, assists, damage_dealt, gold_earned, vision_score, win
		FROM match_participants WHERE match_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read match participants", err)
	}
	defer prows.Close()

	for prows.Next() {
		var p MatchParticipant
		if err := prows.Scan(&p.MatchID, &p.PUUID, &p.ChampionID, &p.ChampionName,
			&p.Kills, &p.Deaths, &p.Assists, &p.DamageDealt,
			&p.GoldEarned, &p.VisionScore, &p.Win); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan participant", err)
		}
		if i, ok := index[p.MatchID]; ok {
			matches[i].Participants = append(matches[i].Participants, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate participants", err)
	}
	return matches, nil
}

func (dm *DatabaseManager) GetTopMasteries(ctx context.Context, puuid string, count int) ([]ChampionMasteryEntry, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT puuid, champion_id, champion_level, champion_points, last_play_time, rank_position, last_updated
		FROM champion_masteries
		WHERE puuid = $1
		ORDER BY champion_points DESC
		LIMIT $2`, puuid, count)
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to read masteries", err)
	}
	defer rows.Close()

	var entries []ChampionMasteryEntry
	for rows.Next() {
		var e ChampionMasteryEntry
		var lastPlay sql.NullTime
		if err := rows.Scan(&e.PUUID, &e.ChampionID, &e.ChampionLevel,
			&e.ChampionPoints, &lastPlay, &e.RankPosition, &e.LastUpdated); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan mastery entry", err)
		}
		if lastPlay.Valid {
			e.LastPlayTime = lastPlay.Time
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate masteries", err)
	}
	return entries, nil
}

// ReplaceTopMasteries swaps in a fresh top-N set in one transaction.
// Rows that fell out of the new top-N are deleted so rank_position stays
// dense for readers.
func (dm *DatabaseManager) ReplaceTopMasteries(ctx context.Context, puuid string, entries []ChampionMasteryEntry) error {
	tx, err := dm.DB.BeginTx(ctx, nil)
	if err != nil {
		return NewSyncError(ErrCodePersistence, "failed to begin mastery transaction", err)
	}
	defer tx.Rollback()

	keep := make([]int64, 0, len(entries))
	for _, e := range entries {
		keep = append(keep, int64(e.ChampionID))
		_, err := tx.ExecContext(ctx, `
			INSERT INTO champion_masteries (puuid, champion_id, champion_level, champion_points, last_play_time, rank_position, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (puuid, champion_id) DO UPDATE SET
				champion_level = $3,
				champion_points = $4,
				last_play_time = $5,
				rank_position = $6,
				last_updated = NOW()`,
			e.PUUID, e.ChampionID, e.ChampionLevel, e.ChampionPoints,
			nullableTime(e.LastPlayTime), e.RankPosition,
		)
		if err != nil {
			return NewSyncError(ErrCodePersistence, "failed to upsert mastery entry", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM champion_masteries WHERE puuid = $1 AND NOT (champion_id = ANY($2))`,
		puuid, pq.Array(keep))
	if err != nil {
		return NewSyncError(ErrCodePersistence, "failed to prune stale masteries", err)
	}

	if err := tx.Commit(); err != nil {
		return NewSyncError(ErrCodePersistence, "failed to commit masteries", err)
	}
	return nil
}

func (dm *DatabaseManager) ListStaleAccounts(ctx context.Context, olderThan time.Duration, limit int) ([]PlayerAccount, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT puuid, region, game_name, tag_line, summoner_level, profile_icon_id, last_updated, created_at
		FROM player_accounts
		WHERE last_updated < $1
		ORDER BY last_updated ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to list stale accounts", err)
	}
	defer rows.Close()

	var accounts []PlayerAccount
	for rows.Next() {
		var acc PlayerAccount
		if err := rows.Scan(&acc.PUUID, &acc.Region, &acc.GameName, &acc.TagLine,
			&acc.SummonerLevel, &acc.ProfileIconID, &acc.LastUpdated, &acc.CreatedAt); err != nil {
			return nil, NewSyncError(ErrCodePersistence, "failed to scan stale account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSyncError(ErrCodePersistence, "failed to iterate stale accounts", err)
	}
	return accounts, nil
}

func (dm *DatabaseManager) Close() {
	if dm.DB != nil {
		dm.DB.Close()
	}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
