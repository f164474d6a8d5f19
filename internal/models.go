package internal

import "time"

const (
	QueueSoloDuo = "RANKED_SOLO_5x5"
	QueueFlex    = "RANKED_FLEX_SR"

	TierUnranked = "UNRANKED"
)

// TrackedQueues are the queue types that always get a live standing row,
// unranked sentinel included.
var TrackedQueues = []string{QueueSoloDuo, QueueFlex}

type PlayerAccount struct {
	PUUID         string    `json:"puuid"`
	Region        string    `json:"region"`
	GameName      string    `json:"gameName"`
	TagLine       string    `json:"tagLine"`
	SummonerLevel int       `json:"summonerLevel"`
	ProfileIconID int       `json:"profileIconId"`
	LastUpdated   time.Time `json:"lastUpdated"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RankedStanding is the live cache row: one per (puuid, queue), mutated in
// place on every refresh. LastUpdated drives the TTL check.
type RankedStanding struct {
	PUUID        string    `json:"puuid"`
	QueueType    string    `json:"queueType"`
	Tier         string    `json:"tier"`
	Division     *string   `json:"division"`
	LeaguePoints int       `json:"leaguePoints"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

func UnrankedStanding(puuid, queue string) RankedStanding {
	return RankedStanding{
		PUUID:     puuid,
		QueueType: queue,
		Tier:      TierUnranked,
	}
}

// RankSnapshot freezes a participant's standing at match-ingestion time.
// Append-only: rows are never updated after the first write.
type RankSnapshot struct {
	MatchID      string    `json:"matchId"`
	PUUID        string    `json:"puuid"`
	QueueType    string    `json:"queueType"`
	Tier         string    `json:"tier"`
	Division     *string   `json:"division"`
	LeaguePoints int       `json:"leaguePoints"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type MatchRecord struct {
	MatchID      string             `json:"matchId"`
	Region       string             `json:"region"`
	QueueID      int                `json:"queueId"`
	QueueType    string             `json:"queueType"`
	GameCreation time.Time          `json:"gameCreation"`
	GameDuration int64              `json:"gameDuration"`
	Participants []MatchParticipant `json:"participants"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type MatchParticipant struct {
	MatchID      string `json:"matchId"`
	PUUID        string `json:"puuid"`
	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName"`
	Kills        int    `json:"kills"`
	Deaths       int    `json:"deaths"`
	Assists      int    `json:"assists"`
	DamageDealt  int    `json:"damageDealt"`
	GoldEarned   int    `json:"goldEarned"`
	VisionScore  int    `json:"visionScore"`
	Win          bool   `json:"win"`
}

type ChampionMasteryEntry struct {
	PUUID         string    `json:"puuid"`
	ChampionID    int       `json:"championId"`
	ChampionLevel int       `json:"championLevel"`
	ChampionPoints int      `json:"championPoints"`
	LastPlayTime  time.Time `json:"lastPlayTime"`
	RankPosition  int       `json:"rankPosition"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SyncOutcome is transient; it is returned and logged, never persisted.
type SyncOutcome struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	NewMatches   int    `json:"newMatches,omitempty"`
	TotalMatches int    `json:"totalMatches,omitempty"`
}

type SyncStatus string

const (
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusPartial   SyncStatus = "partial"
	SyncStatusFailed    SyncStatus = "failed"
)

type SyncReport struct {
	SyncID      string      `json:"syncId"`
	PUUID       string      `json:"puuid"`
	Status      SyncStatus  `json:"status"`
	AccountSync SyncOutcome `json:"accountSync"`
	MatchesSync SyncOutcome `json:"matchesSync"`
}

func combinedStatus(account, matches SyncOutcome) SyncStatus {
	switch {
	case account.Success && matches.Success:
		return SyncStatusSucceeded
	case account.Success || matches.Success:
		return SyncStatusPartial
	default:
		return SyncStatusFailed
	}
}

type SyncTask struct {
	PUUID  string `json:"puuid"`
	Region string `json:"region"`
}

type SyncCompletedEvent struct {
	PUUID      string     `json:"puuid"`
	Region     string     `json:"region"`
	Status     SyncStatus `json:"status"`
	NewMatches int        `json:"newMatches"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// Riot API payloads. The client decodes these; domain mapping happens in
// the sync services.

type SummonerDTO struct {
	ID            string `json:"id"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int    `json:"summonerLevel"`
}

type LeagueEntryDTO struct {
	LeagueID     string `json:"leagueId"`
	PUUID        string `json:"puuid"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
}

type AccountDTO struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type MatchDTO struct {
	Metadata MatchMetadataDTO `json:"metadata"`
	Info     MatchInfoDTO     `json:"info"`
}

type MatchMetadataDTO struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type MatchInfoDTO struct {
	GameCreation int64                `json:"gameCreation"`
	GameDuration int64                `json:"gameDuration"`
	QueueID      int                  `json:"queueId"`
	PlatformID   string               `json:"platformId"`
	Participants []MatchParticipantDTO `json:"participants"`
}

type MatchParticipantDTO struct {
	PUUID                       string `json:"puuid"`
	ChampionID                  int    `json:"championId"`
	ChampionName                string `json:"championName"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	GoldEarned                  int    `json:"goldEarned"`
	VisionScore                 int    `json:"visionScore"`
	Win                         bool   `json:"win"`
}

type MasteryDTO struct {
	PUUID          string `json:"puuid"`
	ChampionID     int    `json:"championId"`
	ChampionLevel  int    `json:"championLevel"`
	ChampionPoints int    `json:"championPoints"`
	LastPlayTime   int64  `json:"lastPlayTime"`
}

// QueueTypeFromID maps the numeric match-v5 queue id onto the league-v4
// queue type string used by the rank tables.
func QueueTypeFromID(queueID int) string {
	switch queueID {
	case 420:
		return QueueSoloDuo
	case 440:
		return QueueFlex
	default:
		return ""
	}
}

// SnapshotQueueFor picks which standing gets frozen next to a match. Solo
// queue is the reference rank for non-ranked queues.
func SnapshotQueueFor(queueID int) string {
	if q := QueueTypeFromID(queueID); q != "" {
		return q
	}
	return QueueSoloDuo
}
