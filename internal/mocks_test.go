package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func createTestLogger() *Logger {
	return NewLogger(&Config{LogLevel: "error", AppEnv: "test"})
}

type mockRiotAPI struct {
	mu sync.Mutex

	summoner    *SummonerDTO
	summonerErr error

	account    *AccountDTO
	accountErr error

	leagueEntries []LeagueEntryDTO
	leagueErr     error
	leagueCalls   int

	matchIDs      []string
	matchIDsErr   error
	matchIDsCalls int

	matches    map[string]*MatchDTO
	matchErrs  map[string]error
	matchCalls int

	masteries    []MasteryDTO
	masteriesErr error
	masteryCalls int
}

func (m *mockRiotAPI) GetSummonerByPUUID(ctx context.Context, puuid string) (*SummonerDTO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summonerErr != nil {
		return nil, m.summonerErr
	}
	if m.summoner == nil {
		return &SummonerDTO{PUUID: puuid, SummonerLevel: 30, ProfileIconID: 1}, nil
	}
	return m.summoner, nil
}

func (m *mockRiotAPI) GetAccountByPUUID(ctx context.Context, puuid string) (*AccountDTO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	if m.account == nil {
		return &AccountDTO{PUUID: puuid, GameName: "Player", TagLine: "BR1"}, nil
	}
	return m.account, nil
}

func (m *mockRiotAPI) GetLeagueEntries(ctx context.Context, puuid string) ([]LeagueEntryDTO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leagueCalls++
	if m.leagueErr != nil {
		return nil, m.leagueErr
	}
	// The real endpoint only returns entries for the queried player.
	var entries []LeagueEntryDTO
	for _, e := range m.leagueEntries {
		if e.PUUID == puuid {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *mockRiotAPI) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchIDsCalls++
	if m.matchIDsErr != nil {
		return nil, m.matchIDsErr
	}
	if len(m.matchIDs) > count {
		return m.matchIDs[:count], nil
	}
	return m.matchIDs, nil
}

func (m *mockRiotAPI) GetMatch(ctx context.Context, matchID string) (*MatchDTO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchCalls++
	if err, ok := m.matchErrs[matchID]; ok {
		return nil, err
	}
	if match, ok := m.matches[matchID]; ok {
		return match, nil
	}
	return nil, NewSyncError(ErrCodeNotFound, "entity not found upstream", nil)
}

func (m *mockRiotAPI) GetTopMasteries(ctx context.Context, puuid string, count int) ([]MasteryDTO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masteryCalls++
	if m.masteriesErr != nil {
		return nil, m.masteriesErr
	}
	if len(m.masteries) > count {
		return m.masteries[:count], nil
	}
	return m.masteries, nil
}

func standingKey(puuid, queue string) string {
	return puuid + "|" + queue
}

func snapshotKey(matchID, puuid, queue string) string {
	return matchID + "|" + puuid + "|" + queue
}

type mockStore struct {
	mu sync.Mutex

	accounts   map[string]*PlayerAccount
	accountErr error

	standings          map[string]RankedStanding
	standingsErr       error
	upsertStandingErr  error
	upsertStandingSeen int

	snapshots        map[string]RankSnapshot
	snapshotErr      error
	snapshotAttempts int

	matches        map[string]*MatchRecord
	insertMatchErr error
	filterErr      error

	masteries       map[string][]ChampionMasteryEntry
	masteryReadErr  error
	masteryWriteErr error
	replaceCalls    int

	staleAccounts []PlayerAccount
}

func newMockStore() *mockStore {
	return &mockStore{
		accounts:  make(map[string]*PlayerAccount),
		standings: make(map[string]RankedStanding),
		snapshots: make(map[string]RankSnapshot),
		matches:   make(map[string]*MatchRecord),
		masteries: make(map[string][]ChampionMasteryEntry),
	}
}

func (m *mockStore) GetPlayerAccount(ctx context.Context, puuid string) (*PlayerAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	acc, ok := m.accounts[puuid]
	if !ok {
		return nil, nil
	}
	copied := *acc
	return &copied, nil
}

func (m *mockStore) UpsertPlayerAccount(ctx context.Context, account *PlayerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountErr != nil {
		return m.accountErr
	}
	copied := *account
	if copied.LastUpdated.IsZero() {
		copied.LastUpdated = time.Now()
	}
	m.accounts[account.PUUID] = &copied
	return nil
}

func (m *mockStore) GetRankedStanding(ctx context.Context, puuid, queue string) (*RankedStanding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.standingsErr != nil {
		return nil, m.standingsErr
	}
	s, ok := m.standings[standingKey(puuid, queue)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockStore) GetRankedStandings(ctx context.Context, puuid string) ([]RankedStanding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.standingsErr != nil {
		return nil, m.standingsErr
	}
	var result []RankedStanding
	for _, queue := range TrackedQueues {
		if s, ok := m.standings[standingKey(puuid, queue)]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockStore) UpsertRankedStanding(ctx context.Context, standing *RankedStanding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertStandingSeen++
	if m.upsertStandingErr != nil {
		return m.upsertStandingErr
	}
	m.standings[standingKey(standing.PUUID, standing.QueueType)] = *standing
	return nil
}

func (m *mockStore) InsertRankSnapshot(ctx context.Context, snapshot *RankSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotAttempts++
	if m.snapshotErr != nil {
		return m.snapshotErr
	}
	key := snapshotKey(snapshot.MatchID, snapshot.PUUID, snapshot.QueueType)
	if _, exists := m.snapshots[key]; exists {
		return nil
	}
	m.snapshots[key] = *snapshot
	return nil
}

func (m *mockStore) FilterKnownMatchIDs(ctx context.Context, matchIDs []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filterErr != nil {
		return nil, m.filterErr
	}
	known := make(map[string]struct{})
	for _, id := range matchIDs {
		if _, ok := m.matches[id]; ok {
			known[id] = struct{}{}
		}
	}
	return known, nil
}

func (m *mockStore) InsertMatch(ctx context.Context, match *MatchRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertMatchErr != nil {
		return false, m.insertMatchErr
	}
	if _, exists := m.matches[match.MatchID]; exists {
		return false, nil
	}
	copied := *match
	m.matches[match.MatchID] = &copied
	return true, nil
}

func (m *mockStore) GetMatchHistory(ctx context.Context, puuid string, limit, offset int) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MatchRecord
	for _, match := range m.matches {
		for _, p := range match.Participants {
			if p.PUUID == puuid {
				result = append(result, *match)
				break
			}
		}
	}
	return result, nil
}

func (m *mockStore) GetTopMasteries(ctx context.Context, puuid string, count int) ([]ChampionMasteryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.masteryReadErr != nil {
		return nil, m.masteryReadErr
	}
	entries := m.masteries[puuid]
	if len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

func (m *mockStore) ReplaceTopMasteries(ctx context.Context, puuid string, entries []ChampionMasteryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.masteryWriteErr != nil {
		return m.masteryWriteErr
	}
	m.masteries[puuid] = append([]ChampionMasteryEntry(nil), entries...)
	return nil
}

func (m *mockStore) ListStaleAccounts(ctx context.Context, olderThan time.Duration, limit int) ([]PlayerAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staleAccounts, nil
}

type mockCooldownGate struct {
	mu         sync.Mutex
	reject     bool
	retryAfter time.Duration
	err        error
	calls      int
	windows    []time.Duration
}

func (m *mockCooldownGate) AcquireCooldown(ctx context.Context, puuid string, window time.Duration) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.windows = append(m.windows, window)
	if m.err != nil {
		return false, 0, m.err
	}
	if m.reject {
		return false, m.retryAfter, nil
	}
	return true, 0, nil
}

type mockInvalidator struct {
	mu       sync.Mutex
	patterns []string
	err      error
}

func (m *mockInvalidator) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	return m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []SyncCompletedEvent
	err    error
}

func (m *mockPublisher) PublishSyncCompleted(event SyncCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func soloEntry(puuid, tier, division string, lp, wins, losses int) LeagueEntryDTO {
	return LeagueEntryDTO{
		PUUID:        puuid,
		QueueType:    QueueSoloDuo,
		Tier:         tier,
		Rank:         division,
		LeaguePoints: lp,
		Wins:         wins,
		Losses:       losses,
	}
}

func rankedMatchDTO(matchID string, puuids ...string) *MatchDTO {
	dto := &MatchDTO{
		Metadata: MatchMetadataDTO{MatchID: matchID, Participants: puuids},
		Info: MatchInfoDTO{
			GameCreation: time.Now().Add(-time.Hour).UnixMilli(),
			GameDuration: 1800,
			QueueID:      420,
			PlatformID:   "BR1",
		},
	}
	for i, puuid := range puuids {
		dto.Info.Participants = append(dto.Info.Participants, MatchParticipantDTO{
			PUUID:                       puuid,
			ChampionID:                  100 + i,
			ChampionName:                fmt.Sprintf("Champion%d", i),
			Kills:                       i + 2,
			Deaths:                      i,
			Assists:                     i * 3,
			TotalDamageDealtToChampions: 15000 + i*1000,
			GoldEarned:                  11000 + i*500,
			VisionScore:                 20 + i,
			Win:                         i%2 == 0,
		})
	}
	return dto
}
