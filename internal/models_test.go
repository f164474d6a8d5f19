package internal

import "testing"

func TestQueueTypeFromID(t *testing.T) {
	tests := []struct {
		queueID int
		want    string
	}{
		{420, QueueSoloDuo},
		{440, QueueFlex},
		{450, ""},
		{0, ""},
	}

	for _, tt := range tests {
		if got := QueueTypeFromID(tt.queueID); got != tt.want {
			t.Errorf("QueueTypeFromID(%d) = %q, want %q", tt.queueID, got, tt.want)
		}
	}
}

func TestSnapshotQueueFor(t *testing.T) {
	if got := SnapshotQueueFor(440); got != QueueFlex {
		t.Errorf("Expected flex, got %s", got)
	}
	if got := SnapshotQueueFor(450); got != QueueSoloDuo {
		t.Errorf("Non-ranked queues fall back to solo, got %s", got)
	}
}

func TestUnrankedStanding(t *testing.T) {
	s := UnrankedStanding("test-puuid", QueueFlex)
	if s.Tier != TierUnranked {
		t.Errorf("Expected UNRANKED, got %s", s.Tier)
	}
	if s.Division != nil {
		t.Errorf("Expected nil division, got %v", *s.Division)
	}
	if s.LeaguePoints != 0 || s.Wins != 0 || s.Losses != 0 {
		t.Errorf("Expected zeroed standing, got %+v", s)
	}
}

func TestCombinedStatus(t *testing.T) {
	ok := SyncOutcome{Success: true}
	bad := SyncOutcome{Success: false, Error: "boom"}

	tests := []struct {
		account, matches SyncOutcome
		want             SyncStatus
	}{
		{ok, ok, SyncStatusSucceeded},
		{ok, bad, SyncStatusPartial},
		{bad, ok, SyncStatusPartial},
		{bad, bad, SyncStatusFailed},
	}

	for _, tt := range tests {
		if got := combinedStatus(tt.account, tt.matches); got != tt.want {
			t.Errorf("combinedStatus(%v, %v) = %s, want %s",
				tt.account.Success, tt.matches.Success, got, tt.want)
		}
	}
}
