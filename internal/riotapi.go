package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	requestTimeout = 10 * time.Second
)

// RiotAPIClient performs one upstream call per invocation and classifies
// the outcome. It holds no cache state; freshness decisions live with the
// callers.
type RiotAPIClient struct {
	APIKey      string
	PlatformURL string
	RegionalURL string
	Region      string
	Client      *http.Client
	Logger      *Logger
	Metrics     *MetricsCollector

	attempts int
	backoff  time.Duration
}

func NewRiotAPIClient(cfg *Config, logger *Logger) *RiotAPIClient {
	platformURL := cfg.RiotBaseURL
	if platformURL == "" {
		platformURL = getPlatformAPIURL(cfg.RiotRegion)
	}

	return &RiotAPIClient{
		APIKey:      cfg.RiotAPIKey,
		PlatformURL: platformURL,
		RegionalURL: getRegionalAPIURL(cfg.RiotRegion),
		Region:      cfg.RiotRegion,
		Logger:      logger,
		Client: &http.Client{
			Timeout: requestTimeout,
		},
		attempts: maxAttempts,
		backoff:  initialBackoff,
	}
}

func (c *RiotAPIClient) SetMetrics(metrics *MetricsCollector) {
	c.Metrics = metrics
}

func getPlatformAPIURL(region string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(region))
}

func getRegionalAPIURL(region string) string {
	switch region {
	case "BR1", "LA1", "LA2", "NA1":
		return "https://americas.api.riotgames.com"
	case "EUW1", "EUN1", "TR1", "RU":
		return "https://europe.api.riotgames.com"
	case "JP1", "KR":
		return "https://asia.api.riotgames.com"
	case "OC1", "PH2", "SG2", "TH2", "TW2", "VN2":
		return "https://sea.api.riotgames.com"
	default:
		return "https://americas.api.riotgames.com"
	}
}

func (c *RiotAPIClient) doRequest(ctx context.Context, url string) ([]byte, error) {
	backoff := c.backoff
	var lastErr *SyncError

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			wait := backoff
			if lastErr != nil && lastErr.RetryAfter > 0 {
				wait = lastErr.RetryAfter
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, NewSyncError(ErrCodeUpstream, "request cancelled", ctx.Err())
			}
			backoff *= 2
		}

		body, retryable, err := c.attemptRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		c.Logger.Warn("upstream_retry").
			Component("riot_api").
			Operation("do_request").
			Err(err).
			Meta("attempt", attempt).
			Meta("url", url).
			Log()
	}

	return nil, lastErr
}

// attemptRequest runs a single HTTP round trip. The bool reports whether
// the failure is worth another attempt.
func (c *RiotAPIClient) attemptRequest(ctx context.Context, url string) ([]byte, bool, *SyncError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, NewSyncError(ErrCodeUpstream, "failed to build request", err)
	}
	req.Header.Set("X-Riot-Token", c.APIKey)

	if c.Metrics != nil {
		c.Metrics.RecordUpstreamCall(req.URL.Path)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, true, NewSyncError(ErrCodeUpstream, "upstream request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, NewSyncError(ErrCodeUpstream, "failed to read upstream response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, NewSyncError(ErrCodeNotFound, "entity not found upstream", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		se := NewSyncError(ErrCodeRateLimited, "upstream rate limit exceeded", nil)
		se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, true, se
	case resp.StatusCode >= 500:
		return nil, true, NewSyncError(ErrCodeUpstream,
			fmt.Sprintf("upstream returned %s", resp.Status), nil)
	default:
		return nil, false, NewSyncError(ErrCodeUpstream,
			fmt.Sprintf("unexpected upstream status %s: %s", resp.Status, string(body)), nil)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *RiotAPIClient) GetSummonerByPUUID(ctx context.Context, puuid string) (*SummonerDTO, error) {
	url := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.PlatformURL, puuid)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result SummonerDTO
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode summoner payload", err)
	}
	return &result, nil
}

func (c *RiotAPIClient) GetAccountByPUUID(ctx context.Context, puuid string) (*AccountDTO, error) {
	url := fmt.Sprintf("%s/riot/account/v1/accounts/by-puuid/%s", c.RegionalURL, puuid)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result AccountDTO
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode account payload", err)
	}
	return &result, nil
}

func (c *RiotAPIClient) GetLeagueEntries(ctx context.Context, puuid string) ([]LeagueEntryDTO, error) {
	url := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.PlatformURL, puuid)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result []LeagueEntryDTO
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode league entries", err)
	}
	return result, nil
}

func (c *RiotAPIClient) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	url := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d",
		c.RegionalURL, puuid, count)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result []string
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode match id list", err)
	}
	return result, nil
}

func (c *RiotAPIClient) GetMatch(ctx context.Context, matchID string) (*MatchDTO, error) {
	url := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.RegionalURL, matchID)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result MatchDTO
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode match payload", err)
	}
	return &result, nil
}

func (c *RiotAPIClient) GetTopMasteries(ctx context.Context, puuid string, count int) ([]MasteryDTO, error) {
	url := fmt.Sprintf("%s/lol/champion-mastery/v4/champion-masteries/by-puuid/%s/top?count=%d",
		c.PlatformURL, puuid, count)
	data, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var result []MasteryDTO
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewSyncError(ErrCodeUpstream, "failed to decode mastery payload", err)
	}
	return result, nil
}
