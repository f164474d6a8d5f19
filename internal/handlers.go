package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, status int) APIError {
	return APIError{Message: message, Status: status}
}

func writeError(w http.ResponseWriter, err error, logger *Logger, r *http.Request) {
	requestID := GetRequestID(r.Context())

	status := http.StatusInternalServerError
	message := "Internal server error"
	code := ""
	var retryAfter int

	var apiErr APIError
	var syncErr *SyncError
	switch {
	case errors.As(err, &syncErr):
		status = HTTPStatus(syncErr)
		message = syncErr.Message
		code = string(syncErr.Code)
		if syncErr.RetryAfter > 0 {
			retryAfter = int(syncErr.RetryAfter.Seconds() + 0.5)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
	case errors.As(err, &apiErr):
		status = apiErr.Status
		message = apiErr.Message
	}

	logger.Error("api_error").
		Component("http").
		Operation("write_error").
		HTTP(r.Method, r.URL.Path, status).
		Request(r.RemoteAddr, requestID).
		Err(err).
		ErrorCode(code).
		Log()

	body := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().Unix(),
		"requestId": requestID,
	}
	if code != "" {
		body["code"] = code
	}
	if retryAfter > 0 {
		body["retryAfter"] = retryAfter
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, data interface{}, logger *Logger, r *http.Request) {
	requestID := GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json_encode_failed").
			Component("http").
			Operation("write_json").
			Request("", requestID).
			Err(err).
			Log()
	}
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func withRateLimit(rateLimiter *RateLimiter, key string, logger *Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			allowed, err := rateLimiter.Allow(r.Context(), key)
			if err != nil {
				writeError(w, NewAPIError("Rate limiter error", http.StatusInternalServerError), logger, r)
				return
			}

			if !allowed {
				writeError(w, NewAPIError("Rate limit exceeded", http.StatusTooManyRequests), logger, r)
				return
			}

			next(w, r)
		}
	}
}

// SyncHandler is the human-facing "refresh now" trigger. Repeat triggers
// inside the cooldown window come back 429 with a Retry-After.
func SyncHandler(coordinator *SyncCoordinator, rateLimiter *RateLimiter, logger *Logger) http.HandlerFunc {
	return withCORS(withRateLimit(rateLimiter, "sync", logger)(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewAPIError("Method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		puuid := r.URL.Query().Get("puuid")
		if puuid == "" {
			writeError(w, NewAPIError("puuid is required", http.StatusBadRequest), logger, r)
			return
		}

		report, err := coordinator.Sync(r.Context(), puuid)
		if err != nil {
			writeError(w, err, logger, r)
			return
		}

		writeJSON(w, report, logger, r)
	}))
}

// RankHandler never serves a row older than TTL without attempting a
// refresh; the rank cache decides whether an upstream call happens.
func RankHandler(ranks *RankCache, rateLimiter *RateLimiter, logger *Logger) http.HandlerFunc {
	return withCORS(withRateLimit(rateLimiter, "rank", logger)(func(w http.ResponseWriter, r *http.Request) {
		puuid := r.URL.Query().Get("puuid")
		if puuid == "" {
			writeError(w, NewAPIError("puuid is required", http.StatusBadRequest), logger, r)
			return
		}

		queue := r.URL.Query().Get("queue")
		if queue == "" {
			queue = QueueSoloDuo
		}

		standing, err := ranks.GetOrRefreshQueue(r.Context(), puuid, queue)
		if err != nil {
			writeError(w, err, logger, r)
			return
		}

		writeJSON(w, standing, logger, r)
	}))
}

// MatchHistoryHandler serves from the persistent store only; plain reads
// never reach the upstream provider. Responses sit in Redis briefly and
// are invalidated by the coordinator after every sync.
func MatchHistoryHandler(store Store, cache *CacheManager, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		puuid := r.URL.Query().Get("puuid")
		if puuid == "" {
			writeError(w, NewAPIError("puuid is required", http.StatusBadRequest), logger, r)
			return
		}

		limit := parsePositiveInt(r.URL.Query().Get("limit"), 20, 100)
		offset := parsePositiveInt(r.URL.Query().Get("offset"), 0, 10000)

		cacheKey := cache.Key("view", "matches", puuid, strconv.Itoa(limit), strconv.Itoa(offset))
		var cached []MatchRecord
		if err := cache.Get(r.Context(), cacheKey, &cached); err == nil {
			writeJSON(w, cached, logger, r)
			return
		}

		matches, err := store.GetMatchHistory(r.Context(), puuid, limit, offset)
		if err != nil {
			writeError(w, err, logger, r)
			return
		}
		if matches == nil {
			matches = []MatchRecord{}
		}

		cache.Set(r.Context(), cacheKey, matches, 5*time.Minute)
		writeJSON(w, matches, logger, r)
	})
}

func MasteryHandler(accounts *AccountSyncer, rateLimiter *RateLimiter, logger *Logger) http.HandlerFunc {
	return withCORS(withRateLimit(rateLimiter, "mastery", logger)(func(w http.ResponseWriter, r *http.Request) {
		puuid := r.URL.Query().Get("puuid")
		if puuid == "" {
			writeError(w, NewAPIError("puuid is required", http.StatusBadRequest), logger, r)
			return
		}

		count := parsePositiveInt(r.URL.Query().Get("count"), 3, masteryFetchCount)

		entries, err := accounts.GetTopMastery(r.Context(), puuid, count)
		if err != nil {
			writeError(w, err, logger, r)
			return
		}
		if entries == nil {
			entries = []ChampionMasteryEntry{}
		}

		writeJSON(w, entries, logger, r)
	}))
}

func PlayerHandler(store Store, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		puuid := r.URL.Query().Get("puuid")
		if puuid == "" {
			writeError(w, NewAPIError("puuid is required", http.StatusBadRequest), logger, r)
			return
		}

		account, err := store.GetPlayerAccount(r.Context(), puuid)
		if err != nil {
			writeError(w, err, logger, r)
			return
		}
		if account == nil {
			writeError(w, NewAPIError("Player not found", http.StatusNotFound), logger, r)
			return
		}

		writeJSON(w, account, logger, r)
	})
}

func HealthHandler(logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		}, logger, r)
	})
}

func MetricsHandler(logger *Logger, metrics *MetricsCollector) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, metrics.GetMetrics(), logger, r)
	})
}

func parsePositiveInt(value string, fallback, max int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}
