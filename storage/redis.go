package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/access-log-analyzer/analyzer"
	"github.com/access-log-analyzer/logger"
)

// Key suffixes under LOGANALYSIS:<name>.
const (
	suffixRequests     = "REQUESTS"
	suffixEndpoints    = "ENDPOINTS"
	suffixFailedLogins = "FAILED_LOGINS"
	suffixSuspicious   = "SUSPICIOUS"
	suffixMeta         = "META"
)

// Store persists analysis results in Redis.
type Store struct {
	rdb     *redis.Client
	timeout time.Duration
}

// Stored is what Load reads back for one run.
type Stored struct {
	Requests     map[string]int
	Endpoints    map[string]int
	FailedLogins map[string]int
	Suspicious   map[string]int
	Meta         map[string]string
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, addr, password string, db int) (*Store, error) {
	s := &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		timeout: 5 * time.Second,
	}

	if err := s.checkConnection(ctx); err != nil {
		s.rdb.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) checkConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pong, err := s.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis: %s", pong)
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func key(name, suffix string) string {
	return fmt.Sprintf("LOGANALYSIS:%s:%s", name, suffix)
}

// Save replaces the stored result for name with summary. All keys are
// written in one transaction and expire after ttl (0 means never).
func (s *Store) Save(ctx context.Context, name string, summary analyzer.Summary, ttl time.Duration) error {
	if name == "" {
		return fmt.Errorf("invalid key name: empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	meta := map[string]interface{}{
		"total_lines":   summary.TotalLines,
		"matched_lines": summary.MatchedLines,
		"failed_status": summary.Rules.FailedStatus,
		"login_path":    summary.Rules.LoginPath,
		"threshold":     summary.Rules.Threshold,
		"saved_at":      time.Now().UTC().Format(time.RFC3339),
	}
	if top, err := summary.MostAccessed(); err == nil {
		meta["top_endpoint"] = top.Key
		meta["top_endpoint_count"] = top.Count
	}

	hashes := map[string][]analyzer.Count{
		suffixRequests:     summary.Requests.Entries(),
		suffixEndpoints:    summary.Endpoints.Entries(),
		suffixFailedLogins: summary.FailedLogins.Entries(),
		suffixSuspicious:   summary.Suspicious(),
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for suffix, counts := range hashes {
			k := key(name, suffix)
			pipe.Del(ctx, k)
			if len(counts) == 0 {
				continue
			}
			values := make(map[string]interface{}, len(counts))
			for _, c := range counts {
				values[c.Key] = c.Count
			}
			pipe.HSet(ctx, k, values)
			if ttl > 0 {
				pipe.Expire(ctx, k, ttl)
			}
		}

		mk := key(name, suffixMeta)
		pipe.Del(ctx, mk)
		pipe.HSet(ctx, mk, meta)
		if ttl > 0 {
			pipe.Expire(ctx, mk, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving results for %s: %w", name, err)
	}
	return nil
}

// Load reads back the result stored under name. Missing keys load as empty
// maps.
func (s *Store) Load(ctx context.Context, name string) (Stored, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out Stored
	targets := []struct {
		suffix string
		dst    *map[string]int
	}{
		{suffixRequests, &out.Requests},
		{suffixEndpoints, &out.Endpoints},
		{suffixFailedLogins, &out.FailedLogins},
		{suffixSuspicious, &out.Suspicious},
	}

	for _, t := range targets {
		raw, err := s.rdb.HGetAll(ctx, key(name, t.suffix)).Result()
		if err != nil {
			return Stored{}, fmt.Errorf("reading %s: %w", key(name, t.suffix), err)
		}
		counts := make(map[string]int, len(raw))
		for k, v := range raw {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Stored{}, fmt.Errorf("bad count %q for %s in %s: %w", v, k, key(name, t.suffix), err)
			}
			counts[k] = n
		}
		*t.dst = counts
	}

	meta, err := s.rdb.HGetAll(ctx, key(name, suffixMeta)).Result()
	if err != nil {
		return Stored{}, fmt.Errorf("reading %s: %w", key(name, suffixMeta), err)
	}
	out.Meta = meta

	return out, nil
}
