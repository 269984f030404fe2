package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"newsbot/types"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// BloomConfig configures the RedisBloom filter used as an exact-duplicate
// fast path during ingestion.
type BloomConfig struct {
	Key string // redis key for bloom filter
	TTL time.Duration
	// Capacity sets the initial BF.RESERVE capacity (number of items)
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001)
	ErrorRate float64
	// If true, BF.RESERVE NONSCALING flag will be used
	NonScaling bool
}

func (c BloomConfig) withDefaults() BloomConfig {
	if c.Key == "" {
		c.Key = "articles:bloom"
	}
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Capacity <= 0 {
		c.Capacity = 100000
	}
	if c.ErrorRate <= 0 {
		c.ErrorRate = 0.001
	}
	return c
}

// RedisBloom is a minimal Redis-backed Bloom wrapper using RedisBloom commands
type RedisBloom struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisBloom reserves the filter on client when it does not exist yet.
// Servers without the RedisBloom module are tolerated; BF.ADD may still
// auto-create the filter.
func NewRedisBloom(ctx context.Context, client redis.UniversalClient, cfg BloomConfig) (*RedisBloom, error) {
	cfg = cfg.withDefaults()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		args := []interface{}{"BF.RESERVE", cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity}
		if cfg.NonScaling {
			args = append(args, "NONSCALING")
		}
		if err := client.Do(ctx, args...).Err(); err != nil {
			log.Warn().Err(err).Str("key", cfg.Key).Msg("BF.RESERVE failed")
		}
	}

	return &RedisBloom{client: client, key: cfg.Key, ttl: cfg.TTL}, nil
}

// Seen reports whether the article's URL+title hash is probably in the filter.
func (r *RedisBloom) Seen(ctx context.Context, article *types.Article) (bool, error) {
	hash, err := NormalizeAndHash(article)
	if err != nil {
		return false, err
	}
	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, hash).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case bool:
		return v, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Remember adds the article's hash and slides the filter's TTL forward.
func (r *RedisBloom) Remember(ctx context.Context, article *types.Article) error {
	hash, err := NormalizeAndHash(article)
	if err != nil {
		return err
	}
	if err := r.client.Do(ctx, "BF.ADD", r.key, hash).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, r.key, r.ttl).Err()
}

// NormalizeAndHash returns sha256(normalizedURL + "|" + normalizedTitle).
// URLs lose their fragment and tracking parameters; titles are lowercased
// with whitespace collapsed.
func NormalizeAndHash(article *types.Article) (string, error) {
	if article == nil {
		return "", fmt.Errorf("nil article")
	}
	h := sha256.Sum256([]byte(normalizeURL(article.URL) + "|" + normalizeTitle(article.Title)))
	return hex.EncodeToString(h[:]), nil
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
