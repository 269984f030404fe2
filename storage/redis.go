package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"newsbot/deduplication"
	"newsbot/types"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultRedisPrefix = "newsbot"

// NewRedisClient connects to redisURL, accepting either a redis:// URL or a
// bare host:port address.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opt.Addr, err)
	}
	return client, nil
}

// RedisStore keeps each article in a hash and the persisted order in a list.
//
//	<prefix>:article:<key>  hash of article fields
//	<prefix>:order          list of keys in insertion order
//	<prefix>:urls           set of stored URLs
//	<prefix>:title_counts   hash of title to article refcount
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Client exposes the connection for collaborators sharing the same server.
func (s *RedisStore) Client() redis.UniversalClient { return s.client }

func (s *RedisStore) articleKey(key string) string { return s.prefix + ":article:" + key }
func (s *RedisStore) orderKey() string             { return s.prefix + ":order" }
func (s *RedisStore) urlsKey() string              { return s.prefix + ":urls" }
func (s *RedisStore) titlesKey() string            { return s.prefix + ":title_counts" }

// releaseTitle decrements a title's refcount and drops the field at zero so
// titles shared by several articles stay visible until the last one goes.
var releaseTitle = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if n <= 0 then
	redis.call('HDEL', KEYS[1], ARGV[1])
end
return n
`)

func (s *RedisStore) Insert(ctx context.Context, article *types.Article) error {
	if err := prepareInsert(article); err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, s.articleKey(article.Key)).Result()
	if err != nil {
		return fmt.Errorf("failed to check article %s: %w", article.Key, err)
	}
	if exists > 0 {
		return ErrDuplicateArticle
	}
	if article.URL != "" {
		seen, err := s.ExistsURL(ctx, article.URL)
		if err != nil {
			return err
		}
		if seen {
			return ErrDuplicateArticle
		}
	}

	keywords, err := json.Marshal(article.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.articleKey(article.Key), map[string]interface{}{
			"key":       article.Key,
			"ordinal":   article.Ordinal,
			"title":     article.Title,
			"source":    article.Source,
			"body":      article.Body,
			"url":       article.URL,
			"timestamp": article.Timestamp.Format(time.RFC3339Nano),
			"keywords":  string(keywords),
		})
		pipe.RPush(ctx, s.orderKey(), article.Key)
		if article.URL != "" {
			pipe.SAdd(ctx, s.urlsKey(), article.URL)
		}
		pipe.HIncrBy(ctx, s.titlesKey(), article.Title, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", article.Key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*types.Article, error) {
	fields, err := s.client.HGetAll(ctx, s.articleKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read article %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, ErrArticleNotFound
	}
	return decodeArticle(fields)
}

func decodeArticle(fields map[string]string) (*types.Article, error) {
	a := &types.Article{
		Key:    fields["key"],
		Title:  fields["title"],
		Source: fields["source"],
		Body:   fields["body"],
		URL:    fields["url"],
	}
	ordinal, err := strconv.Atoi(fields["ordinal"])
	if err != nil {
		return nil, fmt.Errorf("invalid ordinal for article %s: %w", a.Key, err)
	}
	a.Ordinal = ordinal
	if ts := fields["timestamp"]; ts != "" {
		if a.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp for article %s: %w", a.Key, err)
		}
	}
	if kw := fields["keywords"]; kw != "" {
		if err := json.Unmarshal([]byte(kw), &a.Keywords); err != nil {
			return nil, fmt.Errorf("invalid keywords for article %s: %w", a.Key, err)
		}
	}
	return a, nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read article order: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*types.Article, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, s.articleKey(key))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}

	out := make([]*types.Article, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			log.Warn().Str("key", keys[i]).Msg("order list references missing article")
			continue
		}
		a, err := decodeArticle(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *RedisStore) FindAll(ctx context.Context) ([]deduplication.Document, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.SliceCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HMGet(ctx, s.articleKey(key), "ordinal", "title", "body")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	docs := make([]deduplication.Document, 0, len(keys))
	for i, cmd := range cmds {
		vals := cmd.Val()
		if vals[0] == nil && vals[1] == nil && vals[2] == nil {
			log.Warn().Str("key", keys[i]).Msg("order list references missing article")
			continue
		}
		doc := deduplication.Document{Key: keys[i]}
		if v, ok := vals[0].(string); ok {
			if doc.Ordinal, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("invalid ordinal for article %s: %w", keys[i], err)
			}
		}
		if v, ok := vals[1].(string); ok {
			doc.Title = v
		}
		if v, ok := vals[2].(string); ok {
			doc.Body = &v
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	vals, err := s.client.HMGet(ctx, s.articleKey(key), "url", "title").Result()
	if err != nil {
		return fmt.Errorf("failed to read article %s: %w", key, err)
	}
	title, stored := vals[1].(string)
	if !stored {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.articleKey(key))
		pipe.LRem(ctx, s.orderKey(), 0, key)
		if u, ok := vals[0].(string); ok && u != "" {
			pipe.SRem(ctx, s.urlsKey(), u)
		}
		releaseTitle.Eval(ctx, pipe, []string{s.titlesKey()}, title)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) UpdateOrdinal(ctx context.Context, key string, ordinal int) error {
	exists, err := s.client.Exists(ctx, s.articleKey(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to check article %s: %w", key, err)
	}
	if exists == 0 {
		return ErrArticleNotFound
	}
	return s.client.HSet(ctx, s.articleKey(key), "ordinal", ordinal).Err()
}

func (s *RedisStore) ExistsURL(ctx context.Context, url string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.urlsKey(), url).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check url: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) ExistsTitle(ctx context.Context, title string) (bool, error) {
	n, err := s.client.HGet(ctx, s.titlesKey(), title).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check title: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.orderKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
