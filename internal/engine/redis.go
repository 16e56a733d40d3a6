package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

const (
	redisDocPrefix = "passport:"
	redisIndexKey  = "passports"
)

// RedisBackend stores each record document under passport:<id> and keeps the
// set of IDs in the passports key.
type RedisBackend struct {
	client *redis.Client
	codec  Codec
	prefix string
	backendLog
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithKeyPrefix namespaces every key, e.g. for several daemons sharing one server.
func WithKeyPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// NewRedisBackend wraps an existing client. The backend takes ownership of it.
func NewRedisBackend(client *redis.Client, codec Codec, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, codec: codec}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// OpenRedis connects to the server at url and verifies it with a ping.
func OpenRedis(ctx context.Context, url string, codec Codec, opts ...RedisOption) (*RedisBackend, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisBackend(client, codec, opts...), nil
}

func (b *RedisBackend) docKey(id string) string {
	return b.prefix + redisDocPrefix + id
}

// Save writes the document and indexes the ID in one transaction.
func (b *RedisBackend) Save(ctx context.Context, id string, snap passport.Snapshot) error {
	if id == "" {
		return ErrInvalidRecordID
	}
	doc, err := b.codec.Encode(snap)
	if err != nil {
		return err
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.docKey(id), doc, 0)
		pipe.SAdd(ctx, b.prefix+redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save passport: %w", err)
	}
	return nil
}

// LoadAll reads every indexed document. IDs whose document is missing are skipped.
func (b *RedisBackend) LoadAll(ctx context.Context) (map[string]passport.Snapshot, error) {
	ids, err := b.client.SMembers(ctx, b.prefix+redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list passports: %w", err)
	}
	all := make(map[string]passport.Snapshot, len(ids))
	if len(ids) == 0 {
		return all, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.docKey(id)
	}
	docs, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load passports: %w", err)
	}
	for i, raw := range docs {
		doc, ok := raw.(string)
		if !ok {
			b.logger().Warn("passport indexed without document", "record", ids[i])
			continue
		}
		snap, err := b.codec.Decode([]byte(doc))
		if err != nil {
			b.logger().Warn("could not decode passport document", "record", ids[i], "error", err)
			continue
		}
		all[ids[i]] = snap
	}
	return all, nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
