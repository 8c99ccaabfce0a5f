package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"rohis/api/internal/util"
)

// RedisStore implements the keyed-collection contract on Redis: one hash
// per collection path holding JSON records, and one pub/sub channel per
// path carrying change notifications. Subscribers are handed a fresh full
// snapshot on every change, the same shape the old hosted listener pushed.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "rohis:",
		now:    time.Now,
	}
}

func (s *RedisStore) collKey(path string) string {
	return s.prefix + "coll:" + path
}

func (s *RedisStore) channel(path string) string {
	return s.prefix + "changes:" + path
}

// Snapshot reads the full collection at path.
func (s *RedisStore) Snapshot(ctx context.Context, path string) (Collection, error) {
	raw, err := s.client.HGetAll(ctx, s.collKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", path, err)
	}
	coll := make(Collection, len(raw))
	for key, value := range raw {
		coll[key] = json.RawMessage(value)
	}
	return coll, nil
}

// Put writes one record under an explicit key and notifies subscribers.
func (s *RedisStore) Put(ctx context.Context, path, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record %s/%s: %w", path, key, err)
	}
	if err := s.client.HSet(ctx, s.collKey(path), key, string(raw)).Err(); err != nil {
		return fmt.Errorf("write record %s/%s: %w", path, key, err)
	}
	s.notify(ctx, path)
	return nil
}

// PutAll replaces the whole collection at path, the way the dashboard saves
// the structure and work-program maps in one shot.
func (s *RedisStore) PutAll(ctx context.Context, path string, values Collection) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.collKey(path))
	if len(values) > 0 {
		fields := make(map[string]any, len(values))
		for key, raw := range values {
			fields[key] = string(raw)
		}
		pipe.HSet(ctx, s.collKey(path), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace collection %s: %w", path, err)
	}
	s.notify(ctx, path)
	return nil
}

// Append stores a record under a generated chronologically sortable key
// and returns that key.
func (s *RedisStore) Append(ctx context.Context, path string, value any) (string, error) {
	key := util.PushKey(s.now())
	if err := s.Put(ctx, path, key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes one record. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, path, key string) error {
	if err := s.client.HDel(ctx, s.collKey(path), key).Err(); err != nil {
		return fmt.Errorf("delete record %s/%s: %w", path, key, err)
	}
	s.notify(ctx, path)
	return nil
}

// QueryByField returns the records whose named string field equals value.
func (s *RedisStore) QueryByField(ctx context.Context, path, field, value string) (Collection, error) {
	coll, err := s.Snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	matched := make(Collection)
	for key, raw := range coll {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		var got string
		if err := json.Unmarshal(fields[field], &got); err != nil {
			continue
		}
		if got == value {
			matched[key] = raw
		}
	}
	return matched, nil
}

// Subscribe delivers the current snapshot immediately, then a fresh
// snapshot after every change to the collection, until the returned cancel
// function is called. fn runs on the subscription goroutine.
func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func(Collection)) (func(), error) {
	sub := s.client.Subscribe(ctx, s.channel(path))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", path, err)
	}

	initial, err := s.Snapshot(ctx, path)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(initial)
		for range sub.Channel() {
			snap, err := s.Snapshot(ctx, path)
			if err != nil {
				log.Printf("store: refresh snapshot for %s: %v", path, err)
				continue
			}
			fn(snap)
		}
	}()

	cancel := func() {
		_ = sub.Close()
		<-done
	}
	return cancel, nil
}

func (s *RedisStore) notify(ctx context.Context, path string) {
	if err := s.client.Publish(ctx, s.channel(path), "changed").Err(); err != nil {
		log.Printf("store: notify %s: %v", path, err)
	}
}

// Client exposes the underlying connection for collaborators that keep
// their own keys in the same Redis, like the prayer schedule cache.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Ping checks Redis reachability.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
