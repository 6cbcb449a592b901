package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "scraper:"

// RedisStore keeps each identifier set as a redis SET, one per source
// and kind. Suitable when several hosts share crawl state.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed store using the given client.
func NewRedisStore(ctx context.Context, client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ctx: ctx}
}

func (s *RedisStore) key(source, kind string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, source, kind)
}

// LoadIDs loads the downloaded-id set for a source.
func (s *RedisStore) LoadIDs(source string) (Set, error) {
	return s.load(s.key(source, "ids"))
}

// SaveIDs overwrites the downloaded-id set for a source.
func (s *RedisStore) SaveIDs(source string, ids Set) error {
	return s.save(s.key(source, "ids"), ids)
}

// LoadHashes loads the content-hash set for a source.
func (s *RedisStore) LoadHashes(source string) (Set, error) {
	return s.load(s.key(source, "hashes"))
}

// SaveHashes overwrites the content-hash set for a source.
func (s *RedisStore) SaveHashes(source string, hashes Set) error {
	return s.save(s.key(source, "hashes"), hashes)
}

func (s *RedisStore) load(key string) (Set, error) {
	members, err := s.client.SMembers(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return NewSet(members...), nil
}

func (s *RedisStore) save(key string, set Set) error {
	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, key)
	if len(set) > 0 {
		members := make([]any, 0, len(set))
		for m := range set {
			members = append(members, m)
		}
		pipe.SAdd(s.ctx, key, members...)
	}
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
