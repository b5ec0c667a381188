package checkpoint

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/tvahtera/claimflow/pkg/api"
)

// RedisStore is a Store backed by Redis. It uses a simple key structure:
//
//	<prefix>cp:<thread_id>  => JSON-encoded checkpoint
//	<prefix>idx:all         => SET of all thread IDs
//
// The index is always updated together with the checkpoint inside a
// pipeline, and List uses it to enumerate sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "claimflow:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "claimflow:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) keyCheckpoint(threadID string) string {
	return s.prefix + "cp:" + threadID
}

func (s *RedisStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisStore) Save(ctx context.Context, cp api.Checkpoint) error {
	payload, err := EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyCheckpoint(cp.ThreadID), payload, 0)
	pipe.SAdd(ctx, s.keyAll(), cp.ThreadID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (api.Checkpoint, error) {
	payload, err := s.client.Get(ctx, s.keyCheckpoint(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return api.Checkpoint{}, ErrCheckpointNotFound
		}
		return api.Checkpoint{}, err
	}
	return DecodeCheckpoint(payload)
}

func (s *RedisStore) Clear(ctx context.Context, threadID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keyCheckpoint(threadID))
	pipe.SRem(ctx, s.keyAll(), threadID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context) ([]api.Checkpoint, error) {
	ids, err := s.client.SMembers(ctx, s.keyAll()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var out []api.Checkpoint
	for _, id := range ids {
		cp, err := s.Load(ctx, id)
		if err != nil {
			// The index is best-effort: a cleared checkpoint may leave a
			// stale member behind.
			if errors.Is(err, ErrCheckpointNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}
