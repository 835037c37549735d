package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
)

const (
	keyPrefix         = "dashboard:state:"
	maxUpdateAttempts = 5
)

// RedisStore keeps dashboard state in Redis so every instance behind the
// load balancer sees the same session. Updates use WATCH/MULTI and retry
// when another writer touched the key first.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ dashboard.StateStore = (*RedisStore)(nil)

// NewRedisStore returns a store whose entries expire ttl after their last write.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter, k string) (*dashboard.State, error) {
	data, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return dashboard.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	st := dashboard.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Load returns the state of a session, or a fresh state when none is stored.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*dashboard.State, error) {
	return s.read(ctx, s.client, key(sessionID))
}

// Update applies fn and writes the result in one optimistic transaction.
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(*dashboard.State) error) (*dashboard.State, error) {
	k := key(sessionID)
	var result *dashboard.State

	txf := func(tx *redis.Tx) error {
		st, err := s.read(ctx, tx, k)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err == nil {
			result = st
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, dashboard.ErrStateConflict
}
