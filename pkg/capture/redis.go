package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
)

// flowKeyPrefix namespaces flow entries in Redis.
const flowKeyPrefix = "capture:flow:"

// consumeAttempts bounds optimistic-lock retries when Consume loses a WATCH
// race against another gateway instance.
const consumeAttempts = 3

// RedisStore is a Redis-backed SessionStore for deployments where multiple
// gateway instances share capture sessions. Expiry is delegated to Redis
// key TTLs.
//
// RedisStore does not maintain the active-flows gauge: the store is shared
// across instances and keys expire server-side, so a per-process gauge
// would drift. The gauge is only meaningful with the in-memory store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Put implements SessionStore.
func (s *RedisStore) Put(ctx context.Context, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return apperrors.GeneralError(fmt.Errorf("marshaling flow %s: %w", flow.ID, err))
	}
	if err := s.client.Set(ctx, flowKeyPrefix+flow.ID, data, s.ttl).Err(); err != nil {
		return apperrors.DependencyError(
			fmt.Errorf("storing flow %s: %w", flow.ID, err), "session store unavailable")
	}
	return nil
}

// Get implements SessionStore.
func (s *RedisStore) Get(ctx context.Context, id string) (*Flow, error) {
	data, err := s.client.Get(ctx, flowKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ResourceNotFoundError(
			fmt.Errorf("flow %s not found", id), "capture flow not found or expired")
	}
	if err != nil {
		return nil, apperrors.DependencyError(
			fmt.Errorf("loading flow %s: %w", id, err), "session store unavailable")
	}

	flow := &Flow{}
	if err := json.Unmarshal(data, flow); err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("unmarshaling flow %s: %w", id, err))
	}
	return flow, nil
}

// Consume implements SessionStore. The flow key is WATCHed across the
// read-check-write, so when two gateway instances race for the same
// captured flow the transaction of the loser aborts instead of writing a
// second submitting state over the first.
func (s *RedisStore) Consume(ctx context.Context, id string) (*Flow, error) {
	key := flowKeyPrefix + id
	var consumed *Flow

	claim := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperrors.ResourceNotFoundError(
				fmt.Errorf("flow %s not found", id), "capture flow not found or expired")
		}
		if err != nil {
			return apperrors.DependencyError(
				fmt.Errorf("loading flow %s: %w", id, err), "session store unavailable")
		}

		flow := &Flow{}
		if err := json.Unmarshal(data, flow); err != nil {
			return apperrors.GeneralError(fmt.Errorf("unmarshaling flow %s: %w", id, err))
		}
		if err := flow.MarkSubmitting(); err != nil {
			return err
		}

		out, err := json.Marshal(flow)
		if err != nil {
			return apperrors.GeneralError(fmt.Errorf("marshaling flow %s: %w", id, err))
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = flow
		return nil
	}

	for attempt := 0; attempt < consumeAttempts; attempt++ {
		err := s.client.Watch(ctx, claim, key)
		switch {
		case err == nil:
			return consumed, nil
		case errors.Is(err, redis.TxFailedErr):
			// Another instance wrote the flow mid-claim; re-read it. If it
			// was claimed for submission, the retry sees submitting and
			// returns the conflict.
			continue
		default:
			var svcErr *apperrors.ServiceError
			if errors.As(err, &svcErr) {
				return nil, err
			}
			return nil, apperrors.DependencyError(
				fmt.Errorf("consuming flow %s: %w", id, err), "session store unavailable")
		}
	}
	return nil, apperrors.DependencyError(
		fmt.Errorf("flow %s: watch contention after %d attempts", id, consumeAttempts),
		"session store contention")
}

// Delete implements SessionStore.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, flowKeyPrefix+id).Err(); err != nil {
		return apperrors.DependencyError(
			fmt.Errorf("deleting flow %s: %w", id, err), "session store unavailable")
	}
	return nil
}
