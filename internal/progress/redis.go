package progress

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

const (
	redisKeyPrefix     = "plan:progress:"
	redisChannelPrefix = "plan:progress:channel:"
)

// RedisSubstrate stores progress in Redis with SETEX and publishes every
// update to a per-task channel, so subscribers in other processes see the
// same stream. It implements both Substrate and Broadcaster.
type RedisSubstrate struct {
	client *redis.Client
}

// NewRedisSubstrate wraps an existing Redis client.
func NewRedisSubstrate(client *redis.Client) *RedisSubstrate {
	return &RedisSubstrate{client: client}
}

// Store writes the update with the standard TTL and publishes it.
func (r *RedisSubstrate) Store(ctx context.Context, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "marshal progress update", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+u.TaskID.String(), data, TTL).Err(); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "store progress update", err)
	}

	if err := r.client.Publish(ctx, redisChannelPrefix+u.TaskID.String(), data).Err(); err != nil {
		return types.WrapError(types.STORE_QUERY_FAILED, "publish progress update", err)
	}
	return nil
}

// Load reads the latest update for a task.
func (r *RedisSubstrate) Load(ctx context.Context, taskID types.ID) (Update, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+taskID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Update{}, false, nil
	}
	if err != nil {
		return Update{}, false, types.WrapError(types.STORE_QUERY_FAILED, "load progress update", err)
	}

	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, false, types.WrapError(types.STORE_QUERY_FAILED, "decode progress update", err)
	}
	return u, true, nil
}

// Channel subscribes to the task's Redis channel. The stream closes after a
// terminal update or when the cancel function runs.
func (r *RedisSubstrate) Channel(ctx context.Context, taskID types.ID) (<-chan Update, func(), error) {
	pubsub := r.client.Subscribe(ctx, redisChannelPrefix+taskID.String())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, types.WrapError(types.STORE_QUERY_FAILED, "subscribe to progress channel", err)
	}

	out := make(chan Update, defaultBufferSize)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var u Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
			if u.Terminal() {
				return
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}
