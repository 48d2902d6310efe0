package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const snapshotTTL = 24 * time.Hour

type Cache struct {
	Client *redis.Client
}

func New(addr, pass string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return &Cache{Client: rdb}
}

func snapshotKey(eventID uuid.UUID) string {
	return "event:snap:" + eventID.String()
}

func (c *Cache) GetEventSnapshot(ctx context.Context, eventID uuid.UUID) (domain.EventSnapshot, error) {
	val, err := c.Client.Get(ctx, snapshotKey(eventID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EventSnapshot{}, domain.ErrCacheMiss
		}
		return domain.EventSnapshot{}, err
	}

	var snap snapshotPayload
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		// A corrupt entry is as good as no entry.
		return domain.EventSnapshot{}, domain.ErrCacheMiss
	}
	return domain.EventSnapshot{
		State:            domain.EventState(snap.State),
		ParticipantLimit: snap.ParticipantLimit,
	}, nil
}

func (c *Cache) SetEventSnapshot(ctx context.Context, eventID uuid.UUID, snap domain.EventSnapshot) error {
	raw, err := json.Marshal(snapshotPayload{
		State:            string(snap.State),
		ParticipantLimit: snap.ParticipantLimit,
	})
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, snapshotKey(eventID), raw, snapshotTTL).Err()
}

type snapshotPayload struct {
	State            string `json:"state"`
	ParticipantLimit int    `json:"participant_limit"`
}

// AllowRequest: Simple Fixed Window Rate Limit
func (c *Cache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:" + ip
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, nil // fail open
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return count <= int64(limit), nil
}
