package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wans112/web-toko/internal/domain"
)

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

// setPresenceScript writes one user's flag and returns the previous
// {is_online, last_heartbeat_at}. The sorted set mirrors online users scored
// by last heartbeat (unix millis).
var setPresenceScript = redis.NewScript(`
local prev = redis.call('HMGET', KEYS[1], 'is_online', 'last_heartbeat_at')
if ARGV[1] == '1' then
  redis.call('HSET', KEYS[1], 'is_online', '1', 'last_heartbeat_at', ARGV[2])
  redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
else
  redis.call('HSET', KEYS[1], 'is_online', '0')
  redis.call('HSETNX', KEYS[1], 'last_heartbeat_at', '0')
  redis.call('ZREM', KEYS[2], ARGV[3])
end
return prev
`)

// expirePresenceScript flips every online user scored at or below the cutoff.
var expirePresenceScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('HSET', ARGV[2] .. id, 'is_online', '0')
end
return ids
`)

type redisPresenceRepository struct {
	client redis.UniversalClient
}

// NewRedisPresenceRepository returns a Redis-backed implementation.
func NewRedisPresenceRepository(client redis.UniversalClient) PresenceRepository {
	return &redisPresenceRepository{client: client}
}

func presenceKey(userID string) string {
	return presenceKeyPrefix + userID
}

func (r *redisPresenceRepository) Set(ctx context.Context, userID string, online bool, at time.Time) (domain.PresenceRecord, error) {
	flag := "0"
	if online {
		flag = "1"
	}
	res, err := setPresenceScript.Run(ctx, r.client,
		[]string{presenceKey(userID), presenceOnlineSet},
		flag, at.UnixMilli(), userID,
	).Slice()
	if err != nil {
		return domain.PresenceRecord{}, fmt.Errorf("set presence: %w", err)
	}
	if len(res) != 2 || res[0] == nil {
		return domain.PresenceRecord{}, nil
	}
	return decodePresence(userID, res[0], res[1])
}

func (r *redisPresenceRepository) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	res, err := r.client.HMGet(ctx, presenceKey(userID), "is_online", "last_heartbeat_at").Result()
	if err != nil {
		return domain.PresenceRecord{}, fmt.Errorf("get presence: %w", err)
	}
	if len(res) != 2 || res[0] == nil {
		return domain.PresenceRecord{}, ErrNotFound
	}
	return decodePresence(userID, res[0], res[1])
}

func (r *redisPresenceRepository) ListOnline(ctx context.Context) ([]domain.PresenceRecord, error) {
	members, err := r.client.ZRangeWithScores(ctx, presenceOnlineSet, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}
	out := make([]domain.PresenceRecord, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		out = append(out, domain.PresenceRecord{
			UserID:          id,
			IsOnline:        true,
			LastHeartbeatAt: fromMillis(int64(m.Score)),
		})
	}
	return out, nil
}

func (r *redisPresenceRepository) ExpireBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := expirePresenceScript.Run(ctx, r.client,
		[]string{presenceOnlineSet},
		cutoff.UnixMilli(), presenceKeyPrefix,
	).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("expire presence: %w", err)
	}
	return ids, nil
}

func decodePresence(userID string, flag, last any) (domain.PresenceRecord, error) {
	rec := domain.PresenceRecord{UserID: userID}
	if s, ok := flag.(string); ok {
		rec.IsOnline = s == "1"
	}
	if s, ok := last.(string); ok && s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.PresenceRecord{}, fmt.Errorf("decode presence %s: %w", userID, err)
		}
		rec.LastHeartbeatAt = fromMillis(ms)
	}
	return rec, nil
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
