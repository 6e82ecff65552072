// Package presence mirrors live room membership into redis for services
// that list rooms and their occupants.
package presence

import (
	"context"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	URL         string
	PingTimeout time.Duration
}

func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// RedisPresenceStore keeps, per room, a ZSet of connection ids scored by
// join time and a hash of connection id to username.
type RedisPresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPresenceStore(rdb *redis.Client, ttl time.Duration) *RedisPresenceStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisPresenceStore{rdb: rdb, ttl: ttl}
}

func membersKey(room domain.RoomID) string { return "presence:" + string(room) }
func usersKey(room domain.RoomID) string   { return "presence:" + string(room) + ":users" }

func (p *RedisPresenceStore) Enter(ctx context.Context, room domain.RoomID, conn core.ConnectionID, user domain.User) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, membersKey(room), redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: string(conn),
		})
		pipe.HSet(ctx, usersKey(room), string(conn), user.Username)
		// Keys outlive a crashed coordinator by at most ttl.
		pipe.Expire(ctx, membersKey(room), p.ttl)
		pipe.Expire(ctx, usersKey(room), p.ttl)
		return nil
	})
	return err
}

func (p *RedisPresenceStore) Exit(ctx context.Context, room domain.RoomID, conn core.ConnectionID) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, membersKey(room), string(conn))
		pipe.HDel(ctx, usersKey(room), string(conn))
		return nil
	})
	return err
}

// Occupants returns the usernames present in room, oldest join first.
func (p *RedisPresenceStore) Occupants(ctx context.Context, room domain.RoomID) ([]string, error) {
	conns, err := p.rdb.ZRange(ctx, membersKey(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []string{}, nil
	}
	names, err := p.rdb.HMGet(ctx, usersKey(room), conns...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
