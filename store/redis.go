package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyberinferno/go-chat/cacher"
	"github.com/cyberinferno/go-chat/dbpool"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

const (
	usersKey    = "chat:users"
	messagesKey = "chat:messages"

	historyCachePrefix = "history:"
	historyCacheTTL    = 30 * time.Second
)

// redisConn unwraps the dedicated connection held by a lease.
func redisConn(lease *dbpool.Lease) *redis.Conn {
	return lease.Backend().(*dbpool.RedisSession).Conn()
}

// RedisUsers is the Redis-backed credential store. Credentials live in a
// single hash keyed by username.
type RedisUsers struct {
	pool *dbpool.Pool
	log  logger.Logger
}

// NewRedisUsers creates a Users store over the given pool.
func NewRedisUsers(pool *dbpool.Pool, log logger.Logger) *RedisUsers {
	return &RedisUsers{pool: pool, log: log.With(logger.Field{Key: "component", Value: "user_store"})}
}

// Register implements Users.
func (s *RedisUsers) Register(ctx context.Context, username, password string) bool {
	if username == "" || len(password) < MinPasswordLen {
		s.log.Warn("register failed: invalid username or password",
			logger.Field{Key: "username", Value: username},
			logger.Field{Key: "reason", Value: "empty or password too short"})
		return false
	}

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		s.log.Error("failed to get backend session", logger.Field{Key: "error", Value: err})
		return false
	}
	defer lease.Release()

	conn := redisConn(lease)
	exists, err := conn.HExists(ctx, usersKey, username).Result()
	if err != nil {
		s.log.Error("register failed", logger.Field{Key: "username", Value: username}, logger.Field{Key: "error", Value: err})
		return false
	}
	if exists {
		s.log.Warn("register failed: username already exists", logger.Field{Key: "username", Value: username})
		return false
	}

	if err := conn.HSet(ctx, usersKey, username, password).Err(); err != nil {
		s.log.Error("register failed", logger.Field{Key: "username", Value: username}, logger.Field{Key: "error", Value: err})
		return false
	}

	s.log.Info("user registered", logger.Field{Key: "username", Value: username})
	return true
}

// CheckLogin implements Users.
func (s *RedisUsers) CheckLogin(ctx context.Context, username, password string) bool {
	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		s.log.Error("failed to get backend session", logger.Field{Key: "error", Value: err})
		return false
	}
	defer lease.Release()

	stored, err := redisConn(lease).HGet(ctx, usersKey, username).Result()
	if errors.Is(err, redis.Nil) {
		s.log.Warn("login failed: no such user", logger.Field{Key: "username", Value: username})
		return false
	}
	if err != nil {
		s.log.Error("login failed", logger.Field{Key: "username", Value: username}, logger.Field{Key: "error", Value: err})
		return false
	}

	ok := stored == password
	s.log.Info("login attempt", logger.Field{Key: "username", Value: username}, logger.Field{Key: "ok", Value: ok})
	return ok
}

// RedisMessages is the Redis-backed message store. Messages are appended as
// JSON rows to a single list; per-user history reads go through an in-memory
// read-through cache that is invalidated on every push.
type RedisMessages struct {
	pool    *dbpool.Pool
	log     logger.Logger
	history cacher.Cacher[[]protocol.ChatMsg]
}

// NewRedisMessages creates a Messages store over the given pool.
func NewRedisMessages(pool *dbpool.Pool, log logger.Logger) *RedisMessages {
	return &RedisMessages{
		pool:    pool,
		log:     log.With(logger.Field{Key: "component", Value: "message_store"}),
		history: cacher.NewMemoryCacher[[]protocol.ChatMsg](historyCacheTTL, time.Minute),
	}
}

// Push implements Messages.
func (s *RedisMessages) Push(ctx context.Context, msg protocol.ChatMsg) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("encode message failed", logger.Field{Key: "error", Value: err})
		return
	}

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		s.log.Error("insert message failed", logger.Field{Key: "error", Value: err})
		return
	}
	defer lease.Release()

	if err := redisConn(lease).RPush(ctx, messagesKey, data).Err(); err != nil {
		s.log.Error("insert message failed", logger.Field{Key: "error", Value: err})
		return
	}

	// Cached history is stale the moment a message lands.
	if _, err := s.history.DeleteByPrefix(ctx, historyCachePrefix); err != nil {
		s.log.Warn("history cache invalidation failed", logger.Field{Key: "error", Value: err})
	}
}

// Recent implements Messages.
func (s *RedisMessages) Recent(ctx context.Context, n int) []protocol.ChatMsg {
	if n <= 0 {
		n = DefaultHistoryCount
	}

	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		s.log.Error("history fetch failed", logger.Field{Key: "error", Value: err})
		return nil
	}
	defer lease.Release()

	rows, err := redisConn(lease).LRange(ctx, messagesKey, int64(-n), -1).Result()
	if err != nil {
		s.log.Error("history fetch failed", logger.Field{Key: "error", Value: err})
		return nil
	}

	return s.decodeRows(rows)
}

// ForUser implements Messages.
func (s *RedisMessages) ForUser(ctx context.Context, username string, n int) []protocol.ChatMsg {
	if n <= 0 {
		n = DefaultHistoryCount
	}

	key := fmt.Sprintf("%s%s:%d", historyCachePrefix, username, n)
	msgs, err := s.history.GetOrFetch(ctx, key, historyCacheTTL, func(ctx context.Context) ([]protocol.ChatMsg, error) {
		return s.fetchForUser(ctx, username, n)
	})
	if err != nil {
		s.log.Error("history fetch failed",
			logger.Field{Key: "username", Value: username},
			logger.Field{Key: "error", Value: err})
		return nil
	}

	return msgs
}

func (s *RedisMessages) fetchForUser(ctx context.Context, username string, n int) ([]protocol.ChatMsg, error) {
	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := redisConn(lease).LRange(ctx, messagesKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var out []protocol.ChatMsg
	for _, msg := range s.decodeRows(rows) {
		if msg.To == "" || msg.To == username || msg.From == username {
			out = append(out, msg)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}

	return out, nil
}

// decodeRows unmarshals stored rows, skipping any that fail to parse.
func (s *RedisMessages) decodeRows(rows []string) []protocol.ChatMsg {
	out := make([]protocol.ChatMsg, 0, len(rows))
	for _, row := range rows {
		var msg protocol.ChatMsg
		if err := json.Unmarshal([]byte(row), &msg); err != nil {
			s.log.Warn("skipping undecodable message row", logger.Field{Key: "error", Value: err})
			continue
		}
		out = append(out, msg)
	}

	return out
}
