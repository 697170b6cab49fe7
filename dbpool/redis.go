package dbpool

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSession is one pooled, dedicated connection to the Redis backend.
type RedisSession struct {
	conn *redis.Conn
}

// Conn returns the dedicated connection for issuing commands.
func (s *RedisSession) Conn() *redis.Conn {
	return s.conn
}

// Close implements Backend.
func (s *RedisSession) Close() error {
	return s.conn.Close()
}

// RedisOptions configures a Redis-backed pool.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Size     int
}

// NewRedis builds a pool of opts.Size dedicated Redis connections. Each
// connection is verified with PING during construction; any failure aborts
// construction entirely.
//
// Parameters:
//   - ctx: Context bounding the construction dials
//   - opts: Backend address, credentials, and pool size
//
// Returns:
//   - The constructed pool, or an error if any connection could not be
//     established
func NewRedis(ctx context.Context, opts RedisOptions) (*Pool, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	p, err := New(ctx, opts.Size, func(ctx context.Context) (Backend, error) {
		conn := client.Conn()
		if err := conn.Ping(ctx).Err(); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &RedisSession{conn: conn}, nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	p.owner = client
	return p, nil
}
