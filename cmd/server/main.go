// Command server runs the chat backend: a TCP listener speaking the
// length-prefixed JSON protocol, with credentials and history in Redis or,
// with -memory, in process memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberinferno/go-chat/chat"
	"github.com/cyberinferno/go-chat/dbpool"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/store"
)

const serviceName = "chat-server"

func main() {
	var (
		addr          = flag.String("addr", ":9000", "TCP listen address")
		redisAddr     = flag.String("redis-addr", "localhost:6379", "Redis address")
		redisUser     = flag.String("redis-user", "", "Redis username")
		redisPassword = flag.String("redis-password", "", "Redis password")
		redisDB       = flag.Int("redis-db", 0, "Redis database number")
		poolSize      = flag.Int("pool-size", 10, "number of pooled backend sessions")
		memory        = flag.Bool("memory", false, "use in-memory stores instead of Redis")
		logDir        = flag.String("log-dir", "logs", "directory for rotated log files")
		logLevel      = flag.String("log-level", "info", "minimum log level")
		maxFrame      = flag.Uint("max-frame", 0, "maximum inbound frame size in bytes (0 for default)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}

	log, err := logger.NewFile(serviceName, *logDir, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up log files: %v\n", err)
		log = logger.New(os.Stdout, serviceName, level)
	}
	defer func() { _ = log.Close() }()

	var (
		users    store.Users
		messages store.Messages
	)
	if *memory {
		log.Info("using in-memory stores")
		users = store.NewMemoryUsers(log)
		messages = store.NewMemoryMessages(log)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pool, err := dbpool.NewRedis(ctx, dbpool.RedisOptions{
			Addr:     *redisAddr,
			Username: *redisUser,
			Password: *redisPassword,
			DB:       *redisDB,
			Size:     *poolSize,
		})
		cancel()
		if err != nil {
			// A partially usable pool is worse than no server at all.
			log.Error("backend pool construction failed", logger.Field{Key: "error", Value: err})
			os.Exit(1)
		}
		defer func() { _ = pool.Close() }()

		log.Info("backend pool ready",
			logger.Field{Key: "addr", Value: *redisAddr},
			logger.Field{Key: "size", Value: pool.Size()})
		users = store.NewRedisUsers(pool, log)
		messages = store.NewRedisMessages(pool, log)
	}

	server := chat.NewServer(chat.Config{
		Addr:        *addr,
		MaxFrameLen: uint32(*maxFrame),
	}, users, messages, log)

	if err := server.Start(); err != nil {
		log.Error("server start failed", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	server.Stop()
}
