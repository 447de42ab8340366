package config

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient builds the Redis client behind the seat grid cache and the
// hold rate limiter.  REDIS_URL wins when set; otherwise the client is
// built from
//
//	REDIS_ADDR or REDIS_HOST + REDIS_PORT (default localhost:6379)
//	REDIS_PASSWORD, REDIS_DB, REDIS_TLS
//
// It returns nil when Redis is disabled (REDIS_ENABLED=false) or does not
// answer a ping, and callers then run without cache and limiter.
func NewRedisClient(log *zap.Logger) *redis.Client {
	if !envBool("REDIS_ENABLED", true) {
		return nil
	}
	opts, err := redisOptions()
	if err != nil {
		log.Warn("invalid REDIS_URL", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed", zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client
}

func redisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return redis.ParseURL(url)
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
