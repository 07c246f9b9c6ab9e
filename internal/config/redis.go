package config

// Redis backs the distributed rate limiter and the response cache. When the
// server is unreachable at startup NewRedisClient returns nil and both
// features degrade: the limiter falls back to process memory and the cache
// is disabled.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// NewRedisClient instantiates a Redis client from REDIS_ADDR or
// REDIS_HOST/REDIS_PORT, REDIS_PASSWORD, REDIS_DB and REDIS_TLS. It pings
// the server and returns nil on failure.
func NewRedisClient(log logrus.FieldLogger) *redis.Client {
    if !envBool("REDIS_ENABLED", true) {
        return nil
    }
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
        dbNum = n
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.WithError(err).WithField("addr", addr).Warn("redis unavailable, using in-memory rate limiting without cache")
        _ = client.Close()
        return nil
    }
    return client
}
