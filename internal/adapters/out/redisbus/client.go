// Package redisbus carries notifications, domain events and order snapshots
// over Redis pub/sub, and provides the lock that keeps scheduled jobs
// exclusive across instances.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyNamespace = "orderflow"

type Options struct {
	URL          string
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	ro, err := redisOptions(opts)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func redisOptions(opts Options) (*redis.Options, error) {
	if opts.URL == "" && opts.Address == "" {
		return nil, errors.New("redis url or address is required")
	}

	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		ro = parsed
	} else {
		ro = &redis.Options{Addr: opts.Address, Password: opts.Password, DB: opts.DB}
	}

	if ro.PoolSize == 0 {
		ro.PoolSize = opts.PoolSize
	}
	if ro.DialTimeout == 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if ro.ReadTimeout == 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if ro.WriteTimeout == 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}
	return ro, nil
}

func key(parts ...string) string {
	return keyNamespace + ":" + strings.Join(parts, ":")
}

// publisher is the part of *redis.Client used to broadcast messages.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}
