package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

type StoreOptions struct {
	Driver        string
	BoltPath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// OpenStore builds the Store named by opts.Driver.
func OpenStore(ctx context.Context, opts StoreOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverBolt:
		return NewBoltStore(opts.BoltPath)
	case DriverRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown conversation store: %q", opts.Driver)
	}
}
