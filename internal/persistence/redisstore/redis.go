// Package redisstore keeps encoded chunks in Redis under
// <prefix>:chunk:<cx>:<cy>.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"islecraft.ai/internal/persistence/chunkfile"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

const (
	DefaultPrefix  = "islecraft"
	DefaultTimeout = 2 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	size    int
}

// Open connects and pings the server.
func Open(cfg Config, size int) (*Redis, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, prefix: cfg.Prefix, timeout: cfg.Timeout, size: size}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func keyFor(prefix string, cx, cy int) string {
	return fmt.Sprintf("%s:chunk:%d:%d", prefix, cx, cy)
}

func (r *Redis) LoadChunk(cx, cy, size int) ([]tile.Tile, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, keyFor(r.prefix, cx, cy)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	tiles, err := chunkfile.Decode(data, size)
	if err != nil {
		return nil, false, err
	}
	return tiles, true, nil
}

func (r *Redis) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	data, err := chunkfile.Encode(r.size, tiles)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, keyFor(r.prefix, cx, cy), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// ClearAll deletes every chunk key under the prefix.
func (r *Redis) ClearAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*r.timeout)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.prefix+":chunk:*", 512).Iterator()
	batch := make([]string, 0, 512)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Keys lists stored chunk coordinates, sorted by (cx, cy).
func (r *Redis) Keys() ([][2]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*r.timeout)
	defer cancel()

	var out [][2]int
	iter := r.client.Scan(ctx, 0, r.prefix+":chunk:*", 512).Iterator()
	for iter.Next(ctx) {
		if k, ok := parseKey(r.prefix, iter.Val()); ok {
			out = append(out, k)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	return out, nil
}

func parseKey(prefix, key string) ([2]int, bool) {
	var cx, cy int
	rest, ok := strings.CutPrefix(key, prefix+":chunk:")
	if !ok {
		return [2]int{}, false
	}
	if _, err := fmt.Sscanf(rest, "%d:%d", &cx, &cy); err != nil {
		return [2]int{}, false
	}
	return [2]int{cx, cy}, true
}
