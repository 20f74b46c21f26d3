package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "mb"
	updatePrefix    = "update"
	rateLimitPrefix = "rate_limit"
	lockPrefix      = "lock"
)

var errNotInitialized = errors.New("redis client not initialized")

// hitWindow increments the counter, starts the window on the first hit and
// returns {count, remaining ms}.
const hitWindow = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

// releaseOwned deletes KEYS[1] only while it still holds ARGV[1].
const releaseOwned = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Client wraps the redis helpers the bot relies on: update dedupe, fixed
// window rate limits and job locks. Every key lives under the "mb" namespace.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Window is a fixed-window counter after one hit.
type Window struct {
	Count   int64
	Limit   int64
	ResetIn time.Duration
}

func (w Window) Allowed() bool { return w.Count <= w.Limit }

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		if parsed.DB == 0 {
			parsed.DB = cfg.DB
		}
		opts = parsed
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	return opts, nil
}

// FixedWindowAllow counts one hit against scope. The window opens on the
// first hit and is never extended by later ones.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	if c.store == nil {
		return Window{}, errNotInitialized
	}
	vals, err := c.store.Eval(ctx, hitWindow, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("rate window %s: %w", scope, err)
	}
	if len(vals) != 2 {
		return Window{}, fmt.Errorf("rate window %s: unexpected reply %v", scope, vals)
	}
	resetIn := window
	if vals[1] > 0 {
		resetIn = time.Duration(vals[1]) * time.Millisecond
	}
	return Window{Count: vals[0], Limit: limit, ResetIn: resetIn}, nil
}

// MarkUpdate records a transport update id and reports whether it was seen for the first time.
func (c *Client) MarkUpdate(ctx context.Context, updateID int64, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, c.UpdateKey(updateID), 1, ttl)
}

// ForgetUpdate clears a mark so a redelivered update is processed again.
func (c *Client) ForgetUpdate(ctx context.Context, updateID int64) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, c.UpdateKey(updateID)).Err()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// ReleaseOwned deletes key if it still holds owner and reports whether it did.
func (c *Client) ReleaseOwned(ctx context.Context, key, owner string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	n, err := c.store.Eval(ctx, releaseOwned, []string{key}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("release %s: %w", key, err)
	}
	return n == 1, nil
}

func (c *Client) UpdateKey(updateID int64) string {
	return c.buildKey(updatePrefix, strconv.FormatInt(updateID, 10))
}

func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
