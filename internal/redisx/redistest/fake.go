// Package redistest is an in-memory stand-in for the handful of Redis commands the services use.
// Anything not overridden panics through the nil embedded Cmdable.
package redistest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Fake struct {
	redis.Cmdable

	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
}

func New() *Fake {
	return &Fake{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

// ExpiryOf returns the expiry last set on key.
func (f *Fake) ExpiryOf(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ttls[key]
}

func (f *Fake) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *Fake) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	v, ok := f.strings[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *Fake) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = toString(value)
	f.ttls[key] = exp
	cmd := redis.NewStatusCmd(ctx, "set", key)
	cmd.SetVal("OK")
	return cmd
}

func (f *Fake) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx, "setnx", key)
	if _, ok := f.strings[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.strings[key] = toString(value)
	f.ttls[key] = exp
	cmd.SetVal(true)
	return cmd
}

func (f *Fake) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.strings[k]; ok {
			n++
		}
		if _, ok := f.hashes[k]; ok {
			n++
		}
		delete(f.strings, k)
		delete(f.hashes, k)
		delete(f.ttls, k)
	}
	cmd := redis.NewIntCmd(ctx, "del")
	cmd.SetVal(n)
	return cmd
}

func (f *Fake) Expire(ctx context.Context, key string, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, isString := f.strings[key]
	_, isHash := f.hashes[key]
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	if isString || isHash {
		f.ttls[key] = exp
	}
	cmd.SetVal(isString || isHash)
	return cmd
}

func (f *Fake) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	cur, _ := strconv.ParseInt(h[field], 10, 64)
	cur += incr
	h[field] = strconv.FormatInt(cur, 10)
	cmd := redis.NewIntCmd(ctx, "hincrby", key, field)
	cmd.SetVal(cur)
	return cmd
}

func (f *Fake) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	cmd := redis.NewMapStringStringCmd(ctx, "hgetall", key)
	cmd.SetVal(out)
	return cmd
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
