package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/marketplace/internal/core/domain"
)

const (
	defaultEventPrefix = "marketplace:events"
	defaultBucketTTL   = 24 * time.Hour
)

// RedisAdapter keeps event counters in Redis hashes:
//
//	<prefix>:total                  field "<kind>:<ok|rejected>"
//	<prefix>:minute:<yyyymmddhhmm>  same fields, expiring
//	<prefix>:producer:<id>          field "<kind>:<ok|rejected>" and "sold"
type RedisAdapter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisAdapter)

func WithPrefix(prefix string) RedisOption {
	return func(r *RedisAdapter) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

func WithBucketTTL(d time.Duration) RedisOption {
	return func(r *RedisAdapter) { r.ttl = d }
}

func NewRedisAdapter(client *redis.Client, opts ...RedisOption) *RedisAdapter {
	r := &RedisAdapter{
		client: client,
		prefix: defaultEventPrefix,
		ttl:    defaultBucketTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}

func (r *RedisAdapter) Record(ctx context.Context, ev domain.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Kind) + ":" + outcome(ev.OK)

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	bucketKey := r.prefix + ":minute:" + at.UTC().Format("200601021504")
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, bucketKey, r.ttl)
	}

	if ev.Producer != "" {
		pipe.HIncrBy(ctx, r.prefix+":producer:"+string(ev.Producer), field, 1)
	}

	if ev.Kind == domain.EventOrderPlaced {
		pipe.HIncrBy(ctx, r.prefix+":total", "order_lines", int64(len(ev.Lines)))
		for _, line := range ev.Lines {
			pipe.HIncrBy(ctx, r.prefix+":producer:"+string(line.Producer), "sold", 1)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisAdapter) Counters(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.prefix+":total").Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// ProducerCounters returns the counters recorded for one producer.
func (r *RedisAdapter) ProducerCounters(ctx context.Context, id domain.ProducerID) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.prefix+":producer:"+string(id)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[k] = n
		}
	}
	return out, nil
}

// Reset deletes every key under the prefix.
func (r *RedisAdapter) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
