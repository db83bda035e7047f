// Package natskv implements the fixed-window counter on a NATS JetStream
// key-value bucket, shared by every vault instance.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Counter counts requests per key per fixed window. Window buckets expire
// out of the KV store via its TTL.
type Counter struct {
	kv jetstream.KeyValue
}

// NewCounter creates (or binds to) the named KV bucket. The bucket TTL is
// twice the window so stale buckets vanish on their own.
func NewCounter(ctx context.Context, nc *nats.Conn, bucket string, window time.Duration) (*Counter, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    2 * window,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket %s: %w", bucket, err)
	}

	return &Counter{kv: kv}, nil
}

// Incr bumps the key's count in the current window and returns the total.
// Concurrent writers race on the KV revision; the CAS loop retries a few
// times before giving up.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	bucketKey := fmt.Sprintf("%s.%d", key, time.Now().UnixNano()/int64(window))

	for range 5 {
		entry, err := c.kv.Get(ctx, bucketKey)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			if _, err := c.kv.Create(ctx, bucketKey, []byte("1")); err == nil {
				return 1, nil
			} else if !errors.Is(err, jetstream.ErrKeyExists) {
				return 0, fmt.Errorf("create counter %s: %w", bucketKey, err)
			}
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("get counter %s: %w", bucketKey, err)
		}

		n, _ := strconv.ParseInt(string(entry.Value()), 10, 64)
		n++
		if _, err := c.kv.Update(ctx, bucketKey, []byte(strconv.FormatInt(n, 10)), entry.Revision()); err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("incr counter %s: revision contention", bucketKey)
}
