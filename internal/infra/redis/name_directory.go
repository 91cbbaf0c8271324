package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// NameSource is a slower directory consulted when Redis has no entry.
type NameSource interface {
	Lookup(ctx context.Context, uid string) (string, bool, error)
}

// NameDirectory caches display names in Redis so every instance resolves the same names.
// Names are stored as: SET trivia:name:{uid} {name} EX ttl
type NameDirectory struct {
	client   *redis.Client
	fallback NameSource
	ttl      time.Duration
	sf       singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewNameDirectory builds a directory; fallback may be nil.
func NewNameDirectory(client *redis.Client, fallback NameSource, ttl time.Duration) *NameDirectory {
	return &NameDirectory{
		client:   client,
		fallback: fallback,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *NameDirectory) Remember(ctx context.Context, uid, name string) error {
	return d.client.Set(ctx, d.key(uid), name, d.ttlWithJitter()).Err()
}

func (d *NameDirectory) Lookup(ctx context.Context, uid string) (string, bool, error) {
	name, err := d.client.Get(ctx, d.key(uid)).Result()
	if err == nil {
		return name, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", false, err
	}
	if d.fallback == nil {
		return "", false, nil
	}

	result, err, _ := d.sf.Do(uid, func() (interface{}, error) {
		// Re-check in case a concurrent Remember filled it.
		if name, err := d.client.Get(ctx, d.key(uid)).Result(); err == nil {
			return name, nil
		}
		name, ok, err := d.fallback.Lookup(ctx, uid)
		if err != nil || !ok {
			return "", err
		}
		_ = d.client.Set(ctx, d.key(uid), name, d.ttlWithJitter()).Err()
		return name, nil
	})
	if err != nil {
		return "", false, err
	}
	name = result.(string)
	return name, name != "", nil
}

func (d *NameDirectory) key(uid string) string {
	return "trivia:name:" + uid
}

func (d *NameDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	jitterMax := int64(d.ttl) / 10
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
