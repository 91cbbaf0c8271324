package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// NameDirectory keeps the most relevant display names in an ARC cache.
type NameDirectory struct {
	cache *lru.ARCCache
}

func NewNameDirectory(size int) (*NameDirectory, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of arc cache: %w", err)
	}
	return &NameDirectory{cache: c}, nil
}

func (d *NameDirectory) Remember(_ context.Context, uid, name string) error {
	d.cache.Add(uid, name)
	return nil
}

func (d *NameDirectory) Lookup(_ context.Context, uid string) (string, bool, error) {
	v, ok := d.cache.Get(uid)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}
