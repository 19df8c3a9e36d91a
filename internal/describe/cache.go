// SPDX-License-Identifier: MPL-2.0

package describe

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/keinus/make-sps/pkg/fingerprint"
	"github.com/keinus/make-sps/pkg/record"
)

// Cached memoizes descriptions by content checksum, so byte-identical files
// are described once. Subjects without a usable checksum bypass the cache.
// Errors are not cached.
type Cached struct {
	next  record.Describer
	cache *lru.Cache[string, string]
}

// NewCached wraps next in an LRU cache holding up to size descriptions.
func NewCached(next record.Describer, size int) (*Cached, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating description cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Describe implements record.Describer.
func (c *Cached) Describe(ctx context.Context, s record.Subject) (string, error) {
	key := s.Checksum
	if key == "" || key == fingerprint.ErrorSentinel {
		return c.next.Describe(ctx, s)
	}
	if desc, ok := c.cache.Get(key); ok {
		return desc, nil
	}
	desc, err := c.next.Describe(ctx, s)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, desc)
	return desc, nil
}

// Len returns the number of cached descriptions.
func (c *Cached) Len() int { return c.cache.Len() }
