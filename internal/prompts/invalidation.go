package prompts

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/JaimeStill/promptvault/pkg/cache"
)

// CacheInvalidator owns the cache key scheme for prompt reads. Every cached
// read of a name is recorded under that name's index so one call drops the
// entries for every version and label.
type CacheInvalidator struct {
	cache cache.System
}

// NewCacheInvalidator creates an invalidator over c.
func NewCacheInvalidator(c cache.System) *CacheInvalidator {
	return &CacheInvalidator{cache: c}
}

// Invalidate drops every cached read for (projectID, name) and returns the
// number of entries removed.
func (i *CacheInvalidator) Invalidate(ctx context.Context, projectID, name string) (int, error) {
	return i.cache.Invalidate(ctx, indexKey(projectID, name))
}

func (i *CacheInvalidator) get(ctx context.Context, q FindQuery) (*PromptVersion, bool, error) {
	data, ok, err := i.cache.Get(ctx, entryKey(q))
	if err != nil || !ok {
		return nil, false, err
	}

	var p PromptVersion
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// generation returns the invalidation count for the name. It must be read
// before the store so a put can detect an invalidation that raced the read.
func (i *CacheInvalidator) generation(ctx context.Context, projectID, name string) (int64, error) {
	return i.cache.Generation(ctx, indexKey(projectID, name))
}

// put caches p unless the name was invalidated since gen was read.
func (i *CacheInvalidator) put(ctx context.Context, q FindQuery, gen int64, p *PromptVersion) (bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, err
	}
	return i.cache.Set(ctx, indexKey(q.ProjectID, q.Name), entryKey(q), gen, data, 0)
}

// The braces are a Redis hash tag: every key of one name maps to the same
// cluster slot, which the cache scripts require.
func nameKey(projectID, name string) string {
	return "prompt:{" + url.QueryEscape(projectID) + ":" + url.QueryEscape(name) + "}"
}

func indexKey(projectID, name string) string {
	return nameKey(projectID, name) + ":keys"
}

func entryKey(q FindQuery) string {
	base := nameKey(q.ProjectID, q.Name)
	if q.Version != nil {
		return base + ":version:" + strconv.Itoa(*q.Version)
	}
	return base + ":label:" + url.QueryEscape(q.Resolve())
}
