package rules

import "sync"

// MapCache is a ProgramCache backed by a sync.Map. Entries never expire;
// rule sets are small and fixed for the lifetime of a Checker.
type MapCache struct {
	entries sync.Map
}

func NewMapCache() *MapCache {
	return &MapCache{}
}

func (c *MapCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Load(key)
}

func (c *MapCache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.entries.Store(key, value)
}
