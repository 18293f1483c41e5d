package reader

import (
	"container/list"
)

// byteCache is a cost-bound LRU mapping "{path}:{offset}:{size}" -> payload
// bytes (§4.3). There is no ecosystem LRU-by-cost cache in the example
// pack (jellydator/ttlcache bounds by entry count, not byte cost), so this
// is hand-rolled container/list + map, the same structure the teacher uses
// for its in-memory queue list (queue/queue.go's container/list head).
type byteCache struct {
	budget    int64
	used      int64
	ll        *list.List
	items     map[string]*list.Element
}

type byteCacheEntry struct {
	key   string
	value []byte
}

func newByteCache(budgetBytes int64) *byteCache {
	return &byteCache{
		budget: budgetBytes,
		ll:     list.New(),
		items:  make(map[string]*list.Element),
	}
}

func (c *byteCache) get(key string) ([]byte, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*byteCacheEntry).value, true
}

// put inserts the entry, evicting least-recently-used entries until it fits
// under budget. An entry larger than the whole budget bypasses the cache
// entirely (§4.3: "a single entry may not exceed the budget").
func (c *byteCache) put(key string, value []byte) {
	cost := int64(len(value))
	if cost > c.budget {
		return
	}

	if el, ok := c.items[key]; ok {
		c.used -= int64(len(el.Value.(*byteCacheEntry).value))
		c.ll.Remove(el)
		delete(c.items, key)
	}

	for c.used+cost > c.budget && c.ll.Len() > 0 {
		c.evictOldest()
	}

	el := c.ll.PushFront(&byteCacheEntry{key: key, value: value})
	c.items[key] = el
	c.used += cost
}

func (c *byteCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*byteCacheEntry)
	c.used -= int64(len(entry.value))
	c.ll.Remove(el)
	delete(c.items, entry.key)
}

func (c *byteCache) setBudget(budgetBytes int64) {
	c.budget = budgetBytes
	for c.used > c.budget && c.ll.Len() > 0 {
		c.evictOldest()
	}
}

func (c *byteCache) clear() {
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.used = 0
}
