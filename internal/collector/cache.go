package collector

import (
	"container/list"
	"sync"

	"StockForecast/internal/model"
)

// Cache stores loaded series by key.
type Cache interface {
	Get(key string) (*model.PriceSeries, bool)
	Put(key string, s *model.PriceSeries)
	Len() int
}

var _ Cache = (*MemoryCache)(nil)

// MemoryCache is an in-process Cache. MaxEntries 0 keeps every entry;
// a positive value evicts the least recently used entry once exceeded.
type MemoryCache struct {
	MaxEntries int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key    string
	series *model.PriceSeries
}

// NewMemoryCache creates a cache holding at most maxEntries series (0 = unbounded).
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		MaxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (c *MemoryCache) lazyInit() {
	if c.items == nil {
		c.ll = list.New()
		c.items = make(map[string]*list.Element)
	}
}

func (c *MemoryCache) Get(key string) (*model.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lazyInit()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).series, true
}

func (c *MemoryCache) Put(key string, s *model.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lazyInit()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).series = s
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, series: s})
	if c.MaxEntries > 0 && c.ll.Len() > c.MaxEntries {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ll == nil {
		return 0
	}
	return c.ll.Len()
}
