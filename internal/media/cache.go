package media

import (
	"container/list"
	"image"
	"sync"
)

// imageCache is a small LRU of decoded images keyed by source.
type imageCache struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	source string
	img    image.Image
}

func newImageCache(size int) *imageCache {
	if size < 1 {
		size = 1
	}
	return &imageCache{size: size, order: list.New(), items: make(map[string]*list.Element)}
}

func (c *imageCache) get(source string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[source]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e)
	return e.Value.(*cacheEntry).img, true
}

func (c *imageCache) put(source string, img image.Image) {
	if source == "" || img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[source]; ok {
		e.Value.(*cacheEntry).img = img
		c.order.MoveToFront(e)
		return
	}
	c.items[source] = c.order.PushFront(&cacheEntry{source: source, img: img})
	for c.order.Len() > c.size {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).source)
	}
}
