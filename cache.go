package pff

import lru "github.com/hashicorp/golang-lru/v2"

// nodeCache bounds the index-node cache (C6) and the local-descriptor node
// cache (C7) to a fixed entry count, evicting least-recently-used entries
// first, per §5: "Caches ... have bounded entries. Eviction is LRU by
// ordinal." A missing entry triggers a re-read from the Source; it can
// never be stale because the underlying bytes are read-only.
type nodeCache[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

func newNodeCache[K comparable, V any](size int) *nodeCache[K, V] {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[K, V](size)
	if err != nil {
		// Only returns an error for size <= 0, excluded above.
		panic(err)
	}
	return &nodeCache[K, V]{c: c}
}

func (n *nodeCache[K, V]) get(k K) (V, bool) {
	return n.c.Get(k)
}

func (n *nodeCache[K, V]) put(k K, v V) {
	n.c.Add(k, v)
}

func (n *nodeCache[K, V]) purge() {
	n.c.Purge()
}
