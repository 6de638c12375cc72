package kread

import "github.com/delphix/libkdumpfile/kaddr"

// cacheSize is the read cache's fixed slot count.
const cacheSize = 4

// slot is one cache entry: a borrowed Buffer tagged with the address
// space it was fetched for, plus ring links to its neighbors.
type slot struct {
	space  kaddr.Space
	buf    Buffer
	filled bool
	next   int
	prev   int
}

// cache is the fixed N=4 LRU ring: a circular doubly-linked list of
// slots with mru marking the head. Modeled with index links rather
// than pointers, keeping the ring trivially copyable and ownable.
type cache struct {
	slots [cacheSize]slot
	mru   int
}

func newCache() *cache {
	c := &cache{}
	for i := range c.slots {
		c.slots[i].next = (i + 1) % cacheSize
		c.slots[i].prev = (i - 1 + cacheSize) % cacheSize
	}
	c.mru = 0
	return c
}

// find returns the index of a slot already covering [addr, addr+width)
// in space, or -1.
func (c *cache) find(space kaddr.Space, addr uint64, width int) int {
	for i := range c.slots {
		s := &c.slots[i]
		if s.filled && s.space == space && s.buf.contains(addr, width) {
			return i
		}
	}
	return -1
}

// lru returns the slot index due for eviction: the one immediately
// preceding mru in the ring.
func (c *cache) lru() int {
	return c.slots[c.mru].prev
}

// spliceOut removes slot i from the ring, leaving a 3-entry cycle.
func (c *cache) spliceOut(i int) {
	p, n := c.slots[i].prev, c.slots[i].next
	c.slots[p].next = n
	c.slots[n].prev = p
}

// insertBeforeMRU re-links i so it sits immediately before mru, i.e.
// at the LRU position, without touching mru itself.
func (c *cache) insertBeforeMRU(i int) {
	p := c.slots[c.mru].prev
	c.slots[i].prev = p
	c.slots[i].next = c.mru
	c.slots[p].next = i
	c.slots[c.mru].prev = i
}

// promote makes slot i the new MRU.
func (c *cache) promote(i int) {
	if i == c.mru {
		return
	}
	c.spliceOut(i)
	c.insertBeforeMRU(i)
	c.mru = i
}

// bury moves slot i to the LRU position without releasing its buffer,
// biasing eviction away from it without marking it most-recent. When i
// is already mru, relinking "before mru" is a no-op on a node before
// itself, so the only way to demote it is to advance mru to its
// neighbor -- both formulations agree in every case; there is no real
// choice to make here.
func (c *cache) bury(i int) {
	if i == c.mru {
		c.mru = c.slots[i].next
		return
	}
	c.spliceOut(i)
	c.insertBeforeMRU(i)
}
