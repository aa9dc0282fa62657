package ecs

import (
	"sync"
	"weak"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/kamstrup/intmap"
)

// handleCache is the identifier->handle map of a pool
//
// Membership lives in a weak map: an entry exists for every id registered in the pool, whether or not its
// handle is still reachable. A bounded LRU pins recently used handles. A handle that falls out of the LRU stays
// reachable only through callers; while any caller holds it, lookups promote that same handle back, and once
// the runtime has reclaimed it a lookup regenerates one through the host. Either way no caller can observe
// two live handles for the same id
type handleCache struct {
	shards []*handleShard
	mask   uint64
}

type handleShard struct {
	mu      sync.Mutex
	members *intmap.Map[EntityId, weak.Pointer[Handle]]
	pinned  *simplelru.LRU[EntityId, *Handle]
}

func newHandleCache(cfg PoolConfig) *handleCache {
	shards := nextPowerOfTwo(cfg.HandleShards)
	perShard := cfg.HandleCacheSize / shards
	if perShard < 1 {
		perShard = 1
	}

	c := &handleCache{
		shards: make([]*handleShard, shards),
		mask:   uint64(shards - 1),
	}
	for i := range c.shards {
		pinned, err := simplelru.NewLRU[EntityId, *Handle](perShard, nil)
		if err != nil {
			// only returned for a non-positive size
			panic(err)
		}
		c.shards[i] = &handleShard{
			members: intmap.New[EntityId, weak.Pointer[Handle]](64),
			pinned:  pinned,
		}
	}
	return c
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (c *handleCache) shard(id EntityId) *handleShard {
	// fibonacci hashing spreads sequential ids across shards
	return c.shards[(uint64(id)*0x9E3779B97F4A7C15)>>32&c.mask]
}

// lookupLocked returns the live handle for id. The shard lock must be held
func (s *handleShard) lookupLocked(id EntityId) *Handle {
	if h, ok := s.pinned.Get(id); ok {
		if h.IsActive() {
			return h
		}
		s.pinned.Remove(id)
	}
	wp, ok := s.members.Get(id)
	if !ok {
		return nil
	}
	if h := wp.Value(); h != nil && h.IsActive() {
		s.pinned.Add(id, h)
		return h
	}
	return nil
}

func (s *handleShard) storeLocked(id EntityId, h *Handle) {
	s.members.Put(id, weak.Make(h))
	s.pinned.Add(id, h)
}

// get returns the live handle for id, or nil if none is cached or it was reclaimed
func (c *handleCache) get(id EntityId) *Handle {
	s := c.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

// getOrCreate returns the live handle for id, calling create under the shard lock if there is none
// create returning nil leaves the cache untouched. The bool reports whether create's handle was stored
func (c *handleCache) getOrCreate(id EntityId, create func() *Handle) (*Handle, bool) {
	s := c.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if h := s.lookupLocked(id); h != nil {
		return h, false
	}
	h := create()
	if h.IsNull() || !h.IsActive() {
		return nil, false
	}
	s.storeLocked(id, h)
	return h, true
}

// put registers h for id, replacing any previous entry
func (c *handleCache) put(id EntityId, h *Handle) {
	s := c.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeLocked(id, h)
}

// remove drops id from the cache and returns its live handle, if any
// The bool reports whether id was a member at all
func (c *handleCache) remove(id EntityId) (*Handle, bool) {
	s := c.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	var h *Handle
	if pinned, ok := s.pinned.Peek(id); ok {
		h = pinned
	}
	s.pinned.Remove(id)

	wp, member := s.members.Get(id)
	if member {
		if h == nil {
			h = wp.Value()
		}
		s.members.Del(id)
	}
	return h, member
}

func (c *handleCache) contains(id EntityId) bool {
	s := c.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members.Has(id)
}

// len returns the number of member ids, including those whose handle was reclaimed
func (c *handleCache) len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.members.Len()
		s.mu.Unlock()
	}
	return n
}

// pinnedLen returns the number of handles held by the LRU tier
func (c *handleCache) pinnedLen() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.pinned.Len()
		s.mu.Unlock()
	}
	return n
}

// ids returns a snapshot of every member id
func (c *handleCache) ids() []EntityId {
	ids := make([]EntityId, 0, 64)
	for _, s := range c.shards {
		s.mu.Lock()
		s.members.ForEach(func(id EntityId, _ weak.Pointer[Handle]) bool {
			ids = append(ids, id)
			return true
		})
		s.mu.Unlock()
	}
	return ids
}

// clear empties the cache and returns every handle that was still reachable
func (c *handleCache) clear() []*Handle {
	live := make([]*Handle, 0, 64)
	for _, s := range c.shards {
		s.mu.Lock()
		s.members.ForEach(func(_ EntityId, wp weak.Pointer[Handle]) bool {
			if h := wp.Value(); h != nil {
				live = append(live, h)
			}
			return true
		})
		s.members.Clear()
		s.pinned.Purge()
		s.mu.Unlock()
	}
	return live
}
