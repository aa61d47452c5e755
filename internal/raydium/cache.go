package raydium

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// KeyCache holds resolved pool keys for the lifetime of a trading session.
// Reads are concurrent; Invalidate is the only write path after Resolve and
// does not block lookups of unrelated pools.
type KeyCache struct {
	mu      sync.RWMutex
	entries map[solana.PublicKey]*PoolKeys
}

func NewKeyCache() *KeyCache {
	return &KeyCache{entries: make(map[solana.PublicKey]*PoolKeys)}
}

func (c *KeyCache) Get(poolID solana.PublicKey) (*PoolKeys, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys, ok := c.entries[poolID]
	return keys, ok
}

func (c *KeyCache) Put(keys *PoolKeys) {
	if keys == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keys.ID] = keys
}

// Invalidate drops a pool's cached keys. Called when the program reports an
// unknown account for a pool we previously resolved (migrated or closed).
func (c *KeyCache) Invalidate(poolID solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, poolID)
}

func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
