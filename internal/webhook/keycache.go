package webhook

import (
	"encoding/json"
	"sync"
)

// Key is one cached webhook verification key: the raw JWK as returned by the
// provider plus its expiry marker. ExpiredAt is nil while the key is live.
type Key struct {
	KeyID     string
	ExpiredAt *int64
	Material  json.RawMessage
}

// KeyCache maps verification-key ids to key material for the lifetime of the
// process. Webhook verifications run concurrently, so access is guarded.
type KeyCache struct {
	mu   sync.Mutex
	keys map[string]Key
}

func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string]Key)}
}

func (c *KeyCache) Get(keyID string) (Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.keys[keyID]
	return key, ok
}

func (c *KeyCache) Put(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key.KeyID] = key
}

// LiveIDs returns the ids of all cached keys not yet marked expired. These
// are re-fetched on every cache miss so rotated-out keys pick up their
// expiry markers.
func (c *KeyCache) LiveIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.keys))
	for id, key := range c.keys {
		if key.ExpiredAt == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
