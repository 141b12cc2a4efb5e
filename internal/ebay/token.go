package ebay

import (
	"sync"
	"time"
)

// tokenLeeway is how long before expiry a cached token stops being reused.
const tokenLeeway = 30 * time.Second

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache holds application access tokens per OAuth scope. It is safe for
// concurrent use and meant to be shared by every request of the process.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]cachedToken), now: time.Now}
}

// Get returns the token for scope if it is valid for more than tokenLeeway.
func (c *TokenCache) Get(scope string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[scope]
	if !ok || tok.expiresAt.Sub(c.now()) <= tokenLeeway {
		return "", false
	}
	return tok.value, true
}

func (c *TokenCache) Put(scope, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[scope] = cachedToken{value: value, expiresAt: c.now().Add(ttl)}
}
