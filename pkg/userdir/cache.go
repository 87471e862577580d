package userdir

import (
	"sync"
	"time"
)

// cacheEntry 带过期时间的缓存条目
type cacheEntry struct {
	account   *Account
	expiresAt time.Time
}

// accountCache 有界的TTL缓存，用于抑制同一请求风暴内的重复目录查询
type accountCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
}

// newAccountCache 创建账户缓存，ttl<=0 时缓存关闭
func newAccountCache(ttl time.Duration, maxSize int) *accountCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &accountCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func (c *accountCache) get(key string) (*Account, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.account, true
}

func (c *accountCache) put(key string, account *Account) {
	if c.ttl <= 0 || account == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 容量满时先清理过期条目，仍然满则整体重置
	if len(c.entries) >= c.maxSize {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxSize {
			c.entries = make(map[string]cacheEntry)
		}
	}

	c.entries[key] = cacheEntry{
		account:   account,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// invalidate 失效指定键，账户资料更新后由写方调用
func (c *accountCache) invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Invalidate 失效邮箱对应的缓存条目
func (d *httpDirectory) Invalidate(email string) {
	d.cache.invalidate(cacheKeyEmail(normalizeEmail(email)))
}
