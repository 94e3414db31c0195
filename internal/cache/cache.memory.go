package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"meta_publisher/internal/common"
)

type memoryEntry struct {
	data      []byte
	expiresAt int64 // epoch ms, 0 = không hết hạn
}

// MemoryCache triển khai DurableCache trong bộ nhớ, dùng cho test.
// Giá trị vẫn đi qua JSON roundtrip để có cùng semantics với MongoCache
// (không giữ con trỏ, chỉ giữ serialized state).
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowFn   func() time.Time
}

// NewMemoryCache tạo MemoryCache rỗng.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		nowFn:   time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if entry.expiresAt > 0 && entry.expiresAt <= c.nowFn().UnixMilli() {
		return false, nil
	}

	if out != nil {
		if err := json.Unmarshal(entry.data, out); err != nil {
			return false, common.ErrInvalidFormat
		}
	}
	return true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiresAtMs int64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return common.ErrInvalidFormat
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: raw, expiresAt: expiresAtMs}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len trả về số entries hiện có (kể cả entries đã hết hạn nhưng chưa bị đọc).
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
