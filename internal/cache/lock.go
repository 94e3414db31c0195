package cache

import (
	"context"
	"time"
)

// lockRecord là payload lưu dưới lock key.
type lockRecord struct {
	Owner      string `json:"owner"`
	AcquiredAt int64  `json:"acquiredAt"`
}

// AcquireLock thử lấy lock theo key với TTL. Trả về true nếu lấy được.
// Lock là best-effort trên cache interface (check-then-set): đủ để chặn
// double-processing giữa các worker sweep trong cùng service, không phải
// distributed lock tuyệt đối.
func AcquireLock(ctx context.Context, c DurableCache, key string, owner string, ttl time.Duration) (bool, error) {
	var existing lockRecord
	found, err := c.Get(ctx, key, &existing)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	now := time.Now()
	record := lockRecord{Owner: owner, AcquiredAt: now.UnixMilli()}
	if err := c.Set(ctx, key, record, now.Add(ttl).UnixMilli()); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseLock giải phóng lock. Lock đã hết hạn tự biến mất qua TTL nên
// release thất bại không gây deadlock vĩnh viễn.
func ReleaseLock(ctx context.Context, c DurableCache, key string) error {
	return c.Delete(ctx, key)
}
