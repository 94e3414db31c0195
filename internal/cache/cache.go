// Package cache cung cấp durable keyed cache cho scheduling state, approval records và locks.
// Giá trị được serialize thành JSON để đảm bảo mọi state đều tồn tại qua restart
// (không bao giờ giữ closure hay con trỏ in-memory trong cache).
package cache

import "context"

// DurableCache định nghĩa interface cho keyed cache có TTL.
// Implementations: MongoCache (production, backed bởi kv_cache collection)
// và MemoryCache (test).
type DurableCache interface {
	// Get đọc giá trị theo key và unmarshal vào out.
	// Trả về false nếu key không tồn tại hoặc đã hết hạn (không phải lỗi).
	Get(ctx context.Context, key string, out interface{}) (bool, error)

	// Set ghi giá trị theo key. expiresAtMs là epoch milliseconds tuyệt đối,
	// 0 nghĩa là không hết hạn.
	Set(ctx context.Context, key string, value interface{}, expiresAtMs int64) error

	// Delete xóa key. Xóa key không tồn tại không phải là lỗi.
	Delete(ctx context.Context, key string) error
}
