package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meta_publisher/internal/common"
)

// cacheEntry là document lưu trong kv_cache collection.
// expiresAt là BSON date để TTL index của MongoDB tự dọn entries hết hạn.
type cacheEntry struct {
	Key       string     `bson:"key"`
	Value     string     `bson:"value"` // JSON-encoded payload
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
	UpdatedAt int64      `bson:"updatedAt"`
}

// MongoCache triển khai DurableCache trên MongoDB collection kv_cache.
type MongoCache struct {
	collection *mongo.Collection
	nowFn      func() time.Time
}

// NewMongoCache tạo MongoCache từ collection kv_cache đã đăng ký.
func NewMongoCache(collection *mongo.Collection) *MongoCache {
	return &MongoCache{
		collection: collection,
		nowFn:      time.Now,
	}
}

// Get đọc giá trị theo key, unmarshal JSON vào out.
// TTL index của MongoDB dọn entries hết hạn theo chu kỳ (~60s), nên vẫn phải
// tự kiểm tra expiresAt để không trả về entry đã hết hạn nhưng chưa bị dọn.
func (c *MongoCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	var entry cacheEntry
	err := c.collection.FindOne(ctx, bson.M{"key": key}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, common.ConvertMongoError(err)
	}

	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(c.nowFn()) {
		return false, nil
	}

	if out != nil {
		if err := json.Unmarshal([]byte(entry.Value), out); err != nil {
			return false, common.NewError(
				common.ErrCodeValidationFormat,
				"Lỗi decode giá trị cache",
				common.StatusInternalServerError,
				err,
			)
		}
	}
	return true, nil
}

// Set ghi giá trị theo key (upsert). expiresAtMs = 0 nghĩa là không hết hạn.
func (c *MongoCache) Set(ctx context.Context, key string, value interface{}, expiresAtMs int64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return common.NewError(
			common.ErrCodeValidationFormat,
			"Lỗi encode giá trị cache",
			common.StatusInternalServerError,
			err,
		)
	}

	set := bson.M{
		"value":     string(raw),
		"updatedAt": c.nowFn().UnixMilli(),
	}
	update := bson.M{"$set": set}
	if expiresAtMs > 0 {
		set["expiresAt"] = time.UnixMilli(expiresAtMs).UTC()
	} else {
		// Entry không hết hạn: unset expiresAt để TTL index (sparse) bỏ qua
		update["$unset"] = bson.M{"expiresAt": ""}
	}

	opts := options.Update().SetUpsert(true)
	_, err = c.collection.UpdateOne(ctx, bson.M{"key": key}, update, opts)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

// Delete xóa key. Key không tồn tại không phải là lỗi.
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	_, err := c.collection.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}
