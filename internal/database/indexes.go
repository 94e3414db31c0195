package database

import (
	"context"
	"time"

	"meta_publisher/internal/global"
	"meta_publisher/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes tạo các index cần thiết cho các collection của service.
// Gọi một lần lúc khởi động, sau khi registry collections đã được đăng ký.
func EnsureIndexes(ctx context.Context) error {
	log := logger.GetAppLogger()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// content_pieces: tra cứu theo status và platform khi reporting
	if col, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentPieces); ok {
		_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "platform", Value: 1}}},
			{Keys: bson.D{{Key: "scheduledDate", Value: 1}}},
		})
		if err != nil {
			log.WithError(err).Error("Failed to create indexes for content_pieces")
			return err
		}
	}

	// kv_cache: key là unique, expiresAt có TTL index để MongoDB tự dọn entries hết hạn
	if col, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.KVCache); ok {
		_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				// TTL index: expireAfterSeconds=0 nghĩa là expire đúng tại thời điểm expiresAt
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetSparse(true),
			},
		})
		if err != nil {
			log.WithError(err).Error("Failed to create indexes for kv_cache")
			return err
		}
	}

	// delivery_history: tra cứu theo pieceId và outcome
	if col, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.DeliveryHistory); ok {
		_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "pieceId", Value: 1}}},
			{Keys: bson.D{{Key: "outcome", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		})
		if err != nil {
			log.WithError(err).Error("Failed to create indexes for delivery_history")
			return err
		}
	}

	log.Info("MongoDB indexes ensured")
	return nil
}
