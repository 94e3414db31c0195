// Package deliverysvc - DeliveryHistoryService ghi và tra cứu terminal outcomes.
package deliverysvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "meta_publisher/internal/api/base/service"
	"meta_publisher/internal/api/delivery/models"
	"meta_publisher/internal/global"
)

// DeliveryHistoryService là service quản lý delivery history trong MongoDB.
// Triển khai delivery.OutcomeRecorder.
type DeliveryHistoryService struct {
	*basesvc.BaseServiceMongoImpl[models.DeliveryHistory]
}

// NewDeliveryHistoryService tạo mới DeliveryHistoryService
func NewDeliveryHistoryService() (*DeliveryHistoryService, error) {
	collection, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.DeliveryHistory)
	if !ok {
		return nil, fmt.Errorf("failed to get delivery history collection: %s", global.MongoDB_ColNames.DeliveryHistory)
	}

	return &DeliveryHistoryService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.DeliveryHistory](collection),
	}, nil
}

// RecordOutcome ghi một terminal outcome cho piece.
func (s *DeliveryHistoryService) RecordOutcome(ctx context.Context, pieceID string, platform string, outcome string, message string, attempts int, publishedURL string) error {
	record := models.DeliveryHistory{
		PieceID:      pieceID,
		Platform:     platform,
		Outcome:      outcome,
		Message:      message,
		Attempts:     attempts,
		PublishedURL: publishedURL,
	}
	_, err := s.InsertOne(ctx, record)
	return err
}

// FindByPiece trả về history của một piece, mới nhất trước.
func (s *DeliveryHistoryService) FindByPiece(ctx context.Context, pieceID string) ([]models.DeliveryHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.Find(ctx, bson.M{"pieceId": pieceID}, opts)
}
