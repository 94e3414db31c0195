// Package contentsvc - ContentPieceService quản lý entity store của content pieces.
package contentsvc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	basesvc "meta_publisher/internal/api/base/service"
	"meta_publisher/internal/api/content/models"
	"meta_publisher/internal/common"
	"meta_publisher/internal/global"
)

// ContentPieceService là service quản lý content pieces trong MongoDB.
// Đây là entity store: orchestrator đọc/ghi trạng thái piece qua service này.
type ContentPieceService struct {
	*basesvc.BaseServiceMongoImpl[models.ContentPiece]
}

// NewContentPieceService tạo mới ContentPieceService
func NewContentPieceService() (*ContentPieceService, error) {
	collection, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.ContentPieces)
	if !ok {
		return nil, fmt.Errorf("failed to get content pieces collection: %s", global.MongoDB_ColNames.ContentPieces)
	}

	return &ContentPieceService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.ContentPiece](collection),
	}, nil
}

// FindByPieceID tìm content piece theo id (string id do planning pipeline cấp)
func (s *ContentPieceService) FindByPieceID(ctx context.Context, pieceID string) (models.ContentPiece, error) {
	return s.FindOne(ctx, bson.M{"_id": pieceID}, nil)
}

// SavePiece upsert content piece theo id
func (s *ContentPieceService) SavePiece(ctx context.Context, piece models.ContentPiece) (models.ContentPiece, error) {
	return s.Upsert(ctx, bson.M{"_id": piece.ID}, piece)
}

// IsPublished kiểm tra persisted status của piece có phải PUBLISHED không.
// Piece chưa tồn tại trong store coi như chưa publish.
func (s *ContentPieceService) IsPublished(ctx context.Context, pieceID string) (bool, error) {
	piece, err := s.FindByPieceID(ctx, pieceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return piece.Status == models.ContentStatusPublished, nil
}
