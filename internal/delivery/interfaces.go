package delivery

import (
	"context"

	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/approval"
)

// EntityStore là store của content pieces mà orchestrator đọc/ghi trạng thái.
// ContentPieceService triển khai interface này.
type EntityStore interface {
	FindByPieceID(ctx context.Context, pieceID string) (contentmodels.ContentPiece, error)
	SavePiece(ctx context.Context, piece contentmodels.ContentPiece) (contentmodels.ContentPiece, error)
	IsPublished(ctx context.Context, pieceID string) (bool, error)
}

// ApprovalCoordinator là phần contract của approval.Coordinator mà orchestrator dùng.
type ApprovalCoordinator interface {
	SendForApproval(ctx context.Context, request approval.ApprovalRequest) (approval.ApprovalRequest, error)
}

// OutcomeRecorder ghi terminal outcome của một delivery vào history.
// Nil recorder là hợp lệ (bỏ qua ghi history).
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, pieceID string, platform string, outcome string, message string, attempts int, publishedURL string) error
}

// Các outcome ghi vào delivery history
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
)
