// Package deliverydto - request/response types cho domain Delivery.
package deliverydto

import (
	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/delivery"
)

// SubmitDeliveryInput là body của POST /delivery/submit.
// Piece.ID rỗng sẽ được server cấp uuid.
type SubmitDeliveryInput struct {
	Piece   contentmodels.ContentPiece `json:"piece" validate:"required"`
	Options delivery.DeliveryOptions   `json:"options"`
}

// ScheduledDeliveryOutput là một entry trong danh sách scheduled deliveries.
type ScheduledDeliveryOutput struct {
	EntryID        string `json:"entryId"`
	PieceID        string `json:"pieceId"`
	Platform       string `json:"platform"`
	ScheduledTime  int64  `json:"scheduledTime"`
	ApprovalStatus string `json:"approvalStatus,omitempty"`
	IsProcessing   bool   `json:"isProcessing"`
	CreatedAt      int64  `json:"createdAt"`
}
