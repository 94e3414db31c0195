// Package deliveryhdl - các handler HTTP của domain Delivery.
package deliveryhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	basehdl "meta_publisher/internal/api/base/handler"
	contentmodels "meta_publisher/internal/api/content/models"
	deliverydto "meta_publisher/internal/api/delivery/dto"
	deliverysvc "meta_publisher/internal/api/delivery/service"
	"meta_publisher/internal/common"
	"meta_publisher/internal/delivery"
	"meta_publisher/internal/global"
	"meta_publisher/internal/logger"
)

// DeliveryHandler xử lý các request submit/cancel/list delivery.
type DeliveryHandler struct {
	orchestrator   *delivery.Orchestrator
	historyService *deliverysvc.DeliveryHistoryService
}

// NewDeliveryHandler tạo mới DeliveryHandler
func NewDeliveryHandler(orchestrator *delivery.Orchestrator) (*DeliveryHandler, error) {
	historyService, err := deliverysvc.NewDeliveryHistoryService()
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery history service: %v", err)
	}
	return &DeliveryHandler{
		orchestrator:   orchestrator,
		historyService: historyService,
	}, nil
}

// SubmitContent xử lý POST /delivery/submit
func (h *DeliveryHandler) SubmitContent(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		log := logger.WithRequest(c)

		var input deliverydto.SubmitDeliveryInput
		if err := c.Bind().Body(&input); err != nil {
			basehdl.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationFormat,
				"Body không phải JSON hợp lệ",
				common.StatusBadRequest,
				err.Error(),
			))
			return nil
		}

		if input.Piece.ID == "" {
			input.Piece.ID = uuid.NewString()
		}
		if input.Piece.Status == "" {
			input.Piece.Status = contentmodels.ContentStatusReady
		}

		if err := global.Validate.Struct(&input.Piece); err != nil {
			basehdl.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationInput,
				"Content piece không hợp lệ",
				common.StatusBadRequest,
				err.Error(),
			))
			return nil
		}

		log.WithFields(map[string]interface{}{
			"pieceId":  input.Piece.ID,
			"platform": input.Piece.Platform,
		}).Info("📦 [DELIVERY] Nhận request submit content")

		result := h.orchestrator.SubmitContent(c.Context(), input.Piece, input.Options)
		basehdl.HandleResponse(c, result, nil)
		return nil
	})
}

// CancelScheduled xử lý DELETE /delivery/scheduled/:id
func (h *DeliveryHandler) CancelScheduled(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		entryID := c.Params("id")
		if entryID == "" {
			basehdl.HandleResponse(c, nil, common.ErrRequiredField)
			return nil
		}

		if err := h.orchestrator.CancelScheduledDelivery(c.Context(), entryID); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, fiber.Map{"entryId": entryID, "cancelled": true}, nil)
		return nil
	})
}

// ListScheduled xử lý GET /delivery/scheduled
func (h *DeliveryHandler) ListScheduled(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		entries, err := h.orchestrator.ListScheduled(c.Context())
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		outputs := make([]deliverydto.ScheduledDeliveryOutput, 0, len(entries))
		for _, entry := range entries {
			outputs = append(outputs, deliverydto.ScheduledDeliveryOutput{
				EntryID:        entry.EntryID(),
				PieceID:        entry.Piece.ID,
				Platform:       entry.Piece.Platform,
				ScheduledTime:  entry.ScheduledTime,
				ApprovalStatus: entry.ApprovalStatus,
				IsProcessing:   entry.IsProcessing,
				CreatedAt:      entry.CreatedAt,
			})
		}
		basehdl.HandleResponse(c, outputs, nil)
		return nil
	})
}

// GetHistory xử lý GET /delivery/history/:pieceId
func (h *DeliveryHandler) GetHistory(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		pieceID := c.Params("pieceId")
		if pieceID == "" {
			basehdl.HandleResponse(c, nil, common.ErrRequiredField)
			return nil
		}

		records, err := h.historyService.FindByPiece(c.Context(), pieceID)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, records, nil)
		return nil
	})
}
