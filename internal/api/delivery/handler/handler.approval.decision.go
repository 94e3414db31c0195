package deliveryhdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "meta_publisher/internal/api/base/handler"
	"meta_publisher/internal/approval/providers"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/common"
	"meta_publisher/internal/logger"
)

// ApprovalDecisionHandler nhận quyết định approve/reject từ link trong email duyệt.
// Quyết định ghi vào cache; email approval provider đọc nó ở lần check kế tiếp.
type ApprovalDecisionHandler struct {
	cache cache.DurableCache
}

// NewApprovalDecisionHandler tạo mới ApprovalDecisionHandler
func NewApprovalDecisionHandler(c cache.DurableCache) *ApprovalDecisionHandler {
	return &ApprovalDecisionHandler{cache: c}
}

// RecordDecision xử lý GET /approval/decision/:id?action=approve|reject
// Dùng GET vì reviewer bấm link trực tiếp từ email client.
func (h *ApprovalDecisionHandler) RecordDecision(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		log := logger.WithRequest(c)

		requestID := c.Params("id")
		action := c.Query("action")
		if requestID == "" || (action != "approve" && action != "reject") {
			basehdl.HandleResponse(c, nil, common.NewError(
				common.ErrCodeValidationInput,
				"Thiếu request id hoặc action không hợp lệ",
				common.StatusBadRequest,
				nil,
			))
			return nil
		}

		approver := c.Query("approver")
		comments := c.Query("comments")
		if err := providers.RecordDecision(c.Context(), h.cache, requestID, action, approver, comments); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}

		log.WithFields(map[string]interface{}{
			"requestId": requestID,
			"action":    action,
		}).Info("✅ [APPROVAL] Đã ghi nhận quyết định của reviewer")

		// Trang xác nhận đơn giản cho reviewer
		c.Set("Content-Type", "text/html; charset=utf-8")
		message := "Đã ghi nhận quyết định <b>duyệt</b>."
		if action == "reject" {
			message = "Đã ghi nhận quyết định <b>từ chối</b>."
		}
		return c.Status(common.StatusOK).SendString(
			"<html><body style='font-family:sans-serif;text-align:center;margin-top:50px;'>" +
				message + " Bạn có thể đóng tab này.</body></html>")
	})
}
