// Package router đăng ký các route thuộc domain Delivery: submit/cancel/list
// delivery, delivery history, approval decision webhook, platform utilities.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	deliveryhdl "meta_publisher/internal/api/delivery/handler"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/delivery"
	"meta_publisher/internal/platform"
	"meta_publisher/internal/registry"
)

// Register đăng ký tất cả route delivery lên v1.
func Register(v1 fiber.Router, orchestrator *delivery.Orchestrator, c cache.DurableCache, adapters *registry.Registry[platform.Adapter]) error {
	deliveryHandler, err := deliveryhdl.NewDeliveryHandler(orchestrator)
	if err != nil {
		return fmt.Errorf("create delivery handler: %w", err)
	}
	v1.Post("/delivery/submit", deliveryHandler.SubmitContent)
	v1.Get("/delivery/scheduled", deliveryHandler.ListScheduled)
	v1.Delete("/delivery/scheduled/:id", deliveryHandler.CancelScheduled)
	v1.Get("/delivery/history/:pieceId", deliveryHandler.GetHistory)

	// Public: reviewer bấm link từ email duyệt
	approvalDecisionHandler := deliveryhdl.NewApprovalDecisionHandler(c)
	v1.Get("/approval/decision/:id", approvalDecisionHandler.RecordDecision)

	platformHandler := deliveryhdl.NewPlatformHandler(adapters)
	v1.Get("/platform", platformHandler.ListPlatforms)
	v1.Get("/platform/:name/connection", platformHandler.CheckConnection)
	v1.Get("/platform/:name/trends", platformHandler.GetTrends)

	return nil
}
