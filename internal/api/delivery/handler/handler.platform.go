package deliveryhdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "meta_publisher/internal/api/base/handler"
	"meta_publisher/internal/common"
	"meta_publisher/internal/platform"
	"meta_publisher/internal/registry"
)

// PlatformHandler expose các thao tác phụ trợ trên platform adapter
// (check connection, lấy trends cho planning pipeline).
type PlatformHandler struct {
	adapters *registry.Registry[platform.Adapter]
}

// NewPlatformHandler tạo mới PlatformHandler
func NewPlatformHandler(adapters *registry.Registry[platform.Adapter]) *PlatformHandler {
	return &PlatformHandler{adapters: adapters}
}

// ListPlatforms xử lý GET /platform
func (h *PlatformHandler) ListPlatforms(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		basehdl.HandleResponse(c, h.adapters.Names(), nil)
		return nil
	})
}

// CheckConnection xử lý GET /platform/:name/connection
func (h *PlatformHandler) CheckConnection(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		adapter, ok := h.adapters.Get(c.Params("name"))
		if !ok {
			basehdl.HandleResponse(c, nil, common.ErrAdapterNotFound)
			return nil
		}

		if err := adapter.CheckConnection(c.Context()); err != nil {
			basehdl.HandleResponse(c, fiber.Map{"connected": false, "error": err.Error()}, nil)
			return nil
		}
		basehdl.HandleResponse(c, fiber.Map{"connected": true}, nil)
		return nil
	})
}

// GetTrends xử lý GET /platform/:name/trends
func (h *PlatformHandler) GetTrends(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		adapter, ok := h.adapters.Get(c.Params("name"))
		if !ok {
			basehdl.HandleResponse(c, nil, common.ErrAdapterNotFound)
			return nil
		}

		trends, err := adapter.GetTrends(c.Context())
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, trends, nil)
		return nil
	})
}
