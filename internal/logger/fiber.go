package logger

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// WithRequest trả về log entry đã gắn sẵn thông tin request (requestId, method, path, ip).
// Dùng trong error handler và middleware để trace request.
func WithRequest(c fiber.Ctx) *logrus.Entry {
	requestID, _ := c.Locals("requestid").(string)
	if requestID == "" {
		requestID = c.Get("X-Request-ID")
	}

	return GetAppLogger().WithFields(logrus.Fields{
		"requestId": requestID,
		"method":    c.Method(),
		"path":      c.Path(),
		"ip":        c.IP(),
	})
}
