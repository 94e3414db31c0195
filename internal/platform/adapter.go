// Package platform định nghĩa adapter interface cho các publishing platform
// và các kiểu kết quả chung. Mỗi platform (twitter, discord, medium) có một
// adapter riêng trong package channels, đăng ký vào Registry theo tên.
package platform

import (
	"context"

	"meta_publisher/internal/api/content/models"
)

// ValidationResult là kết quả validate content theo rules của platform.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// PublishResult là kết quả publish content lên platform.
type PublishResult struct {
	Success      bool   `json:"success"`
	PlatformID   string `json:"platformId,omitempty"`   // Id do platform cấp (tweet id, message id, post id)
	PublishedURL string `json:"publishedUrl,omitempty"` // URL public của bài đã post
	Timestamp    int64  `json:"timestamp"`              // Epoch ms lúc publish
	Error        string `json:"error,omitempty"`
}

// Trend là một trending topic trên platform (dùng cho planning pipeline).
type Trend struct {
	Name   string `json:"name"`
	Volume int64  `json:"volume,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Adapter định nghĩa interface mà mọi platform adapter phải triển khai.
// Các thao tác gọi API bên ngoài đều nhận context để caller kiểm soát timeout/cancel.
type Adapter interface {
	// FormatContent chuyển content thô thành dạng phù hợp với platform
	// (cắt độ dài, thêm hashtags từ keywords, markdown, ...)
	FormatContent(ctx context.Context, piece *models.ContentPiece) (string, error)

	// ValidateContent kiểm tra content đã format theo rules của platform.
	// Content không hợp lệ trả về ValidationResult{Valid: false}, không phải error —
	// error chỉ dành cho lỗi hệ thống khi validate.
	ValidateContent(ctx context.Context, content string) (ValidationResult, error)

	// PublishContent đăng content lên platform. Lỗi trả về qua error để
	// retry policy phân loại retryable/fatal theo message.
	PublishContent(ctx context.Context, content string, piece *models.ContentPiece) (PublishResult, error)

	// CheckConnection kiểm tra credentials và kết nối tới platform API.
	CheckConnection(ctx context.Context) error

	// GetTrends lấy trending topics từ platform (best-effort, có thể trả về
	// danh sách rỗng nếu platform không hỗ trợ).
	GetTrends(ctx context.Context) ([]Trend, error)
}
