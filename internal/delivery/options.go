// Package delivery triển khai Delivery Orchestrator: đưa một ContentPiece từ
// submission tới terminal publish outcome, với approval và publish có thể defer
// tới thời điểm tương lai, và resumable sau restart (state chỉ sống trong cache).
package delivery

import (
	"fmt"
	"time"

	contentmodels "meta_publisher/internal/api/content/models"
)

// Defaults khi caller không chỉ định options
const (
	DefaultMaxRetries     = 3
	DefaultApprovalOffset = 3 * time.Hour
	scheduledGraceWindow  = 24 * time.Hour   // Entry không bao giờ sống quá scheduledTime + grace
	stuckProcessingAge    = 30 * time.Minute // isProcessing set quá lâu thì coi như stuck
	processingWaitMax     = 2 * time.Minute  // Timer callback chờ approval mid-flight tối đa
	processingWaitStep    = 5 * time.Second
)

// DeliveryOptions là các tùy chọn khi submit một content piece.
// Con trỏ bool/int để phân biệt "không set" với "set false/0" khi merge defaults.
type DeliveryOptions struct {
	Retry                 *bool  `json:"retry,omitempty"`
	MaxRetries            *int   `json:"maxRetries,omitempty"`
	ValidateBeforePublish *bool  `json:"validateBeforePublish,omitempty"`
	SkipApproval          *bool  `json:"skipApproval,omitempty"`
	ScheduledTime         int64  `json:"scheduledTime,omitempty"`         // Epoch ms, 0 = publish ngay
	ApprovalOffsetMinutes int    `json:"approvalOffsetMinutes,omitempty"` // Phút trước scheduledTime để chạy approval sớm
	RequesterID           string `json:"requesterId,omitempty"`
}

// mergedOptions là options sau khi merge với defaults, dùng nội bộ.
type mergedOptions struct {
	Retry                 bool
	MaxRetries            int
	ValidateBeforePublish bool
	SkipApproval          bool
	ScheduledTime         int64
	ApprovalOffset        time.Duration
	RequesterID           string
}

// mergeDefaults áp defaults: retry=true, maxRetries=3, validateBeforePublish=true,
// skipApproval=false, approvalOffset=3h.
func mergeDefaults(opts DeliveryOptions) mergedOptions {
	merged := mergedOptions{
		Retry:                 true,
		MaxRetries:            DefaultMaxRetries,
		ValidateBeforePublish: true,
		SkipApproval:          false,
		ScheduledTime:         opts.ScheduledTime,
		ApprovalOffset:        DefaultApprovalOffset,
		RequesterID:           opts.RequesterID,
	}
	if opts.Retry != nil {
		merged.Retry = *opts.Retry
	}
	if opts.MaxRetries != nil && *opts.MaxRetries > 0 {
		merged.MaxRetries = *opts.MaxRetries
	}
	if opts.ValidateBeforePublish != nil {
		merged.ValidateBeforePublish = *opts.ValidateBeforePublish
	}
	if opts.SkipApproval != nil {
		merged.SkipApproval = *opts.SkipApproval
	}
	if opts.ApprovalOffsetMinutes > 0 {
		merged.ApprovalOffset = time.Duration(opts.ApprovalOffsetMinutes) * time.Minute
	}
	return merged
}

// DeliveryResult là kết quả trả về cho mọi thao tác submit/publish.
type DeliveryResult struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
	PlatformID       string   `json:"platformId,omitempty"`
	PublishedURL     string   `json:"publishedUrl,omitempty"`
	Attempts         int      `json:"attempts,omitempty"`
	Scheduled        bool     `json:"scheduled,omitempty"`       // true nếu chỉ mới schedule, chưa publish
	PendingApproval  bool     `json:"pendingApproval,omitempty"` // true nếu đang chờ approval
}

// ScheduledDeliveryEntry là bản ghi persist của một content piece được
// schedule cho tương lai. Mọi mutation là read-modify-write nguyên entry
// vào cache (không có in-process lock nào đủ qua restart).
type ScheduledDeliveryEntry struct {
	Piece   contentmodels.ContentPiece `json:"piece"`
	Options DeliveryOptions            `json:"options"`

	ScheduledTime int64 `json:"scheduledTime"` // Epoch ms
	CreatedAt     int64 `json:"createdAt"`

	// Kết quả approval pre-fetch (ghi bởi approval timer trước giờ publish)
	ApprovalStatus  string `json:"approvalStatus,omitempty"`
	ApprovalID      string `json:"approvalId,omitempty"`
	ApprovedContent string `json:"approvedContent,omitempty"`

	// Phát hiện và khôi phục in-flight work bị kẹt
	IsProcessing  bool  `json:"isProcessing"`
	LastProcessed int64 `json:"lastProcessed,omitempty"`
}

// EntryID trả về id của entry: "<pieceId>-<scheduledTimeMillis>".
func (e *ScheduledDeliveryEntry) EntryID() string {
	return ScheduledEntryID(e.Piece.ID, e.ScheduledTime)
}

// ScheduledEntryID dựng id entry từ piece id và scheduled time.
func ScheduledEntryID(pieceID string, scheduledTimeMs int64) string {
	return fmt.Sprintf("%s-%d", pieceID, scheduledTimeMs)
}

// Cache keys của scheduling state
const (
	scheduledKeyPrefix = "contentDelivery/scheduled/"
	// ScheduledKeysIndexKey chứa mảng mọi scheduled key (cache không scan được theo prefix)
	ScheduledKeysIndexKey = "contentDelivery/scheduledKeys"
)

// ScheduledCacheKey trả về cache key của một entry theo entry id.
func ScheduledCacheKey(entryID string) string {
	return scheduledKeyPrefix + entryID
}
