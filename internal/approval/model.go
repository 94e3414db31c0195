// Package approval triển khai Approval Coordinator: quyết định provider nào
// duyệt payload nào, theo dõi request tới trạng thái terminal, notify caller
// qua continuation, và auto-reject request quá hạn.
package approval

import (
	"fmt"

	contentmodels "meta_publisher/internal/api/content/models"
)

// Trạng thái của một ApprovalRequest
const (
	StatusDraft    = "DRAFT"
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusFailed   = "FAILED"
)

// Loại payload trong ApprovalRequest
const (
	ContentTypePiece = "content_piece" // ContentPiece — provider resolve theo platform
	ContentTypePlan  = "plan"          // Plan-level payload — dùng default provider
)

// Loại continuation (tagged variant, không bao giờ serialize closure —
// mọi continuation phải resume được từ cold read sau restart)
const (
	ContinuationPublish    = "publish"            // Resume vào bước publish của orchestrator
	ContinuationRecordOnly = "recordApprovalOnly" // Chỉ ghi kết quả approval vào scheduled entry
)

// ContinuationRef là con trỏ serializable tới bước tiếp theo khi approval
// chuyển trạng thái. Kind xác định hành vi, PieceID/CacheKey là tham số.
type ContinuationRef struct {
	Kind     string `json:"kind"`
	PieceID  string `json:"pieceId,omitempty"`
	CacheKey string `json:"cacheKey,omitempty"` // Key của ScheduledDeliveryEntry cần cập nhật (với recordApprovalOnly)
}

// ApprovalRequest là envelope quanh một payload cần duyệt.
// ID derive từ content id ("<contentId>-approval") nên resubmit là idempotent.
// Toàn bộ struct phải JSON-serializable để persist vào cache.
type ApprovalRequest struct {
	ID           string                      `json:"id"`
	ContentType  string                      `json:"contentType"` // content_piece | plan
	Content      *contentmodels.ContentPiece `json:"content,omitempty"`
	Plan         map[string]interface{}      `json:"plan,omitempty"`
	ProviderName string                      `json:"providerName,omitempty"` // Provider đã resolve
	RequesterID  string                      `json:"requesterId,omitempty"`
	Timestamp    int64                       `json:"timestamp"` // Epoch ms lúc tạo request
	Status       string                      `json:"status"`

	ReviewerComments string `json:"reviewerComments,omitempty"`
	ApproverID       string `json:"approverId,omitempty"`
	PlatformID       string `json:"platformId,omitempty"` // Correlation id phía provider (vd: chat message id)

	Continuation *ContinuationRef `json:"continuation,omitempty"`
}

// IsTerminal kiểm tra request đã ở trạng thái terminal chưa.
// Terminal states không có transition ra ngoài.
func (r *ApprovalRequest) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected || r.Status == StatusFailed
}

// ContentID trả về id của payload bên trong request.
func (r *ApprovalRequest) ContentID() string {
	if r.Content != nil {
		return r.Content.ID
	}
	if id, ok := r.Plan["id"].(string); ok {
		return id
	}
	return ""
}

// RequestID derive id của request từ content id (deterministic, idempotent).
func RequestID(contentID string) string {
	return fmt.Sprintf("%s-approval", contentID)
}

// CacheKey trả về cache key content-scoped của request.
func CacheKey(providerName string, contentID string) string {
	return fmt.Sprintf("approval/%s/%s", providerName, RequestID(contentID))
}

// PendingApprovalsKey là cache key chứa snapshot của active set.
const PendingApprovalsKey = "pendingApprovals"
