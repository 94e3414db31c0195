package approval

import "context"

// Provider định nghĩa interface cho một approval channel (chat reaction, email, ...).
// Provider đăng ký vào Registry theo tên; Coordinator resolve theo content type/platform.
type Provider interface {
	// SubmitForApproval gửi request tới reviewer và trả về request với
	// PlatformID (correlation id phía provider) đã được set.
	SubmitForApproval(ctx context.Context, request *ApprovalRequest) (*ApprovalRequest, error)

	// CheckApprovalStatus hỏi provider trạng thái hiện tại của request và
	// trả về bản copy với Status (và ReviewerComments/ApproverID nếu có) cập nhật.
	// Không mutate request đầu vào.
	CheckApprovalStatus(ctx context.Context, request *ApprovalRequest) (*ApprovalRequest, error)

	// CleanupRequest xóa artifact phía provider (vd: chat message) theo
	// correlation id. Best-effort: lỗi cleanup chỉ log, không propagate.
	CleanupRequest(ctx context.Context, platformID string) error
}
