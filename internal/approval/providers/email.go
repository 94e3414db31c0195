package providers

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"meta_publisher/internal/approval"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/logger"
)

// EmailDecision là payload mà webhook handler ghi vào cache khi reviewer
// bấm link approve/reject trong email.
type EmailDecision struct {
	Action    string `json:"action"` // approve | reject
	Approver  string `json:"approver,omitempty"`
	Comments  string `json:"comments,omitempty"`
	DecidedAt int64  `json:"decidedAt"`
}

// DecisionCacheKey là cache key chứa quyết định của reviewer cho một request.
func DecisionCacheKey(requestID string) string {
	return fmt.Sprintf("approval/decision/%s", requestID)
}

// SMTPConfig là cấu hình SMTP cho email provider.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// EmailApprovalProvider gửi email duyệt với link approve/reject.
// Reviewer bấm link → webhook handler ghi quyết định vào cache →
// CheckApprovalStatus đọc quyết định từ cache. Correlation id là request id.
type EmailApprovalProvider struct {
	smtp          SMTPConfig
	approverMail  string
	publicBaseURL string
	cache         cache.DurableCache
	dialFn        func(msg *gomail.Message) error // Override trong test
}

// NewEmailApprovalProvider tạo provider với cấu hình SMTP và địa chỉ reviewer.
func NewEmailApprovalProvider(smtp SMTPConfig, approverMail string, publicBaseURL string, c cache.DurableCache) *EmailApprovalProvider {
	p := &EmailApprovalProvider{
		smtp:          smtp,
		approverMail:  approverMail,
		publicBaseURL: publicBaseURL,
		cache:         c,
	}
	p.dialFn = func(msg *gomail.Message) error {
		dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
		return dialer.DialAndSend(msg)
	}
	return p
}

// SubmitForApproval gửi email duyệt tới reviewer.
func (p *EmailApprovalProvider) SubmitForApproval(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"requestId": request.ID,
		"recipient": p.approverMail,
	}).Info("📧 [EMAIL-APPROVAL] Gửi email duyệt")

	var preview, platform string
	if request.Content != nil {
		platform = request.Content.Platform
		preview = request.Content.FormattedContent
		if preview == "" {
			preview = request.Content.Content
		}
	}

	approveURL := fmt.Sprintf("%s/api/v1/approval/decision/%s?action=approve", p.publicBaseURL, request.ID)
	rejectURL := fmt.Sprintf("%s/api/v1/approval/decision/%s?action=reject", p.publicBaseURL, request.ID)

	htmlContent := fmt.Sprintf(`
		<h3>Yêu cầu duyệt content %s</h3>
		<p>Platform: <b>%s</b></p>
		<blockquote style="border-left:3px solid #ccc;padding-left:10px;">%s</blockquote>
		<div style="margin-top:20px;">
			<a href="%s" style="display:inline-block;padding:10px 20px;margin:5px;text-decoration:none;border-radius:5px;background-color:#28a745;color:#fff;">Duyệt</a>
			<a href="%s" style="display:inline-block;padding:10px 20px;margin:5px;text-decoration:none;border-radius:5px;background-color:#dc3545;color:#fff;">Từ chối</a>
		</div>`,
		request.ID, platform, preview, approveURL, rejectURL)

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", p.smtp.FromName, p.smtp.FromEmail))
	msg.SetHeader("To", p.approverMail)
	msg.SetHeader("Subject", fmt.Sprintf("[Duyệt content] %s", request.ID))
	msg.SetBody("text/html", htmlContent)

	if err := p.dialFn(msg); err != nil {
		return nil, err
	}

	updated := *request
	updated.PlatformID = request.ID // Correlation id: quyết định tra theo request id
	return &updated, nil
}

// CheckApprovalStatus đọc quyết định từ cache (do webhook handler ghi).
func (p *EmailApprovalProvider) CheckApprovalStatus(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	var decision EmailDecision
	found, err := p.cache.Get(ctx, DecisionCacheKey(request.ID), &decision)
	if err != nil {
		return nil, err
	}

	updated := *request
	if !found {
		return &updated, nil
	}

	switch decision.Action {
	case "approve":
		updated.Status = approval.StatusApproved
	case "reject":
		updated.Status = approval.StatusRejected
	default:
		return &updated, nil
	}
	updated.ApproverID = decision.Approver
	updated.ReviewerComments = decision.Comments
	return &updated, nil
}

// CleanupRequest xóa quyết định đã dùng khỏi cache.
func (p *EmailApprovalProvider) CleanupRequest(ctx context.Context, platformID string) error {
	return p.cache.Delete(ctx, DecisionCacheKey(platformID))
}

// RecordDecision ghi quyết định của reviewer vào cache (gọi từ webhook handler).
// Quyết định tự hết hạn sau 30 ngày để không tích rác trong cache.
func RecordDecision(ctx context.Context, c cache.DurableCache, requestID string, action string, approver string, comments string) error {
	decision := EmailDecision{
		Action:    action,
		Approver:  approver,
		Comments:  comments,
		DecidedAt: time.Now().UnixMilli(),
	}
	expiresAt := time.Now().Add(30 * 24 * time.Hour).UnixMilli()
	return c.Set(ctx, DecisionCacheKey(requestID), decision, expiresAt)
}
