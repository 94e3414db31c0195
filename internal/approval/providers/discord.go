// Package providers chứa các approval provider cụ thể (discord reaction, email).
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"meta_publisher/internal/approval"
	"meta_publisher/internal/logger"
)

const (
	discordApproveEmoji = "✅"
	discordRejectEmoji  = "❌"
)

// DiscordApprovalProvider gửi nội dung cần duyệt vào một Discord channel
// và đọc reaction của reviewer để xác định approve/reject.
// Correlation id là message id của bài duyệt.
type DiscordApprovalProvider struct {
	botToken  string
	channelID string
	baseURL   string
	client    *http.Client
}

// NewDiscordApprovalProvider tạo provider với bot token và approval channel từ config.
func NewDiscordApprovalProvider(botToken string, channelID string) *DiscordApprovalProvider {
	return &DiscordApprovalProvider{
		botToken:  botToken,
		channelID: channelID,
		baseURL:   "https://discord.com/api/v10",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SubmitForApproval post message duyệt vào channel và lưu message id làm correlation id.
func (p *DiscordApprovalProvider) SubmitForApproval(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"requestId": request.ID,
		"channelId": p.channelID,
	}).Info("💬 [DISCORD-APPROVAL] Gửi request duyệt vào channel")

	payload := map[string]interface{}{
		"content": p.renderApprovalMessage(request),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/channels/%s/messages", p.baseURL, p.channelID)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+p.botToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to parse discord response: %w", err)
	}

	// Bot tự react trước để reviewer chỉ cần bấm vào emoji có sẵn
	for _, emoji := range []string{discordApproveEmoji, discordRejectEmoji} {
		if err := p.addReaction(ctx, result.ID, emoji); err != nil {
			log.WithError(err).WithField("messageId", result.ID).Warn("💬 [DISCORD-APPROVAL] Không thêm được reaction mồi")
		}
	}

	updated := *request
	updated.PlatformID = result.ID
	return &updated, nil
}

// CheckApprovalStatus đọc reactions của message duyệt.
// Reaction ✅ từ user (ngoài bot) → APPROVED, ❌ → REJECTED, không có → giữ nguyên.
// Reject được ưu tiên khi có cả hai.
func (p *DiscordApprovalProvider) CheckApprovalStatus(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	if request.PlatformID == "" {
		updated := *request
		return &updated, nil
	}

	rejectedBy, err := p.reactionUsers(ctx, request.PlatformID, discordRejectEmoji)
	if err != nil {
		return nil, err
	}
	approvedBy, err := p.reactionUsers(ctx, request.PlatformID, discordApproveEmoji)
	if err != nil {
		return nil, err
	}

	updated := *request
	if len(rejectedBy) > 0 {
		updated.Status = approval.StatusRejected
		updated.ApproverID = rejectedBy[0]
	} else if len(approvedBy) > 0 {
		updated.Status = approval.StatusApproved
		updated.ApproverID = approvedBy[0]
	}
	return &updated, nil
}

// CleanupRequest xóa message duyệt khỏi channel.
func (p *DiscordApprovalProvider) CleanupRequest(ctx context.Context, platformID string) error {
	reqURL := fmt.Sprintf("%s/channels/%s/messages/%s", p.baseURL, p.channelID, platformID)
	req, err := http.NewRequestWithContext(ctx, "DELETE", reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// renderApprovalMessage dựng nội dung message duyệt từ request.
func (p *DiscordApprovalProvider) renderApprovalMessage(request *approval.ApprovalRequest) string {
	var preview, platform string
	if request.Content != nil {
		platform = request.Content.Platform
		preview = request.Content.FormattedContent
		if preview == "" {
			preview = request.Content.Content
		}
	}
	if len([]rune(preview)) > 1500 {
		preview = string([]rune(preview)[:1500]) + "…"
	}

	return fmt.Sprintf(
		"**Yêu cầu duyệt content** `%s`\nPlatform: `%s`\n\n%s\n\nReact %s để duyệt, %s để từ chối.",
		request.ID, platform, preview, discordApproveEmoji, discordRejectEmoji,
	)
}

// addReaction thêm reaction của bot vào message.
func (p *DiscordApprovalProvider) addReaction(ctx context.Context, messageID string, emoji string) error {
	reqURL := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/@me",
		p.baseURL, p.channelID, messageID, url.PathEscape(emoji))
	req, err := http.NewRequestWithContext(ctx, "PUT", reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// reactionUsers trả về id các user (ngoài bot) đã react emoji lên message.
func (p *DiscordApprovalProvider) reactionUsers(ctx context.Context, messageID string, emoji string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s",
		p.baseURL, p.channelID, messageID, url.PathEscape(emoji))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+p.botToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var users []struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	}
	if err := json.Unmarshal(bodyBytes, &users); err != nil {
		return nil, fmt.Errorf("failed to parse discord response: %w", err)
	}

	var ids []string
	for _, u := range users {
		if !u.Bot {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}
