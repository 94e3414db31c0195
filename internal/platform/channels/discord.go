package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meta_publisher/internal/api/content/models"
	"meta_publisher/internal/logger"
	"meta_publisher/internal/platform"
)

const discordMaxLength = 2000

// DiscordAdapter triển khai platform.Adapter cho Discord (bot gửi message vào channel).
type DiscordAdapter struct {
	botToken  string
	channelID string
	baseURL   string
	client    *http.Client
}

// NewDiscordAdapter tạo adapter với bot token và channel đích từ config.
func NewDiscordAdapter(botToken string, channelID string) *DiscordAdapter {
	return &DiscordAdapter{
		botToken:  botToken,
		channelID: channelID,
		baseURL:   "https://discord.com/api/v10",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FormatContent ghép topic làm dòng đầu (bold) và cắt theo giới hạn 2000 ký tự.
func (a *DiscordAdapter) FormatContent(ctx context.Context, piece *models.ContentPiece) (string, error) {
	content := piece.Content
	if content == "" {
		content = piece.Brief
	}

	if piece.Topic != "" {
		content = "**" + piece.Topic + "**\n\n" + content
	}

	runes := []rune(content)
	if len(runes) > discordMaxLength {
		content = string(runes[:discordMaxLength-1]) + "…"
	}
	return content, nil
}

// ValidateContent kiểm tra content theo rules của Discord.
func (a *DiscordAdapter) ValidateContent(ctx context.Context, content string) (platform.ValidationResult, error) {
	var errs []string
	if strings.TrimSpace(content) == "" {
		errs = append(errs, "content rỗng")
	}
	if len([]rune(content)) > discordMaxLength {
		errs = append(errs, fmt.Sprintf("content vượt quá %d ký tự (%d)", discordMaxLength, len([]rune(content))))
	}
	return platform.ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// PublishContent gửi message vào Discord channel qua bot API.
func (a *DiscordAdapter) PublishContent(ctx context.Context, content string, piece *models.ContentPiece) (platform.PublishResult, error) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"pieceId":   piece.ID,
		"platform":  "discord",
		"channelId": a.channelID,
	}).Info("💬 [DISCORD] Bắt đầu gửi message")

	payload := map[string]interface{}{"content": content}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return platform.PublishResult{}, err
	}

	url := fmt.Sprintf("%s/channels/%s/messages", a.baseURL, a.channelID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return platform.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+a.botToken)

	resp, err := a.client.Do(req)
	if err != nil {
		log.WithError(err).WithField("pieceId", piece.ID).Error("💬 [DISCORD] Lỗi khi gọi Discord API")
		return platform.PublishResult{}, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.WithFields(map[string]interface{}{
			"pieceId":    piece.ID,
			"statusCode": resp.StatusCode,
			"response":   string(bodyBytes),
		}).Error("💬 [DISCORD] Discord API trả về lỗi")
		return platform.PublishResult{}, apiError("discord", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return platform.PublishResult{}, fmt.Errorf("failed to parse discord response: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"pieceId":   piece.ID,
		"messageId": result.ID,
	}).Info("💬 [DISCORD] Gửi message thành công")

	return platform.PublishResult{
		Success:      true,
		PlatformID:   result.ID,
		PublishedURL: fmt.Sprintf("https://discord.com/channels/@me/%s/%s", result.ChannelID, result.ID),
		Timestamp:    time.Now().UnixMilli(),
	}, nil
}

// CheckConnection kiểm tra bot token còn hợp lệ không.
func (a *DiscordAdapter) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+"/users/@me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+a.botToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return apiError("discord", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// GetTrends: Discord không có trending API, trả về danh sách rỗng.
func (a *DiscordAdapter) GetTrends(ctx context.Context) ([]platform.Trend, error) {
	return []platform.Trend{}, nil
}
