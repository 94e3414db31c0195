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

const mediumMinLength = 100 // Article quá ngắn không đáng đăng

// MediumAdapter triển khai platform.Adapter cho Medium (đăng article qua API v1).
type MediumAdapter struct {
	accessToken string
	authorID    string
	baseURL     string
	client      *http.Client
}

// NewMediumAdapter tạo adapter với access token và author id từ config.
func NewMediumAdapter(accessToken string, authorID string) *MediumAdapter {
	return &MediumAdapter{
		accessToken: accessToken,
		authorID:    authorID,
		baseURL:     "https://api.medium.com/v1",
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// FormatContent render article dưới dạng markdown với title từ topic.
func (a *MediumAdapter) FormatContent(ctx context.Context, piece *models.ContentPiece) (string, error) {
	content := piece.Content
	if content == "" {
		content = piece.Brief
	}

	var sb strings.Builder
	if piece.Topic != "" {
		sb.WriteString("# " + piece.Topic + "\n\n")
	}
	sb.WriteString(content)
	return sb.String(), nil
}

// ValidateContent kiểm tra article theo rules của Medium.
func (a *MediumAdapter) ValidateContent(ctx context.Context, content string) (platform.ValidationResult, error) {
	var errs []string
	if strings.TrimSpace(content) == "" {
		errs = append(errs, "content rỗng")
	}
	if len([]rune(content)) < mediumMinLength {
		errs = append(errs, fmt.Sprintf("article quá ngắn, tối thiểu %d ký tự", mediumMinLength))
	}
	return platform.ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// PublishContent đăng article lên Medium.
func (a *MediumAdapter) PublishContent(ctx context.Context, content string, piece *models.ContentPiece) (platform.PublishResult, error) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"pieceId":  piece.ID,
		"platform": "medium",
	}).Info("📝 [MEDIUM] Bắt đầu đăng article")

	// Medium cho tối đa 5 tags
	tags := piece.Keywords
	if len(tags) > 5 {
		tags = tags[:5]
	}

	title := piece.Topic
	if title == "" {
		title = piece.Brief
	}

	payload := map[string]interface{}{
		"title":         title,
		"contentFormat": "markdown",
		"content":       content,
		"tags":          tags,
		"publishStatus": "public",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return platform.PublishResult{}, err
	}

	url := fmt.Sprintf("%s/users/%s/posts", a.baseURL, a.authorID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return platform.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		log.WithError(err).WithField("pieceId", piece.ID).Error("📝 [MEDIUM] Lỗi khi gọi Medium API")
		return platform.PublishResult{}, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		log.WithFields(map[string]interface{}{
			"pieceId":    piece.ID,
			"statusCode": resp.StatusCode,
			"response":   string(bodyBytes),
		}).Error("📝 [MEDIUM] Medium API trả về lỗi")
		return platform.PublishResult{}, apiError("medium", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Data struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return platform.PublishResult{}, fmt.Errorf("failed to parse medium response: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"pieceId": piece.ID,
		"postId":  result.Data.ID,
		"url":     result.Data.URL,
	}).Info("📝 [MEDIUM] Đăng article thành công")

	return platform.PublishResult{
		Success:      true,
		PlatformID:   result.Data.ID,
		PublishedURL: result.Data.URL,
		Timestamp:    time.Now().UnixMilli(),
	}, nil
}

// CheckConnection kiểm tra access token còn hợp lệ không.
func (a *MediumAdapter) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+"/me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return apiError("medium", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// GetTrends: Medium không có public trending API, trả về danh sách rỗng.
func (a *MediumAdapter) GetTrends(ctx context.Context) ([]platform.Trend, error) {
	return []platform.Trend{}, nil
}
