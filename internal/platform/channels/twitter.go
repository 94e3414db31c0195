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

const twitterMaxLength = 280

// TwitterAdapter triển khai platform.Adapter cho Twitter API v2.
type TwitterAdapter struct {
	bearerToken string
	baseURL     string
	client      *http.Client
}

// NewTwitterAdapter tạo adapter với bearer token từ config.
func NewTwitterAdapter(bearerToken string) *TwitterAdapter {
	return &TwitterAdapter{
		bearerToken: bearerToken,
		baseURL:     "https://api.twitter.com",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// FormatContent cắt content theo giới hạn 280 ký tự và thêm hashtags từ keywords.
func (a *TwitterAdapter) FormatContent(ctx context.Context, piece *models.ContentPiece) (string, error) {
	content := piece.Content
	if content == "" {
		content = piece.Brief
	}

	// Hashtags từ keywords, chỉ thêm khi còn chỗ
	var hashtags []string
	for _, kw := range piece.Keywords {
		tag := "#" + strings.ReplaceAll(strings.TrimSpace(kw), " ", "")
		if tag != "#" {
			hashtags = append(hashtags, tag)
		}
	}
	suffix := ""
	if len(hashtags) > 0 {
		suffix = "\n\n" + strings.Join(hashtags, " ")
	}

	runes := []rune(content)
	budget := twitterMaxLength - len([]rune(suffix))
	if budget < 0 {
		suffix = ""
		budget = twitterMaxLength
	}
	if len(runes) > budget {
		// Cắt và thêm ellipsis
		if budget > 1 {
			runes = runes[:budget-1]
			content = string(runes) + "…"
		} else {
			content = string(runes[:budget])
		}
	}

	return content + suffix, nil
}

// ValidateContent kiểm tra content theo rules của Twitter.
func (a *TwitterAdapter) ValidateContent(ctx context.Context, content string) (platform.ValidationResult, error) {
	var errs []string
	if strings.TrimSpace(content) == "" {
		errs = append(errs, "content rỗng")
	}
	if len([]rune(content)) > twitterMaxLength {
		errs = append(errs, fmt.Sprintf("content vượt quá %d ký tự (%d)", twitterMaxLength, len([]rune(content))))
	}
	return platform.ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}

// PublishContent đăng tweet qua Twitter API v2.
func (a *TwitterAdapter) PublishContent(ctx context.Context, content string, piece *models.ContentPiece) (platform.PublishResult, error) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"pieceId":  piece.ID,
		"platform": "twitter",
	}).Info("🐦 [TWITTER] Bắt đầu đăng tweet")

	payload := map[string]interface{}{"text": content}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return platform.PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/2/tweets", bytes.NewBuffer(jsonData))
	if err != nil {
		return platform.PublishResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.bearerToken)

	resp, err := a.client.Do(req)
	if err != nil {
		log.WithError(err).WithField("pieceId", piece.ID).Error("🐦 [TWITTER] Lỗi khi gọi Twitter API")
		return platform.PublishResult{}, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		log.WithFields(map[string]interface{}{
			"pieceId":    piece.ID,
			"statusCode": resp.StatusCode,
			"response":   string(bodyBytes),
		}).Error("🐦 [TWITTER] Twitter API trả về lỗi")
		return platform.PublishResult{}, apiError("twitter", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return platform.PublishResult{}, fmt.Errorf("failed to parse twitter response: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"pieceId": piece.ID,
		"tweetId": result.Data.ID,
	}).Info("🐦 [TWITTER] Đăng tweet thành công")

	return platform.PublishResult{
		Success:      true,
		PlatformID:   result.Data.ID,
		PublishedURL: fmt.Sprintf("https://twitter.com/i/web/status/%s", result.Data.ID),
		Timestamp:    time.Now().UnixMilli(),
	}, nil
}

// CheckConnection kiểm tra bearer token còn hợp lệ không.
func (a *TwitterAdapter) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+"/2/users/me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.bearerToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return apiError("twitter", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// GetTrends lấy trending topics toàn cầu (WOEID 1).
func (a *TwitterAdapter) GetTrends(ctx context.Context) ([]platform.Trend, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+"/1.1/trends/place.json?id=1", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.bearerToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("twitter", resp.StatusCode, string(bodyBytes))
	}

	var result []struct {
		Trends []struct {
			Name        string `json:"name"`
			URL         string `json:"url"`
			TweetVolume int64  `json:"tweet_volume"`
		} `json:"trends"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to parse twitter trends response: %w", err)
	}

	var trends []platform.Trend
	for _, group := range result {
		for _, t := range group.Trends {
			trends = append(trends, platform.Trend{
				Name:   t.Name,
				Volume: t.TweetVolume,
				URL:    t.URL,
			})
		}
	}
	return trends, nil
}
