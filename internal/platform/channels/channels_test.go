package channels

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meta_publisher/internal/api/content/models"
)

func TestTwitterFormatContentAddsHashtags(t *testing.T) {
	a := NewTwitterAdapter("token")
	piece := &models.ContentPiece{
		ID:       "c1",
		Content:  "Bài viết ngắn về Go",
		Keywords: []string{"golang", "backend dev"},
	}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)

	assert.Contains(t, formatted, "Bài viết ngắn về Go")
	assert.Contains(t, formatted, "#golang")
	assert.Contains(t, formatted, "#backenddev", "khoảng trắng trong keyword phải bị bỏ")
	assert.LessOrEqual(t, len([]rune(formatted)), twitterMaxLength)
}

func TestTwitterFormatContentTruncatesLongContent(t *testing.T) {
	a := NewTwitterAdapter("token")
	piece := &models.ContentPiece{
		ID:      "c1",
		Content: strings.Repeat("a", 500),
	}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)

	assert.Equal(t, twitterMaxLength, len([]rune(formatted)))
	assert.True(t, strings.HasSuffix(formatted, "…"))
}

func TestTwitterFormatContentFallsBackToBrief(t *testing.T) {
	a := NewTwitterAdapter("token")
	piece := &models.ContentPiece{ID: "c1", Brief: "Brief thay cho content"}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)
	assert.Equal(t, "Brief thay cho content", formatted)
}

func TestTwitterValidateContent(t *testing.T) {
	a := NewTwitterAdapter("token")
	ctx := context.Background()

	result, err := a.ValidateContent(ctx, "tweet hợp lệ")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = a.ValidateContent(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, result.Valid)

	result, err = a.ValidateContent(ctx, strings.Repeat("a", twitterMaxLength+1))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "280")
}

func TestDiscordFormatContentPrependsTopic(t *testing.T) {
	a := NewDiscordAdapter("token", "ch-1")
	piece := &models.ContentPiece{
		ID:      "c1",
		Topic:   "Thông báo",
		Content: "Nội dung message",
	}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(formatted, "**Thông báo**\n\n"))
	assert.Contains(t, formatted, "Nội dung message")
}

func TestDiscordFormatContentTruncates(t *testing.T) {
	a := NewDiscordAdapter("token", "ch-1")
	piece := &models.ContentPiece{
		ID:      "c1",
		Content: strings.Repeat("b", discordMaxLength+100),
	}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)
	assert.Equal(t, discordMaxLength, len([]rune(formatted)))
	assert.True(t, strings.HasSuffix(formatted, "…"))
}

func TestDiscordValidateContent(t *testing.T) {
	a := NewDiscordAdapter("token", "ch-1")
	ctx := context.Background()

	result, err := a.ValidateContent(ctx, "message hợp lệ")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = a.ValidateContent(ctx, strings.Repeat("b", discordMaxLength+1))
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestMediumFormatContentRendersMarkdownTitle(t *testing.T) {
	a := NewMediumAdapter("token", "author-1")
	piece := &models.ContentPiece{
		ID:      "c1",
		Topic:   "Tiêu đề article",
		Content: "Thân bài",
	}

	formatted, err := a.FormatContent(context.Background(), piece)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(formatted, "# Tiêu đề article\n\n"))
}

func TestMediumValidateContentMinLength(t *testing.T) {
	a := NewMediumAdapter("token", "author-1")
	ctx := context.Background()

	result, err := a.ValidateContent(ctx, "quá ngắn")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "100")

	result, err = a.ValidateContent(ctx, strings.Repeat("nội dung dài ", 20))
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestAPIErrorClassification(t *testing.T) {
	cases := []struct {
		statusCode int
		body       string
		wantPrefix string
	}{
		{http.StatusUnauthorized, "bad token", "authentication failure"},
		{http.StatusForbidden, "missing scope", "insufficient permissions"},
		{http.StatusForbidden, "account SUSPENDED for violation", "account suspended"},
		{http.StatusBadRequest, "bad payload", "invalid content format"},
		{http.StatusUnprocessableEntity, "bad entity", "invalid content format"},
		{http.StatusTooManyRequests, "slow down", "rate limit exceeded"},
	}
	for _, tc := range cases {
		err := apiError("twitter", tc.statusCode, tc.body)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), tc.wantPrefix), "status %d: %s", tc.statusCode, err.Error())
	}

	// 5xx giữ nguyên, không match pattern fatal nào
	err := apiError("twitter", http.StatusInternalServerError, "boom")
	assert.Equal(t, "twitter API returned status 500: boom", err.Error())
}
