package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/approval"
	"meta_publisher/internal/cache"
)

func newTestEmailProvider(c cache.DurableCache) (*EmailApprovalProvider, *[]*gomail.Message) {
	p := NewEmailApprovalProvider(SMTPConfig{
		Host:      "smtp.test",
		Port:      587,
		FromName:  "Meta Publisher",
		FromEmail: "noreply@test",
	}, "reviewer@test", "https://publisher.test", c)

	var sent []*gomail.Message
	p.dialFn = func(msg *gomail.Message) error {
		sent = append(sent, msg)
		return nil
	}
	return p, &sent
}

func emailRequest(id string) *approval.ApprovalRequest {
	piece := contentmodels.ContentPiece{
		ID:       id,
		Platform: "twitter",
		Content:  "Nội dung chờ duyệt qua email",
	}
	return &approval.ApprovalRequest{
		ID:          approval.RequestID(id),
		ContentType: approval.ContentTypePiece,
		Content:     &piece,
		Status:      approval.StatusPending,
	}
}

func TestEmailSubmitForApprovalSendsMail(t *testing.T) {
	memCache := cache.NewMemoryCache()
	p, sent := newTestEmailProvider(memCache)

	submitted, err := p.SubmitForApproval(context.Background(), emailRequest("c1"))
	require.NoError(t, err)

	assert.Equal(t, submitted.ID, submitted.PlatformID, "correlation id phải là request id")
	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"reviewer@test"}, (*sent)[0].GetHeader("To"))
}

func TestEmailCheckApprovalStatusReadsDecision(t *testing.T) {
	memCache := cache.NewMemoryCache()
	p, _ := newTestEmailProvider(memCache)
	ctx := context.Background()

	request := emailRequest("c1")

	// Chưa có quyết định: giữ nguyên PENDING
	updated, err := p.CheckApprovalStatus(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPending, updated.Status)

	// Reviewer bấm link approve (webhook handler ghi quyết định)
	require.NoError(t, RecordDecision(ctx, memCache, request.ID, "approve", "reviewer@test", "ok"))

	updated, err = p.CheckApprovalStatus(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, updated.Status)
	assert.Equal(t, "reviewer@test", updated.ApproverID)
	assert.Equal(t, "ok", updated.ReviewerComments)
	assert.Equal(t, approval.StatusPending, request.Status, "request đầu vào không được mutate")
}

func TestEmailCheckApprovalStatusReject(t *testing.T) {
	memCache := cache.NewMemoryCache()
	p, _ := newTestEmailProvider(memCache)
	ctx := context.Background()

	request := emailRequest("c1")
	require.NoError(t, RecordDecision(ctx, memCache, request.ID, "reject", "", "không đạt"))

	updated, err := p.CheckApprovalStatus(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusRejected, updated.Status)
}

func TestEmailCleanupRequestDeletesDecision(t *testing.T) {
	memCache := cache.NewMemoryCache()
	p, _ := newTestEmailProvider(memCache)
	ctx := context.Background()

	requestID := approval.RequestID("c1")
	require.NoError(t, RecordDecision(ctx, memCache, requestID, "approve", "", ""))
	require.NoError(t, p.CleanupRequest(ctx, requestID))

	found, err := memCache.Get(ctx, DecisionCacheKey(requestID), nil)
	require.NoError(t, err)
	assert.False(t, found)
}
