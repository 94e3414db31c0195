package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/registry"
)

// fakeProvider trả về trạng thái cấu hình sẵn, đếm số lần bị gọi.
type fakeProvider struct {
	mu           sync.Mutex
	submitCalls  int
	checkCalls   int
	cleanupCalls []string
	submitErr    error
	checkStatus  string // Status trả về từ CheckApprovalStatus ("" = giữ nguyên)
	checkErr     error
}

func (p *fakeProvider) SubmitForApproval(ctx context.Context, request *ApprovalRequest) (*ApprovalRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitCalls++
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	out := *request
	out.PlatformID = "msg-" + request.ID
	return &out, nil
}

func (p *fakeProvider) CheckApprovalStatus(ctx context.Context, request *ApprovalRequest) (*ApprovalRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkCalls++
	if p.checkErr != nil {
		return nil, p.checkErr
	}
	out := *request
	if p.checkStatus != "" {
		out.Status = p.checkStatus
		out.ApproverID = "reviewer-1"
	}
	return &out, nil
}

func (p *fakeProvider) CleanupRequest(ctx context.Context, platformID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanupCalls = append(p.cleanupCalls, platformID)
	return nil
}

func (p *fakeProvider) submits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitCalls
}

// continuationRecorder đếm số lần continuation được invoke.
type continuationRecorder struct {
	mu       sync.Mutex
	requests []ApprovalRequest
	err      error
	failures int // Số lần đầu trả lỗi trước khi thành công
}

func (r *continuationRecorder) fn(ctx context.Context, request ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("continuation tạm thời lỗi")
	}
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, request)
	return nil
}

func (r *continuationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func pieceRequest(id string) ApprovalRequest {
	piece := contentmodels.ContentPiece{
		ID:       id,
		Topic:    "Chủ đề test",
		Platform: "discord",
		Content:  "Nội dung chờ duyệt",
	}
	return ApprovalRequest{
		ContentType: ContentTypePiece,
		Content:     &piece,
		RequesterID: "tester",
		Continuation: &ContinuationRef{
			Kind:    ContinuationPublish,
			PieceID: id,
		},
	}
}

func newTestCoordinator(opts CoordinatorOptions, provider Provider) (*Coordinator, *cache.MemoryCache) {
	providers := registry.NewRegistry[Provider]()
	if provider != nil {
		providers.Register("discord", provider)
	}
	memCache := cache.NewMemoryCache()
	co := NewCoordinator(memCache, providers, opts)
	co.retryInitialInterval = time.Millisecond
	return co, memCache
}

func TestSendForApprovalIdempotentResubmission(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{}, provider)

	ctx := context.Background()
	first, err := co.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, RequestID("c1"), first.ID)

	second, err := co.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, provider.submits(), "resubmission không được submit lại tới provider")
	assert.Equal(t, 1, co.ActiveCount())
}

func TestSendForApprovalAutoApprove(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{AutoApprove: true}, provider)
	recorder := &continuationRecorder{}
	co.SetContinuationHandler(recorder.fn)

	sent, err := co.SendForApproval(context.Background(), pieceRequest("c1"))
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, sent.Status)
	assert.Equal(t, 0, provider.submits(), "auto-approve không đi qua provider")
	assert.Equal(t, 1, recorder.count(), "continuation phải được invoke đúng một lần")
	assert.Equal(t, 0, co.ActiveCount())
}

func TestSendForApprovalNoProviderReturnsFailed(t *testing.T) {
	co, _ := newTestCoordinator(CoordinatorOptions{}, nil)
	recorder := &continuationRecorder{}
	co.SetContinuationHandler(recorder.fn)

	sent, err := co.SendForApproval(context.Background(), pieceRequest("c1"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, sent.Status)
	assert.Equal(t, 0, recorder.count(), "resolve thất bại không được invoke continuation")
	assert.Equal(t, 0, co.ActiveCount())
}

func TestSendForApprovalProviderSubmitError(t *testing.T) {
	provider := &fakeProvider{submitErr: errors.New("discord API 500")}
	co, _ := newTestCoordinator(CoordinatorOptions{}, provider)

	sent, err := co.SendForApproval(context.Background(), pieceRequest("c1"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, sent.Status)
	assert.Equal(t, 0, co.ActiveCount())
}

func TestSendForApprovalFallsBackToDefaultProvider(t *testing.T) {
	// Piece platform "twitter" không có provider, default là "discord"
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{DefaultProvider: "discord"}, provider)

	request := pieceRequest("c1")
	request.Content.Platform = "twitter"
	sent, err := co.SendForApproval(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, sent.Status)
	assert.Equal(t, "discord", sent.ProviderName)
	assert.Equal(t, 1, provider.submits())
}

func TestSweepAppliesStatusChange(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{}, provider)
	recorder := &continuationRecorder{}
	co.SetContinuationHandler(recorder.fn)

	ctx := context.Background()
	sent, err := co.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)
	require.Equal(t, StatusPending, sent.Status)

	// Reviewer approve phía provider
	provider.mu.Lock()
	provider.checkStatus = StatusApproved
	provider.mu.Unlock()

	co.SweepOnce(ctx)

	require.Equal(t, 1, recorder.count())
	assert.Equal(t, StatusApproved, recorder.requests[0].Status)
	assert.Equal(t, 0, co.ActiveCount(), "terminal request phải rời active set")
	assert.Equal(t, []string{"msg-" + RequestID("c1")}, provider.cleanupCalls, "artifact phía provider phải được cleanup")
}

func TestSweepKeepsStatusOnProviderError(t *testing.T) {
	provider := &fakeProvider{checkErr: errors.New("timeout")}
	co, _ := newTestCoordinator(CoordinatorOptions{}, provider)
	recorder := &continuationRecorder{}
	co.SetContinuationHandler(recorder.fn)

	ctx := context.Background()
	_, err := co.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)

	co.SweepOnce(ctx)

	assert.Equal(t, 0, recorder.count(), "provider outage không được đổi trạng thái")
	assert.Equal(t, 1, co.ActiveCount())
}

func TestSweepAutoRejectsStaleRequests(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{AutoRejectDays: 7}, provider)
	recorder := &continuationRecorder{}
	co.SetContinuationHandler(recorder.fn)

	ctx := context.Background()
	base := time.Now()
	co.nowFn = func() time.Time { return base }
	_, err := co.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)

	// 8 ngày sau, request vẫn pending
	co.nowFn = func() time.Time { return base.AddDate(0, 0, 8) }
	co.SweepOnce(ctx)

	require.Equal(t, 1, recorder.count(), "continuation phải fire đúng một lần")
	assert.Equal(t, StatusRejected, recorder.requests[0].Status)
	assert.Contains(t, recorder.requests[0].ReviewerComments, "Auto-rejected")
	assert.Equal(t, 0, co.ActiveCount())

	// Sweep tiếp theo không fire lại
	co.SweepOnce(ctx)
	assert.Equal(t, 1, recorder.count())
}

func TestContinuationRetriesTransientError(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{AutoApprove: true}, provider)
	recorder := &continuationRecorder{failures: 2}
	co.SetContinuationHandler(recorder.fn)

	_, err := co.SendForApproval(context.Background(), pieceRequest("c1"))
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.count(), "continuation phải thành công sau retry")
}

func TestContinuationFailureDoesNotPropagate(t *testing.T) {
	provider := &fakeProvider{}
	co, _ := newTestCoordinator(CoordinatorOptions{AutoApprove: true}, provider)
	recorder := &continuationRecorder{err: errors.New("orchestrator lỗi vĩnh viễn")}
	co.SetContinuationHandler(recorder.fn)

	sent, err := co.SendForApproval(context.Background(), pieceRequest("c1"))
	require.NoError(t, err, "lỗi continuation không được propagate")
	assert.Equal(t, StatusApproved, sent.Status)
}

func TestLoadPendingApprovalsRestoresActiveSet(t *testing.T) {
	provider := &fakeProvider{}
	co1, memCache := newTestCoordinator(CoordinatorOptions{}, provider)

	ctx := context.Background()
	_, err := co1.SendForApproval(ctx, pieceRequest("c1"))
	require.NoError(t, err)
	_, err = co1.SendForApproval(ctx, pieceRequest("c2"))
	require.NoError(t, err)
	require.Equal(t, 2, co1.ActiveCount())

	// Coordinator mới trên cùng cache (simulate restart)
	providers := registry.NewRegistry[Provider]()
	providers.Register("discord", provider)
	co2 := NewCoordinator(memCache, providers, CoordinatorOptions{})
	require.NoError(t, co2.LoadPendingApprovals(ctx))
	assert.Equal(t, 2, co2.ActiveCount())

	// Restore xong vẫn sweep được: approve c1 phía provider
	provider.mu.Lock()
	provider.checkStatus = StatusApproved
	provider.mu.Unlock()
	co2.retryInitialInterval = time.Millisecond
	co2.SweepOnce(ctx)
	assert.Equal(t, 0, co2.ActiveCount())
}

func TestRequestIDDeterministic(t *testing.T) {
	assert.Equal(t, "c1-approval", RequestID("c1"))
	assert.Equal(t, "approval/discord/c1-approval", CacheKey("discord", "c1"))
}
