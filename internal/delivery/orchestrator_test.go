package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/approval"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/common"
	"meta_publisher/internal/platform"
	"meta_publisher/internal/registry"
)

// ====================================
// FAKES
// ====================================

type fakeAdapter struct {
	mu           sync.Mutex
	publishCalls int
	publishErr   error
	validateErrs []string
}

func (a *fakeAdapter) FormatContent(ctx context.Context, piece *contentmodels.ContentPiece) (string, error) {
	if piece.Content != "" {
		return piece.Content, nil
	}
	return piece.Brief, nil
}

func (a *fakeAdapter) ValidateContent(ctx context.Context, content string) (platform.ValidationResult, error) {
	if len(a.validateErrs) > 0 {
		return platform.ValidationResult{Valid: false, Errors: a.validateErrs}, nil
	}
	return platform.ValidationResult{Valid: true}, nil
}

func (a *fakeAdapter) PublishContent(ctx context.Context, content string, piece *contentmodels.ContentPiece) (platform.PublishResult, error) {
	a.mu.Lock()
	a.publishCalls++
	a.mu.Unlock()
	if a.publishErr != nil {
		return platform.PublishResult{}, a.publishErr
	}
	return platform.PublishResult{
		Success:      true,
		PlatformID:   "platform-123",
		PublishedURL: "https://example.com/platform-123",
		Timestamp:    time.Now().UnixMilli(),
	}, nil
}

func (a *fakeAdapter) CheckConnection(ctx context.Context) error { return nil }

func (a *fakeAdapter) GetTrends(ctx context.Context) ([]platform.Trend, error) {
	return []platform.Trend{}, nil
}

func (a *fakeAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.publishCalls
}

type memStore struct {
	mu     sync.Mutex
	pieces map[string]contentmodels.ContentPiece
}

func newMemStore() *memStore {
	return &memStore{pieces: make(map[string]contentmodels.ContentPiece)}
}

func (s *memStore) FindByPieceID(ctx context.Context, pieceID string) (contentmodels.ContentPiece, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	piece, ok := s.pieces[pieceID]
	if !ok {
		return contentmodels.ContentPiece{}, common.ErrNotFound
	}
	return piece, nil
}

func (s *memStore) SavePiece(ctx context.Context, piece contentmodels.ContentPiece) (contentmodels.ContentPiece, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pieces[piece.ID] = piece
	return piece, nil
}

func (s *memStore) IsPublished(ctx context.Context, pieceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	piece, ok := s.pieces[pieceID]
	return ok && piece.Status == contentmodels.ContentStatusPublished, nil
}

type fakeCoordinator struct {
	mu          sync.Mutex
	status      string
	submitCalls int
}

func (f *fakeCoordinator) SendForApproval(ctx context.Context, request approval.ApprovalRequest) (approval.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	request.ID = approval.RequestID(request.ContentID())
	request.Status = f.status
	request.Timestamp = time.Now().UnixMilli()
	return request, nil
}

// stubProvider là approval.Provider in-memory cho các test nối orchestrator
// với Coordinator thật.
type stubProvider struct {
	mu     sync.Mutex
	status string
}

func (p *stubProvider) SubmitForApproval(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	out := *request
	out.PlatformID = "msg-" + request.ID
	return &out, nil
}

func (p *stubProvider) CheckApprovalStatus(ctx context.Context, request *approval.ApprovalRequest) (*approval.ApprovalRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := *request
	if p.status != "" {
		out.Status = p.status
	}
	return &out, nil
}

func (p *stubProvider) CleanupRequest(ctx context.Context, platformID string) error { return nil }

func (p *stubProvider) setStatus(status string) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

// ====================================
// HELPERS
// ====================================

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func testPiece(id string) contentmodels.ContentPiece {
	return contentmodels.ContentPiece{
		ID:       id,
		Topic:    "Chủ đề test",
		Platform: "twitter",
		Content:  "Nội dung test cho piece " + id,
		Status:   contentmodels.ContentStatusReady,
	}
}

func newTestOrchestrator(t *testing.T, adapter *fakeAdapter, coordinator ApprovalCoordinator) (*Orchestrator, *memStore, *cache.MemoryCache) {
	t.Helper()

	adapters := registry.NewRegistry[platform.Adapter]()
	adapters.Register("twitter", adapter)

	store := newMemStore()
	memCache := cache.NewMemoryCache()

	o := NewOrchestrator(memCache, adapters, coordinator, store, nil)
	o.retry = retryPolicy{initialInterval: time.Millisecond, maxInterval: 2 * time.Millisecond}
	o.waitStep = time.Millisecond
	o.waitMax = 20 * time.Millisecond
	t.Cleanup(o.Stop)

	return o, store, memCache
}

// ====================================
// TESTS
// ====================================

func TestSubmitContentRejectsAlreadyPublished(t *testing.T) {
	adapter := &fakeAdapter{}
	o, store, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	piece := testPiece("c1")
	piece.Status = contentmodels.ContentStatusPublished
	store.SavePiece(context.Background(), piece)

	result := o.SubmitContent(context.Background(), piece, DeliveryOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, 0, adapter.calls(), "không được gọi adapter khi piece đã PUBLISHED")
}

func TestSubmitContentValidationFailure(t *testing.T) {
	adapter := &fakeAdapter{validateErrs: []string{"content vượt quá 280 ký tự"}}
	o, _, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ValidationErrors)
	assert.Equal(t, 0, adapter.calls())
}

func TestSubmitContentUnknownPlatform(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &fakeAdapter{}, &fakeCoordinator{status: approval.StatusPending})

	piece := testPiece("c1")
	piece.Platform = "myspace"
	result := o.SubmitContent(context.Background(), piece, DeliveryOptions{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "myspace")
}

// Concrete scenario: skipApproval=true, adapter thành công lần đầu
// → success=true, platformId set, attempts=1, piece PUBLISHED trong store.
func TestSubmitContentSkipApprovalPublishesImmediately(t *testing.T) {
	adapter := &fakeAdapter{}
	o, store, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		SkipApproval: boolPtr(true),
	})

	require.True(t, result.Success, "expect success, got error: %s", result.Error)
	assert.Equal(t, "platform-123", result.PlatformID)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, adapter.calls())

	stored, err := store.FindByPieceID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, contentmodels.ContentStatusPublished, stored.Status)
	assert.Equal(t, "https://example.com/platform-123", stored.PublishedURL)
}

func TestSubmitContentPendingApproval(t *testing.T) {
	adapter := &fakeAdapter{}
	coordinator := &fakeCoordinator{status: approval.StatusPending}
	o, _, _ := newTestOrchestrator(t, adapter, coordinator)

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{})

	assert.True(t, result.Success)
	assert.True(t, result.PendingApproval)
	assert.Equal(t, 1, coordinator.submitCalls)
	assert.Equal(t, 0, adapter.calls(), "chưa được publish khi còn chờ approval")
}

// Approval không khả dụng (FAILED) → auto-approve và publish inline.
func TestSubmitContentApprovalUnavailableAutoApproves(t *testing.T) {
	adapter := &fakeAdapter{}
	o, store, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusFailed})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{})

	require.True(t, result.Success)
	assert.Equal(t, 1, adapter.calls())

	stored, err := store.FindByPieceID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, contentmodels.ContentStatusPublished, stored.Status)
}

// Retry bound: adapter luôn lỗi tạm thời → đúng maxRetries attempts, success=false.
func TestPublishRetryBound(t *testing.T) {
	adapter := &fakeAdapter{publishErr: errors.New("connection reset by peer")}
	o, _, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		SkipApproval: boolPtr(true),
		MaxRetries:   intPtr(3),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, adapter.calls())
}

// Non-retryable short-circuit: lỗi "rate limit exceeded" → đúng một attempt.
func TestPublishNonRetryableShortCircuit(t *testing.T) {
	adapter := &fakeAdapter{publishErr: errors.New("rate limit exceeded: twitter API returned 429")}
	o, _, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		SkipApproval: boolPtr(true),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, adapter.calls())
}

func TestPublishRetryDisabledSingleAttempt(t *testing.T) {
	adapter := &fakeAdapter{publishErr: errors.New("connection reset by peer")}
	o, _, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		SkipApproval: boolPtr(true),
		Retry:        boolPtr(false),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, adapter.calls())
}

func TestPublishContentRejectsUnapproved(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, _ := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	piece := testPiece("c1")
	request := approval.ApprovalRequest{
		ID:          approval.RequestID("c1"),
		ContentType: approval.ContentTypePiece,
		Content:     &piece,
		Status:      approval.StatusPending,
	}
	result := o.PublishContent(context.Background(), request)

	assert.False(t, result.Success)
	assert.Equal(t, 0, adapter.calls())
}

func TestSubmitContentSchedulesFutureDelivery(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, memCache := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	scheduledTime := time.Now().Add(2 * time.Hour).UnixMilli()
	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		ScheduledTime: scheduledTime,
		SkipApproval:  boolPtr(true),
	})

	require.True(t, result.Success)
	assert.True(t, result.Scheduled)
	assert.Equal(t, 0, adapter.calls())

	// Entry và index đã persist
	entryID := ScheduledEntryID("c1", scheduledTime)
	var entry ScheduledDeliveryEntry
	found, err := memCache.Get(context.Background(), ScheduledCacheKey(entryID), &entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c1", entry.Piece.ID)

	var keys []string
	found, err = memCache.Get(context.Background(), ScheduledKeysIndexKey, &keys)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, keys, ScheduledCacheKey(entryID))
}

// Scheduling round trip: schedule cho tương lai, simulate restart (chỉ còn
// state trong cache), clock vượt qua giờ publish → đúng một publish call và
// entry bị xóa khỏi cache.
func TestSchedulingRoundTripAcrossRestart(t *testing.T) {
	adapter := &fakeAdapter{}
	coordinator := &fakeCoordinator{status: approval.StatusPending}

	adapters := registry.NewRegistry[platform.Adapter]()
	adapters.Register("twitter", adapter)
	store := newMemStore()
	memCache := cache.NewMemoryCache()

	base := time.Now()
	scheduledTime := base.Add(2 * time.Hour).UnixMilli()

	// Process thứ nhất: schedule rồi "crash" (Stop bỏ timer in-memory)
	o1 := NewOrchestrator(memCache, adapters, coordinator, store, nil)
	o1.retry = retryPolicy{initialInterval: time.Millisecond, maxInterval: 2 * time.Millisecond}
	result := o1.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		ScheduledTime:         scheduledTime,
		SkipApproval:          boolPtr(true),
		ApprovalOffsetMinutes: 60,
	})
	require.True(t, result.Success)
	require.True(t, result.Scheduled)
	o1.Stop()

	// Process thứ hai: reload từ cache với clock đã vượt qua giờ publish
	o2 := NewOrchestrator(memCache, adapters, coordinator, store, nil)
	o2.retry = retryPolicy{initialInterval: time.Millisecond, maxInterval: 2 * time.Millisecond}
	o2.nowFn = func() time.Time { return base.Add(3 * time.Hour) }
	t.Cleanup(o2.Stop)

	require.NoError(t, o2.LoadScheduledDeliveries(context.Background()))

	entryID := ScheduledEntryID("c1", scheduledTime)
	assert.Eventually(t, func() bool {
		var entry ScheduledDeliveryEntry
		found, _ := memCache.Get(context.Background(), ScheduledCacheKey(entryID), &entry)
		return !found && adapter.calls() == 1
	}, 2*time.Second, 10*time.Millisecond, "entry phải bị xóa và publish đúng một lần")

	stored, err := store.FindByPieceID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, contentmodels.ContentStatusPublished, stored.Status)
}

// Entry còn PENDING lúc timer fire rơi về đường submit thường. Lần submit đó
// nhận lại bản request cached, nhưng continuation phải được rebind sang
// publish — scheduled entry đã bị dọn nên kết quả approval không còn chỗ nào
// khác để resume. Khi reviewer approve sau đó, piece vẫn được publish.
func TestPendingAtFireTimeThenApprovedStillPublishes(t *testing.T) {
	adapter := &fakeAdapter{}
	provider := &stubProvider{status: approval.StatusPending}

	providers := registry.NewRegistry[approval.Provider]()
	providers.Register("twitter", provider)
	adapters := registry.NewRegistry[platform.Adapter]()
	adapters.Register("twitter", adapter)

	store := newMemStore()
	memCache := cache.NewMemoryCache()
	coordinator := approval.NewCoordinator(memCache, providers, approval.CoordinatorOptions{})

	o := NewOrchestrator(memCache, adapters, coordinator, store, nil)
	o.retry = retryPolicy{initialInterval: time.Millisecond, maxInterval: 2 * time.Millisecond}
	o.waitStep = time.Millisecond
	o.waitMax = 20 * time.Millisecond
	t.Cleanup(o.Stop)
	coordinator.SetContinuationHandler(o.HandleContinuation)

	ctx := context.Background()
	scheduledTime := time.Now().Add(2 * time.Hour).UnixMilli()
	result := o.SubmitContent(ctx, testPiece("c1"), DeliveryOptions{
		ScheduledTime:         scheduledTime,
		ApprovalOffsetMinutes: 60,
	})
	require.True(t, result.Success)
	require.True(t, result.Scheduled)

	entryID := ScheduledEntryID("c1", scheduledTime)

	// Prefetch chạy trước giờ publish, reviewer chưa trả lời
	o.runApprovalPrefetch(ctx, entryID)
	assert.Equal(t, 0, adapter.calls())

	// Tới giờ publish: entry vẫn PENDING nên rơi về đường submit thường
	o.runScheduledDelivery(ctx, entryID)
	assert.Equal(t, 0, adapter.calls(), "chưa được publish khi còn chờ approval")

	// Reviewer approve sau đó, sweep nhận kết quả và resume continuation
	provider.setStatus(approval.StatusApproved)
	coordinator.SweepOnce(ctx)

	assert.Equal(t, 1, adapter.calls(), "piece đã duyệt phải được publish")
	stored, err := store.FindByPieceID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, contentmodels.ContentStatusPublished, stored.Status)
}

// Pre-rejection short-circuits publish: entry đã REJECTED trước giờ publish
// → timer không gọi publish, entry bị xóa.
func TestPreRejectionSkipsPublish(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, memCache := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	scheduledTime := time.Now().Add(-time.Minute).UnixMilli()
	entry := ScheduledDeliveryEntry{
		Piece:          testPiece("c1"),
		ScheduledTime:  scheduledTime,
		CreatedAt:      time.Now().UnixMilli(),
		ApprovalStatus: approval.StatusRejected,
	}
	key := ScheduledCacheKey(entry.EntryID())
	require.NoError(t, memCache.Set(context.Background(), key, entry, 0))
	require.NoError(t, memCache.Set(context.Background(), ScheduledKeysIndexKey, []string{key}, 0))

	o.runScheduledDelivery(context.Background(), entry.EntryID())

	assert.Equal(t, 0, adapter.calls(), "pre-rejected entry không được publish")
	var reloaded ScheduledDeliveryEntry
	found, err := memCache.Get(context.Background(), key, &reloaded)
	require.NoError(t, err)
	assert.False(t, found, "entry phải bị xóa sau khi drop")
}

// Entry pre-approved: timer publish trực tiếp bằng approved content.
func TestPreApprovedEntryPublishesStoredContent(t *testing.T) {
	adapter := &fakeAdapter{}
	o, store, memCache := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	entry := ScheduledDeliveryEntry{
		Piece:           testPiece("c1"),
		ScheduledTime:   time.Now().Add(-time.Minute).UnixMilli(),
		CreatedAt:       time.Now().UnixMilli(),
		ApprovalStatus:  approval.StatusApproved,
		ApprovalID:      approval.RequestID("c1"),
		ApprovedContent: "Nội dung đã được duyệt",
	}
	key := ScheduledCacheKey(entry.EntryID())
	require.NoError(t, memCache.Set(context.Background(), key, entry, 0))
	require.NoError(t, memCache.Set(context.Background(), ScheduledKeysIndexKey, []string{key}, 0))

	o.runScheduledDelivery(context.Background(), entry.EntryID())

	assert.Equal(t, 1, adapter.calls())
	stored, err := store.FindByPieceID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, contentmodels.ContentStatusPublished, stored.Status)
}

func TestCancelScheduledDeliveryIdempotent(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, memCache := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	scheduledTime := time.Now().Add(time.Hour).UnixMilli()
	result := o.SubmitContent(context.Background(), testPiece("c1"), DeliveryOptions{
		ScheduledTime: scheduledTime,
		SkipApproval:  boolPtr(true),
	})
	require.True(t, result.Success)

	entryID := ScheduledEntryID("c1", scheduledTime)
	require.NoError(t, o.CancelScheduledDelivery(context.Background(), entryID))

	var entry ScheduledDeliveryEntry
	found, err := memCache.Get(context.Background(), ScheduledCacheKey(entryID), &entry)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, o.scheduler.Pending())

	// Cancel lần hai không lỗi
	assert.NoError(t, o.CancelScheduledDelivery(context.Background(), entryID))
}

func TestMaintenanceCleansExpiredAndResetsStuck(t *testing.T) {
	adapter := &fakeAdapter{}
	o, _, memCache := newTestOrchestrator(t, adapter, &fakeCoordinator{status: approval.StatusPending})

	now := time.Now()
	o.nowFn = func() time.Time { return now }

	// Entry quá hạn grace window (scheduledTime 25h trước)
	expired := ScheduledDeliveryEntry{
		Piece:         testPiece("old"),
		ScheduledTime: now.Add(-25 * time.Hour).UnixMilli(),
		CreatedAt:     now.Add(-26 * time.Hour).UnixMilli(),
	}
	expiredKey := ScheduledCacheKey(expired.EntryID())

	// Entry isProcessing kẹt 45 phút
	stuck := ScheduledDeliveryEntry{
		Piece:         testPiece("stuck"),
		ScheduledTime: now.Add(time.Hour).UnixMilli(),
		CreatedAt:     now.Add(-2 * time.Hour).UnixMilli(),
		IsProcessing:  true,
		LastProcessed: now.Add(-45 * time.Minute).UnixMilli(),
	}
	stuckKey := ScheduledCacheKey(stuck.EntryID())

	ctx := context.Background()
	require.NoError(t, memCache.Set(ctx, expiredKey, expired, 0))
	require.NoError(t, memCache.Set(ctx, stuckKey, stuck, 0))
	require.NoError(t, memCache.Set(ctx, ScheduledKeysIndexKey, []string{expiredKey, stuckKey, "contentDelivery/scheduled/orphan-1"}, 0))

	o.RunMaintenance(ctx)

	var entry ScheduledDeliveryEntry
	found, err := memCache.Get(ctx, expiredKey, &entry)
	require.NoError(t, err)
	assert.False(t, found, "entry quá hạn phải bị dọn")

	found, err = memCache.Get(ctx, stuckKey, &entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, entry.IsProcessing, "isProcessing kẹt phải được reset")

	var keys []string
	_, err = memCache.Get(ctx, ScheduledKeysIndexKey, &keys)
	require.NoError(t, err)
	assert.NotContains(t, keys, expiredKey)
	assert.NotContains(t, keys, "contentDelivery/scheduled/orphan-1", "orphan key phải bị dọn khỏi index")
	assert.Contains(t, keys, stuckKey)
}

func TestMergeDefaults(t *testing.T) {
	merged := mergeDefaults(DeliveryOptions{})
	assert.True(t, merged.Retry)
	assert.Equal(t, 3, merged.MaxRetries)
	assert.True(t, merged.ValidateBeforePublish)
	assert.False(t, merged.SkipApproval)
	assert.Equal(t, 3*time.Hour, merged.ApprovalOffset)

	merged = mergeDefaults(DeliveryOptions{
		Retry:                 boolPtr(false),
		MaxRetries:            intPtr(5),
		SkipApproval:          boolPtr(true),
		ApprovalOffsetMinutes: 30,
	})
	assert.False(t, merged.Retry)
	assert.Equal(t, 5, merged.MaxRetries)
	assert.True(t, merged.SkipApproval)
	assert.Equal(t, 30*time.Minute, merged.ApprovalOffset)
}

func TestIsFatalPublishError(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{errors.New("authentication failure: token expired"), true},
		{errors.New("insufficient permissions: missing scope"), true},
		{errors.New("invalid content format: too long"), true},
		{errors.New("account suspended: policy violation"), true},
		{errors.New("rate limit exceeded: try later"), true},
		{errors.New("connection reset by peer"), false},
		{fmt.Errorf("twitter API returned status 500: internal error"), false},
		{nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.fatal, isFatalPublishError(tc.err), "err: %v", tc.err)
	}
}
