package approval

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"meta_publisher/internal/cache"
	"meta_publisher/internal/logger"
	"meta_publisher/internal/registry"
)

// ContinuationFunc được orchestrator đăng ký để nhận notify khi approval
// chuyển trạng thái. Coordinator gọi nó với retry, nuốt lỗi sau khi hết retry.
type ContinuationFunc func(ctx context.Context, request ApprovalRequest) error

// CoordinatorOptions là các tham số cấu hình của Coordinator.
type CoordinatorOptions struct {
	AutoApprove      bool   // Bỏ qua provider, approve ngay khi submit
	DefaultProvider  string // Provider cho plan-like payloads và fallback
	AutoRejectDays   int    // Request pending quá số ngày này bị auto-reject
	SweepConcurrency int    // Số request check song song trong một sweep
}

// Coordinator sở hữu lifecycle của các approval request.
// Active set giữ in-memory và persist snapshot vào cache key pendingApprovals
// sau mỗi thay đổi, nên restart chỉ cần LoadPendingApprovals.
type Coordinator struct {
	cache     cache.DurableCache
	providers *registry.Registry[Provider]
	opts      CoordinatorOptions

	mu     sync.Mutex
	active map[string]*ApprovalRequest // key = request ID

	continuationFn ContinuationFunc
	nowFn          func() time.Time

	// Backoff cho continuation retry, override được trong test
	retryInitialInterval time.Duration
	retryMaxTries        uint
}

// NewCoordinator tạo Coordinator mới.
func NewCoordinator(c cache.DurableCache, providers *registry.Registry[Provider], opts CoordinatorOptions) *Coordinator {
	if opts.AutoRejectDays <= 0 {
		opts.AutoRejectDays = 7
	}
	if opts.SweepConcurrency <= 0 {
		opts.SweepConcurrency = 5
	}
	return &Coordinator{
		cache:                c,
		providers:            providers,
		opts:                 opts,
		active:               make(map[string]*ApprovalRequest),
		nowFn:                time.Now,
		retryInitialInterval: time.Second,
		retryMaxTries:        3,
	}
}

// SetContinuationHandler đăng ký handler nhận notify khi approval chuyển trạng thái.
// Phải gọi trước khi submit request đầu tiên.
func (co *Coordinator) SetContinuationHandler(fn ContinuationFunc) {
	co.continuationFn = fn
}

// LoadPendingApprovals khôi phục active set từ cache sau restart.
func (co *Coordinator) LoadPendingApprovals(ctx context.Context) error {
	log := logger.GetAppLogger()

	var snapshot []*ApprovalRequest
	found, err := co.cache.Get(ctx, PendingApprovalsKey, &snapshot)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	co.mu.Lock()
	for _, req := range snapshot {
		if req != nil && !req.IsTerminal() {
			co.active[req.ID] = req
		}
	}
	count := len(co.active)
	co.mu.Unlock()

	log.WithField("count", count).Info("✅ [APPROVAL] Đã khôi phục pending approvals từ cache")
	return nil
}

// SendForApproval submit payload cho approval và trả về request.
//
// Auto-approve: build request APPROVED và invoke continuation ngay, không qua provider.
// Provider resolve thất bại: trả về request FAILED, KHÔNG invoke continuation
// (chỉ state-changing update mới fire continuation).
// Request pending trùng id đã có trong cache: trả về bản cached (idempotent).
func (co *Coordinator) SendForApproval(ctx context.Context, request ApprovalRequest) (ApprovalRequest, error) {
	log := logger.GetAppLogger()

	request.ID = RequestID(request.ContentID())
	request.Timestamp = co.nowFn().UnixMilli()

	// Auto-approve: short-circuit DRAFT → APPROVED, không có provider round trip
	if co.opts.AutoApprove {
		request.Status = StatusApproved
		request.ReviewerComments = "Auto-approved"
		log.WithField("requestId", request.ID).Info("✅ [APPROVAL] Auto-approve được bật, approve ngay")
		co.invokeContinuation(ctx, request)
		return request, nil
	}

	providerName, provider, ok := co.resolveProvider(request)
	if !ok {
		request.Status = StatusFailed
		request.ReviewerComments = "Không resolve được approval provider"
		log.WithFields(map[string]interface{}{
			"requestId":   request.ID,
			"contentType": request.ContentType,
		}).Error("✅ [APPROVAL] Không tìm thấy provider phù hợp")
		return request, nil
	}
	request.ProviderName = providerName

	// Idempotent resubmission: request pending đã tồn tại thì trả về bản cached
	cacheKey := CacheKey(providerName, request.ContentID())
	var existing ApprovalRequest
	found, err := co.cache.Get(ctx, cacheKey, &existing)
	if err != nil {
		log.WithError(err).WithField("requestId", request.ID).Warn("✅ [APPROVAL] Lỗi đọc cache, tiếp tục submit mới")
	}
	if found && existing.Status == StatusPending {
		// Caller mới có thể chờ ở bước khác (vd: scheduled entry đã bị dọn,
		// giờ cần publish trực tiếp): rebind continuation theo lần submit này
		// để kết quả approval không trỏ về bước đã chết.
		if request.Continuation != nil {
			existing.Continuation = request.Continuation

			co.mu.Lock()
			reqCopy := existing
			co.active[existing.ID] = &reqCopy
			co.mu.Unlock()

			if err := co.cache.Set(ctx, cacheKey, existing, 0); err != nil {
				log.WithError(err).WithField("requestId", existing.ID).Error("✅ [APPROVAL] Lỗi persist continuation mới")
			}
			co.persistActiveSet(ctx)
		}
		log.WithField("requestId", existing.ID).Info("✅ [APPROVAL] Request pending đã tồn tại, trả về bản cached")
		return existing, nil
	}

	// Submit mới
	request.Status = StatusPending
	submitted, err := provider.SubmitForApproval(ctx, &request)
	if err != nil {
		request.Status = StatusFailed
		request.ReviewerComments = "Submit tới provider thất bại: " + err.Error()
		log.WithError(err).WithField("requestId", request.ID).Error("✅ [APPROVAL] Submit tới provider thất bại")
		return request, nil
	}
	request = *submitted

	// Persist: active set + content-scoped cache key
	co.mu.Lock()
	reqCopy := request
	co.active[request.ID] = &reqCopy
	co.mu.Unlock()

	if err := co.cache.Set(ctx, cacheKey, request, 0); err != nil {
		log.WithError(err).WithField("requestId", request.ID).Error("✅ [APPROVAL] Lỗi persist request vào cache")
	}
	co.persistActiveSet(ctx)

	log.WithFields(map[string]interface{}{
		"requestId": request.ID,
		"provider":  providerName,
	}).Info("✅ [APPROVAL] Đã submit request cho approval")
	return request, nil
}

// CheckApprovalStatus hỏi provider trạng thái hiện tại của request.
// No-op nếu request không còn trong active set. Lỗi từ provider được nuốt
// và coi như "không đổi" để outage tạm thời không gây false rejection.
func (co *Coordinator) CheckApprovalStatus(ctx context.Context, request ApprovalRequest) (ApprovalRequest, error) {
	log := logger.GetAppLogger()

	co.mu.Lock()
	_, isActive := co.active[request.ID]
	co.mu.Unlock()
	if !isActive {
		return request, nil
	}

	provider, ok := co.providers.Get(request.ProviderName)
	if !ok {
		log.WithField("requestId", request.ID).Warn("✅ [APPROVAL] Provider của request không còn đăng ký")
		return request, nil
	}

	updated, err := provider.CheckApprovalStatus(ctx, &request)
	if err != nil {
		// Transient provider outage: không đổi trạng thái
		log.WithError(err).WithField("requestId", request.ID).Warn("✅ [APPROVAL] Lỗi check status, giữ nguyên trạng thái")
		return request, nil
	}

	if updated.Status != request.Status {
		co.UpdateApprovalRequest(ctx, *updated)
		return *updated, nil
	}
	return request, nil
}

// UpdateApprovalRequest áp dụng trạng thái mới cho request.
// Terminal: xóa khỏi active set và cleanup artifact phía provider (best-effort).
// Luôn persist snapshot active set và bản request mới nhất, rồi invoke
// continuation với retry. Lỗi continuation không bao giờ propagate.
func (co *Coordinator) UpdateApprovalRequest(ctx context.Context, request ApprovalRequest) {
	log := logger.GetAppLogger()

	co.mu.Lock()
	if request.IsTerminal() {
		delete(co.active, request.ID)
	} else {
		reqCopy := request
		co.active[request.ID] = &reqCopy
	}
	co.mu.Unlock()

	// Request vẫn addressable qua content-scoped key sau khi terminal
	if request.ProviderName != "" {
		cacheKey := CacheKey(request.ProviderName, request.ContentID())
		if err := co.cache.Set(ctx, cacheKey, request, 0); err != nil {
			log.WithError(err).WithField("requestId", request.ID).Error("✅ [APPROVAL] Lỗi persist request")
		}
	}
	co.persistActiveSet(ctx)

	// Cleanup artifact phía provider khi terminal (best-effort)
	if request.IsTerminal() && request.PlatformID != "" {
		if provider, ok := co.providers.Get(request.ProviderName); ok {
			if err := provider.CleanupRequest(ctx, request.PlatformID); err != nil {
				log.WithError(err).WithField("requestId", request.ID).Warn("✅ [APPROVAL] Cleanup phía provider thất bại")
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"requestId": request.ID,
		"status":    request.Status,
	}).Info("✅ [APPROVAL] Đã cập nhật trạng thái request")

	co.invokeContinuation(ctx, request)
}

// SweepOnce chạy một chu kỳ sweep: check status mọi active request với
// bounded concurrency, rồi auto-reject request quá hạn qua đúng đường
// UpdateApprovalRequest (cùng notification/cleanup logic với rejection thường).
func (co *Coordinator) SweepOnce(ctx context.Context) {
	log := logger.GetAppLogger()

	co.mu.Lock()
	snapshot := make([]ApprovalRequest, 0, len(co.active))
	for _, req := range co.active {
		snapshot = append(snapshot, *req)
	}
	co.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	// Check status song song với bounded concurrency
	sem := make(chan struct{}, co.opts.SweepConcurrency)
	var wg sync.WaitGroup
	for _, req := range snapshot {
		wg.Add(1)
		sem <- struct{}{}
		go func(r ApprovalRequest) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.WithField("panic", rec).Error("✅ [APPROVAL] Panic trong sweep check")
				}
				<-sem
			}()
			co.CheckApprovalStatus(ctx, r)
		}(req)
	}
	wg.Wait()

	// Auto-reject request quá hạn
	cutoff := co.nowFn().AddDate(0, 0, -co.opts.AutoRejectDays).UnixMilli()
	co.mu.Lock()
	var stale []ApprovalRequest
	for _, req := range co.active {
		if req.Timestamp < cutoff {
			stale = append(stale, *req)
		}
	}
	co.mu.Unlock()

	for _, req := range stale {
		req.Status = StatusRejected
		req.ReviewerComments = "Auto-rejected: request quá hạn duyệt"
		log.WithFields(map[string]interface{}{
			"requestId": req.ID,
			"ageDays":   co.opts.AutoRejectDays,
		}).Warn("✅ [APPROVAL] Auto-reject request quá hạn")
		co.UpdateApprovalRequest(ctx, req)
	}
}

// ActiveCount trả về số request đang active.
func (co *Coordinator) ActiveCount() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return len(co.active)
}

// resolveProvider chọn provider cho request:
// content piece → provider theo platform, fallback default provider,
// fallback provider đầu tiên theo thứ tự lexicographic (deterministic).
// Plan-like payload → default provider.
func (co *Coordinator) resolveProvider(request ApprovalRequest) (string, Provider, bool) {
	tryNames := []string{}
	if request.ContentType == ContentTypePiece && request.Content != nil {
		tryNames = append(tryNames, request.Content.Platform)
	}
	if co.opts.DefaultProvider != "" {
		tryNames = append(tryNames, co.opts.DefaultProvider)
	}
	tryNames = append(tryNames, co.providers.Names()...)

	for _, name := range tryNames {
		if name == "" {
			continue
		}
		if provider, ok := co.providers.Get(name); ok {
			return name, provider, true
		}
	}
	return "", nil, false
}

// persistActiveSet ghi snapshot active set vào cache.
func (co *Coordinator) persistActiveSet(ctx context.Context) {
	co.mu.Lock()
	snapshot := make([]*ApprovalRequest, 0, len(co.active))
	for _, req := range co.active {
		snapshot = append(snapshot, req)
	}
	co.mu.Unlock()

	if err := co.cache.Set(ctx, PendingApprovalsKey, snapshot, 0); err != nil {
		logger.GetAppLogger().WithError(err).Error("✅ [APPROVAL] Lỗi persist active set")
	}
}

// invokeContinuation gọi continuation handler với retry (exponential backoff,
// số lần thử cố định). Hết retry thì log và bỏ — approval bookkeeping không
// bao giờ bị block bởi caller lỗi.
func (co *Coordinator) invokeContinuation(ctx context.Context, request ApprovalRequest) {
	log := logger.GetAppLogger()

	if co.continuationFn == nil || request.Continuation == nil {
		return
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = co.retryInitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := co.continuationFn(ctx, request); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(co.retryMaxTries))

	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"requestId": request.ID,
			"kind":      request.Continuation.Kind,
		}).Error("✅ [APPROVAL] Continuation thất bại sau khi hết retry, bỏ qua")
	}
}
