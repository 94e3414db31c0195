package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	contentmodels "meta_publisher/internal/api/content/models"
	"meta_publisher/internal/approval"
	"meta_publisher/internal/cache"
	"meta_publisher/internal/logger"
	"meta_publisher/internal/platform"
	"meta_publisher/internal/registry"
)

const maintenanceLockKey = "contentDelivery/maintenanceLock"

// Orchestrator đưa content piece từ submission tới terminal publish outcome.
// Cache là source of truth duy nhất cho scheduling state; timer in-memory
// chỉ là cách thực thi, restart recreate được toàn bộ qua LoadScheduledDeliveries.
type Orchestrator struct {
	cache       cache.DurableCache
	adapters    *registry.Registry[platform.Adapter]
	coordinator ApprovalCoordinator
	store       EntityStore
	history     OutcomeRecorder
	scheduler   *Scheduler

	retry retryPolicy
	nowFn func() time.Time

	// Bounded poll-wait khi delivery timer gặp approval mid-flight
	waitStep time.Duration
	waitMax  time.Duration

	indexMu sync.Mutex // Serialize read-modify-write lên scheduledKeys index trong process
}

// NewOrchestrator tạo orchestrator. history có thể nil (không ghi history).
func NewOrchestrator(
	c cache.DurableCache,
	adapters *registry.Registry[platform.Adapter],
	coordinator ApprovalCoordinator,
	store EntityStore,
	history OutcomeRecorder,
) *Orchestrator {
	return &Orchestrator{
		cache:       c,
		adapters:    adapters,
		coordinator: coordinator,
		store:       store,
		history:     history,
		scheduler:   NewScheduler(),
		retry:       defaultRetryPolicy(),
		nowFn:       time.Now,
		waitStep:    processingWaitStep,
		waitMax:     processingWaitMax,
	}
}

// Stop dừng timer service. Scheduling state vẫn nằm trong cache.
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()
}

// SubmitContent submit một content piece để publish (ngay hoặc theo lịch).
//
// Short-circuit nếu piece đã PUBLISHED trong store (không side effect).
// Validation fail trả về success=false kèm lỗi, không làm gì thêm.
// scheduledTime trong tương lai → schedule và trả về ngay (chưa publish).
// Approval bị skip hoặc không khả dụng → synthesize request auto-approved
// và publish inline.
func (o *Orchestrator) SubmitContent(ctx context.Context, piece contentmodels.ContentPiece, opts DeliveryOptions) DeliveryResult {
	log := logger.GetAppLogger()
	merged := mergeDefaults(opts)

	// Guard: không bao giờ publish lại piece đã PUBLISHED
	published, err := o.store.IsPublished(ctx, piece.ID)
	if err != nil {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi đọc entity store: %v", err)}
	}
	if published {
		log.WithField("pieceId", piece.ID).Warn("📦 [DELIVERY] Piece đã PUBLISHED, từ chối submit")
		return DeliveryResult{Success: false, Error: "content đã được publish trước đó"}
	}

	adapter, ok := o.adapters.Get(piece.Platform)
	if !ok {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("platform adapter không tồn tại: %s", piece.Platform)}
	}

	// Format → validate
	formatted, err := adapter.FormatContent(ctx, &piece)
	if err != nil {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi format content: %v", err)}
	}
	piece.FormattedContent = formatted

	if merged.ValidateBeforePublish {
		validation, err := adapter.ValidateContent(ctx, formatted)
		if err != nil {
			return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi validate content: %v", err)}
		}
		if !validation.Valid {
			log.WithFields(map[string]interface{}{
				"pieceId": piece.ID,
				"errors":  validation.Errors,
			}).Warn("📦 [DELIVERY] Content không đạt validation rules")
			return DeliveryResult{Success: false, Error: "content không đạt validation rules", ValidationErrors: validation.Errors}
		}
	}

	// Scheduled cho tương lai: persist entry + timers, trả về ngay
	if merged.ScheduledTime > o.nowFn().UnixMilli() {
		if err := o.scheduleContentDelivery(ctx, piece, opts, merged); err != nil {
			return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi schedule delivery: %v", err)}
		}
		return DeliveryResult{
			Success:   true,
			Scheduled: true,
			Message:   fmt.Sprintf("đã schedule delivery tại %s", time.UnixMilli(merged.ScheduledTime).Format(time.RFC3339)),
		}
	}

	// Approval bị skip: synthesize request auto-approved, publish inline
	if merged.SkipApproval {
		request := approval.ApprovalRequest{
			ID:          approval.RequestID(piece.ID),
			ContentType: approval.ContentTypePiece,
			Content:     &piece,
			Status:      approval.StatusApproved,
			Timestamp:   o.nowFn().UnixMilli(),
			RequesterID: merged.RequesterID,
		}
		return o.publishApproved(ctx, request, merged)
	}

	// Approval required
	request := approval.ApprovalRequest{
		ContentType: approval.ContentTypePiece,
		Content:     &piece,
		RequesterID: merged.RequesterID,
		Continuation: &approval.ContinuationRef{
			Kind:    approval.ContinuationPublish,
			PieceID: piece.ID,
		},
	}
	sent, err := o.coordinator.SendForApproval(ctx, request)
	if err != nil {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi gửi approval: %v", err)}
	}

	switch sent.Status {
	case approval.StatusApproved:
		// Auto-approve hoặc approve ngay: publish inline.
		// publishApproved idempotent nên continuation đã publish cũng không publish lần hai.
		return o.publishApproved(ctx, sent, merged)
	case approval.StatusFailed:
		// Approval không khả dụng: synthesize auto-approved và publish inline
		log.WithField("pieceId", piece.ID).Warn("📦 [DELIVERY] Approval không khả dụng, auto-approve và publish")
		sent.Status = approval.StatusApproved
		sent.Content = &piece
		return o.publishApproved(ctx, sent, merged)
	default:
		return DeliveryResult{
			Success:         true,
			PendingApproval: true,
			Message:         fmt.Sprintf("đang chờ approval, request id: %s", sent.ID),
		}
	}
}

// PublishContent publish content từ một approval request đã APPROVED.
// Request chưa APPROVED bị từ chối (fatal, không retry).
func (o *Orchestrator) PublishContent(ctx context.Context, request approval.ApprovalRequest) DeliveryResult {
	return o.publishApproved(ctx, request, mergeDefaults(DeliveryOptions{}))
}

// publishApproved là bước publish chung: kiểm tra APPROVED, gọi adapter dưới
// retry policy, mark PUBLISHED và persist lại entity store.
// Idempotent: piece đã PUBLISHED trong store trả về kết quả cũ, không gọi adapter.
func (o *Orchestrator) publishApproved(ctx context.Context, request approval.ApprovalRequest, merged mergedOptions) DeliveryResult {
	log := logger.GetAppLogger()

	if request.Status != approval.StatusApproved {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("approval request chưa APPROVED (status: %s)", request.Status)}
	}
	if request.Content == nil {
		return DeliveryResult{Success: false, Error: "approval request không chứa content piece"}
	}
	piece := *request.Content

	// Idempotent re-entry: đã publish rồi thì trả về kết quả đã lưu
	stored, err := o.store.FindByPieceID(ctx, piece.ID)
	if err == nil && stored.Status == contentmodels.ContentStatusPublished {
		return DeliveryResult{
			Success:      true,
			Message:      "content đã được publish",
			PlatformID:   stored.PlatformID,
			PublishedURL: stored.PublishedURL,
		}
	}

	adapter, ok := o.adapters.Get(piece.Platform)
	if !ok {
		return DeliveryResult{Success: false, Error: fmt.Sprintf("platform adapter không tồn tại: %s", piece.Platform)}
	}

	content := piece.FormattedContent
	if content == "" {
		content, err = adapter.FormatContent(ctx, &piece)
		if err != nil {
			return DeliveryResult{Success: false, Error: fmt.Sprintf("lỗi format content: %v", err)}
		}
		piece.FormattedContent = content
	}

	maxAttempts := merged.MaxRetries
	if !merged.Retry {
		maxAttempts = 1
	}

	var publishResult platform.PublishResult
	attempts, err := o.retry.withRetry(ctx, maxAttempts, func() error {
		result, publishErr := adapter.PublishContent(ctx, content, &piece)
		if publishErr != nil {
			return publishErr
		}
		if !result.Success {
			return fmt.Errorf("publish thất bại: %s", result.Error)
		}
		publishResult = result
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"pieceId":  piece.ID,
			"attempts": attempts,
		}).Error("📦 [DELIVERY] Publish thất bại sau khi hết retry")
		o.recordOutcome(ctx, piece.ID, piece.Platform, OutcomeFailed, err.Error(), attempts, "")
		return DeliveryResult{Success: false, Error: err.Error(), Attempts: attempts}
	}

	// Publish thành công: mark PUBLISHED và persist piece
	piece.Status = contentmodels.ContentStatusPublished
	piece.PlatformID = publishResult.PlatformID
	piece.PublishedURL = publishResult.PublishedURL
	if _, err := o.store.SavePiece(ctx, piece); err != nil {
		log.WithError(err).WithField("pieceId", piece.ID).Error("📦 [DELIVERY] Lỗi persist piece sau publish")
	}

	log.WithFields(map[string]interface{}{
		"pieceId":      piece.ID,
		"platformId":   publishResult.PlatformID,
		"publishedUrl": publishResult.PublishedURL,
		"attempts":     attempts,
	}).Info("📦 [DELIVERY] Publish thành công")

	o.recordOutcome(ctx, piece.ID, piece.Platform, OutcomePublished, "", attempts, publishResult.PublishedURL)
	return DeliveryResult{
		Success:      true,
		PlatformID:   publishResult.PlatformID,
		PublishedURL: publishResult.PublishedURL,
		Attempts:     attempts,
	}
}

// HandleContinuation là continuation handler đăng ký với Approval Coordinator.
// Tagged variant: "publish" resume vào bước publish, "recordApprovalOnly" ghi
// kết quả approval vào scheduled entry.
func (o *Orchestrator) HandleContinuation(ctx context.Context, request approval.ApprovalRequest) error {
	log := logger.GetAppLogger()
	if request.Continuation == nil {
		return nil
	}

	switch request.Continuation.Kind {
	case approval.ContinuationPublish:
		switch request.Status {
		case approval.StatusApproved:
			result := o.publishApproved(ctx, request, mergeDefaults(DeliveryOptions{}))
			if !result.Success {
				log.WithFields(map[string]interface{}{
					"pieceId": request.Continuation.PieceID,
					"error":   result.Error,
				}).Error("📦 [DELIVERY] Publish sau approval thất bại")
			}
		case approval.StatusRejected, approval.StatusFailed:
			// Rejection là terminal outcome bình thường, không phải lỗi
			log.WithFields(map[string]interface{}{
				"pieceId": request.Continuation.PieceID,
				"status":  request.Status,
			}).Info("📦 [DELIVERY] Approval không thành, bỏ piece")
			platformName := ""
			if request.Content != nil {
				platformName = request.Content.Platform
			}
			o.recordOutcome(ctx, request.Continuation.PieceID, platformName, OutcomeDropped,
				fmt.Sprintf("approval %s: %s", request.Status, request.ReviewerComments), 0, "")
		}
		return nil

	case approval.ContinuationRecordOnly:
		return o.recordApprovalIntoEntry(ctx, request)

	default:
		log.WithField("kind", request.Continuation.Kind).Warn("📦 [DELIVERY] Continuation kind không xác định")
		return nil
	}
}

// recordApprovalIntoEntry ghi kết quả approval vào ScheduledDeliveryEntry.
// Read-modify-write nguyên entry; entry đã biến mất thì bỏ qua.
func (o *Orchestrator) recordApprovalIntoEntry(ctx context.Context, request approval.ApprovalRequest) error {
	log := logger.GetAppLogger()
	key := request.Continuation.CacheKey

	var entry ScheduledDeliveryEntry
	found, err := o.cache.Get(ctx, key, &entry)
	if err != nil {
		return err
	}
	if !found {
		log.WithField("cacheKey", key).Debug("📦 [DELIVERY] Entry không còn, bỏ qua ghi approval")
		return nil
	}

	entry.ApprovalStatus = request.Status
	entry.ApprovalID = request.ID
	if request.Status == approval.StatusApproved && request.Content != nil {
		entry.ApprovedContent = request.Content.FormattedContent
	}
	entry.IsProcessing = false
	entry.LastProcessed = o.nowFn().UnixMilli()

	return o.cache.Set(ctx, key, entry, entry.ScheduledTime+scheduledGraceWindow.Milliseconds())
}

// scheduleContentDelivery persist entry và đăng ký approval-prefetch timer
// (tại scheduledTime - approvalOffset) cùng delivery timer (tại scheduledTime).
func (o *Orchestrator) scheduleContentDelivery(ctx context.Context, piece contentmodels.ContentPiece, rawOpts DeliveryOptions, merged mergedOptions) error {
	log := logger.GetAppLogger()

	entry := ScheduledDeliveryEntry{
		Piece:         piece,
		Options:       rawOpts,
		ScheduledTime: merged.ScheduledTime,
		CreatedAt:     o.nowFn().UnixMilli(),
	}
	entryID := entry.EntryID()
	key := ScheduledCacheKey(entryID)

	if err := o.cache.Set(ctx, key, entry, merged.ScheduledTime+scheduledGraceWindow.Milliseconds()); err != nil {
		return err
	}
	if err := o.addToIndex(ctx, key); err != nil {
		return err
	}

	o.registerTimers(entry, merged)

	log.WithFields(map[string]interface{}{
		"pieceId":       piece.ID,
		"entryId":       entryID,
		"scheduledTime": time.UnixMilli(merged.ScheduledTime).Format(time.RFC3339),
	}).Info("📦 [DELIVERY] Đã schedule delivery")
	return nil
}

// registerTimers đăng ký cặp timer cho một entry. Timer id: "<entryID>" cho
// delivery, "<entryID>-approval" cho approval prefetch.
func (o *Orchestrator) registerTimers(entry ScheduledDeliveryEntry, merged mergedOptions) {
	entryID := entry.EntryID()

	if merged.ApprovalOffset > 0 && !merged.SkipApproval && entry.ApprovalStatus == "" {
		approvalAt := merged.ScheduledTime - merged.ApprovalOffset.Milliseconds()
		o.scheduler.Schedule(entryID+"-approval", approvalAt, func() {
			o.runApprovalPrefetch(context.Background(), entryID)
		})
	}

	o.scheduler.Schedule(entryID, merged.ScheduledTime, func() {
		o.runScheduledDelivery(context.Background(), entryID)
	})
}

// runApprovalPrefetch chạy approval round-trip sớm cho entry đã schedule.
// Kết quả (hoặc trạng thái pending) ghi lại vào entry để delivery timer dùng.
func (o *Orchestrator) runApprovalPrefetch(ctx context.Context, entryID string) {
	log := logger.GetAppLogger()
	key := ScheduledCacheKey(entryID)

	var entry ScheduledDeliveryEntry
	found, err := o.cache.Get(ctx, key, &entry)
	if err != nil || !found {
		return
	}
	if entry.ApprovalStatus != "" {
		return // Đã có kết quả approval
	}

	// Đánh dấu mid-flight để delivery timer biết phải chờ
	entry.IsProcessing = true
	entry.LastProcessed = o.nowFn().UnixMilli()
	expiry := entry.ScheduledTime + scheduledGraceWindow.Milliseconds()
	if err := o.cache.Set(ctx, key, entry, expiry); err != nil {
		log.WithError(err).WithField("entryId", entryID).Error("📦 [DELIVERY] Lỗi set isProcessing")
		return
	}

	piece := entry.Piece
	request := approval.ApprovalRequest{
		ContentType: approval.ContentTypePiece,
		Content:     &piece,
		RequesterID: entry.Options.RequesterID,
		Continuation: &approval.ContinuationRef{
			Kind:     approval.ContinuationRecordOnly,
			PieceID:  piece.ID,
			CacheKey: key,
		},
	}
	sent, err := o.coordinator.SendForApproval(ctx, request)
	if err != nil {
		log.WithError(err).WithField("entryId", entryID).Error("📦 [DELIVERY] Approval prefetch thất bại")
	}

	// Ghi lại trạng thái hiện tại (PENDING chờ sweep, hoặc terminal ngay nếu
	// auto-approve/FAILED). Continuation recordApprovalOnly có thể ghi trùng,
	// benign vì mỗi write bundle nguyên entry.
	found, readErr := o.cache.Get(ctx, key, &entry)
	if readErr != nil || !found {
		return
	}
	if sent.Status != "" && sent.Status != approval.StatusPending {
		entry.ApprovalStatus = sent.Status
		entry.ApprovalID = sent.ID
		if sent.Status == approval.StatusApproved && sent.Content != nil {
			entry.ApprovedContent = sent.Content.FormattedContent
		}
	} else if sent.ID != "" {
		entry.ApprovalID = sent.ID
	}
	entry.IsProcessing = false
	entry.LastProcessed = o.nowFn().UnixMilli()
	if err := o.cache.Set(ctx, key, entry, expiry); err != nil {
		log.WithError(err).WithField("entryId", entryID).Error("📦 [DELIVERY] Lỗi ghi kết quả prefetch")
	}
}

// runScheduledDelivery là delivery timer callback: re-read entry và quyết định
// publish trực tiếp (pre-approved), bỏ (pre-rejected), hay fall through về
// đường submitContent thường.
func (o *Orchestrator) runScheduledDelivery(ctx context.Context, entryID string) {
	log := logger.GetAppLogger()
	key := ScheduledCacheKey(entryID)

	var entry ScheduledDeliveryEntry
	found, err := o.cache.Get(ctx, key, &entry)
	if err != nil {
		log.WithError(err).WithField("entryId", entryID).Error("📦 [DELIVERY] Lỗi đọc entry khi timer fire")
		return
	}
	if !found {
		log.WithField("entryId", entryID).Debug("📦 [DELIVERY] Entry không còn khi timer fire")
		return
	}

	// Approval round-trip đang mid-flight: chờ bounded poll
	if entry.IsProcessing {
		entry = o.waitForProcessing(ctx, key, entry)
	}

	switch entry.ApprovalStatus {
	case approval.StatusApproved:
		// Pre-approved: publish trực tiếp bằng content đã duyệt
		piece := entry.Piece
		if entry.ApprovedContent != "" {
			piece.FormattedContent = entry.ApprovedContent
		}
		request := approval.ApprovalRequest{
			ID:          entry.ApprovalID,
			ContentType: approval.ContentTypePiece,
			Content:     &piece,
			Status:      approval.StatusApproved,
			Timestamp:   o.nowFn().UnixMilli(),
		}
		result := o.publishApproved(ctx, request, mergeDefaults(entry.Options))
		if !result.Success {
			log.WithFields(map[string]interface{}{
				"entryId": entryID,
				"error":   result.Error,
			}).Error("📦 [DELIVERY] Publish entry pre-approved thất bại")
		}
		o.removeEntry(ctx, key)

	case approval.StatusRejected, approval.StatusFailed:
		// Pre-rejected: bỏ piece, không publish
		log.WithFields(map[string]interface{}{
			"entryId": entryID,
			"status":  entry.ApprovalStatus,
		}).Info("📦 [DELIVERY] Entry bị reject trước giờ publish, bỏ piece")
		o.recordOutcome(ctx, entry.Piece.ID, entry.Piece.Platform, OutcomeDropped,
			fmt.Sprintf("pre-%s trước giờ publish", entry.ApprovalStatus), 0, "")
		o.removeEntry(ctx, key)

	default:
		// Pending/absent: fall through về đường submit thường, scheduledTime cleared
		o.removeEntry(ctx, key)
		opts := entry.Options
		opts.ScheduledTime = 0
		result := o.SubmitContent(ctx, entry.Piece, opts)
		if !result.Success {
			log.WithFields(map[string]interface{}{
				"entryId": entryID,
				"error":   result.Error,
			}).Warn("📦 [DELIVERY] Submit lại entry đã tới hạn không thành công")
		}
	}
}

// waitForProcessing poll entry tới khi isProcessing clear, tối đa waitMax.
func (o *Orchestrator) waitForProcessing(ctx context.Context, key string, entry ScheduledDeliveryEntry) ScheduledDeliveryEntry {
	deadline := o.nowFn().Add(o.waitMax)
	for entry.IsProcessing && o.nowFn().Before(deadline) {
		time.Sleep(o.waitStep)
		found, err := o.cache.Get(ctx, key, &entry)
		if err != nil || !found {
			return entry
		}
	}
	return entry
}

// LoadScheduledDeliveries đọc mọi scheduled key từ cache và recreate timers.
// Entry đã quá hạn được execute ngay. Gọi lúc startup và định kỳ làm safety net.
func (o *Orchestrator) LoadScheduledDeliveries(ctx context.Context) error {
	log := logger.GetAppLogger()

	keys, err := o.readIndex(ctx)
	if err != nil {
		return err
	}

	now := o.nowFn().UnixMilli()
	restored, executed := 0, 0
	for _, key := range keys {
		var entry ScheduledDeliveryEntry
		found, err := o.cache.Get(ctx, key, &entry)
		if err != nil {
			log.WithError(err).WithField("cacheKey", key).Warn("📦 [DELIVERY] Lỗi đọc entry, bỏ qua key")
			continue
		}
		if !found {
			// Orphan key trong index
			o.removeFromIndex(ctx, key)
			continue
		}

		merged := mergeDefaults(entry.Options)
		merged.ScheduledTime = entry.ScheduledTime

		if entry.ScheduledTime > now {
			o.registerTimers(entry, merged)
			restored++
		} else {
			entryID := entry.EntryID()
			// fireAt=0: đã quá hạn, execute ngay ở vòng loop kế tiếp
			o.scheduler.Schedule(entryID, 0, func() {
				o.runScheduledDelivery(context.Background(), entryID)
			})
			executed++
		}
	}

	log.WithFields(map[string]interface{}{
		"restored": restored,
		"executed": executed,
	}).Info("📦 [DELIVERY] Đã load scheduled deliveries từ cache")
	return nil
}

// CancelScheduledDelivery hủy cả approval-prefetch timer lẫn delivery timer
// rồi xóa cache entry. Idempotent.
func (o *Orchestrator) CancelScheduledDelivery(ctx context.Context, entryID string) error {
	log := logger.GetAppLogger()

	// Hủy timer trước khi xóa entry để timer không kịp fire và revive delivery
	o.scheduler.Cancel(entryID + "-approval")
	o.scheduler.Cancel(entryID)

	key := ScheduledCacheKey(entryID)
	var entry ScheduledDeliveryEntry
	found, err := o.cache.Get(ctx, key, &entry)
	if err != nil {
		return err
	}
	if found {
		o.recordOutcome(ctx, entry.Piece.ID, entry.Piece.Platform, OutcomeCancelled, "hủy bởi caller", 0, "")
	}
	o.removeEntry(ctx, key)

	log.WithField("entryId", entryID).Info("📦 [DELIVERY] Đã hủy scheduled delivery")
	return nil
}

// ListScheduled trả về mọi entry đang schedule (cho API liệt kê).
func (o *Orchestrator) ListScheduled(ctx context.Context) ([]ScheduledDeliveryEntry, error) {
	keys, err := o.readIndex(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ScheduledDeliveryEntry, 0, len(keys))
	for _, key := range keys {
		var entry ScheduledDeliveryEntry
		found, err := o.cache.Get(ctx, key, &entry)
		if err != nil || !found {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RunMaintenance chạy một chu kỳ maintenance sweep: dọn entry quá hạn grace
// window và reset isProcessing bị kẹt. Lỗi cache trên từng key chỉ log rồi
// tiếp tục key kế. Lock cache-level để các sweep chồng lấn không chạy đôi.
func (o *Orchestrator) RunMaintenance(ctx context.Context) {
	log := logger.GetAppLogger()

	acquired, err := cache.AcquireLock(ctx, o.cache, maintenanceLockKey, "maintenance", 5*time.Minute)
	if err != nil {
		log.WithError(err).Warn("📦 [DELIVERY] Lỗi lấy maintenance lock")
		return
	}
	if !acquired {
		return
	}
	defer cache.ReleaseLock(ctx, o.cache, maintenanceLockKey)

	keys, err := o.readIndex(ctx)
	if err != nil {
		log.WithError(err).Warn("📦 [DELIVERY] Lỗi đọc index trong maintenance")
		return
	}

	now := o.nowFn().UnixMilli()
	for _, key := range keys {
		var entry ScheduledDeliveryEntry
		found, err := o.cache.Get(ctx, key, &entry)
		if err != nil {
			log.WithError(err).WithField("cacheKey", key).Warn("📦 [DELIVERY] Lỗi đọc entry trong maintenance")
			continue
		}
		if !found {
			// Orphan: key trong index nhưng entry đã biến mất
			log.WithField("cacheKey", key).Debug("📦 [DELIVERY] Dọn orphan key khỏi index")
			o.removeFromIndex(ctx, key)
			continue
		}

		// Entry quá grace window: dọn dù timer có fire hay không
		if entry.ScheduledTime+scheduledGraceWindow.Milliseconds() < now {
			log.WithField("cacheKey", key).Info("📦 [DELIVERY] Dọn entry quá hạn grace window")
			o.recordOutcome(ctx, entry.Piece.ID, entry.Piece.Platform, OutcomeExpired, "quá hạn grace window", 0, "")
			o.scheduler.Cancel(entry.EntryID() + "-approval")
			o.scheduler.Cancel(entry.EntryID())
			o.removeEntry(ctx, key)
			continue
		}

		// isProcessing kẹt quá 30 phút: reset để delivery timer không chờ vô ích
		if entry.IsProcessing && entry.LastProcessed > 0 && now-entry.LastProcessed > stuckProcessingAge.Milliseconds() {
			log.WithField("cacheKey", key).Warn("📦 [DELIVERY] Reset isProcessing bị kẹt")
			entry.IsProcessing = false
			if err := o.cache.Set(ctx, key, entry, entry.ScheduledTime+scheduledGraceWindow.Milliseconds()); err != nil {
				log.WithError(err).WithField("cacheKey", key).Warn("📦 [DELIVERY] Lỗi reset isProcessing")
			}
		}
	}
}

// recordOutcome ghi terminal outcome vào history (best-effort, nil recorder hợp lệ).
func (o *Orchestrator) recordOutcome(ctx context.Context, pieceID, platformName, outcome, message string, attempts int, publishedURL string) {
	if o.history == nil {
		return
	}
	if err := o.history.RecordOutcome(ctx, pieceID, platformName, outcome, message, attempts, publishedURL); err != nil {
		logger.GetAppLogger().WithError(err).WithField("pieceId", pieceID).Warn("📦 [DELIVERY] Lỗi ghi delivery history")
	}
}

// removeEntry xóa entry khỏi cache và index.
func (o *Orchestrator) removeEntry(ctx context.Context, key string) {
	log := logger.GetAppLogger()
	if err := o.cache.Delete(ctx, key); err != nil {
		log.WithError(err).WithField("cacheKey", key).Warn("📦 [DELIVERY] Lỗi xóa entry")
	}
	o.removeFromIndex(ctx, key)
}

// readIndex đọc danh sách scheduled keys (cache không scan được theo prefix).
func (o *Orchestrator) readIndex(ctx context.Context) ([]string, error) {
	var keys []string
	_, err := o.cache.Get(ctx, ScheduledKeysIndexKey, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (o *Orchestrator) addToIndex(ctx context.Context, key string) error {
	o.indexMu.Lock()
	defer o.indexMu.Unlock()

	keys, err := o.readIndex(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	keys = append(keys, key)
	return o.cache.Set(ctx, ScheduledKeysIndexKey, keys, 0)
}

func (o *Orchestrator) removeFromIndex(ctx context.Context, key string) {
	o.indexMu.Lock()
	defer o.indexMu.Unlock()

	keys, err := o.readIndex(ctx)
	if err != nil {
		return
	}
	filtered := keys[:0]
	for _, k := range keys {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) != len(keys) {
		if err := o.cache.Set(ctx, ScheduledKeysIndexKey, filtered, 0); err != nil {
			logger.GetAppLogger().WithError(err).Warn("📦 [DELIVERY] Lỗi cập nhật scheduledKeys index")
		}
	}
}
