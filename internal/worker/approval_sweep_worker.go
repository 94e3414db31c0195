package worker

import (
	"context"
	"time"

	"meta_publisher/internal/approval"
	"meta_publisher/internal/logger"
)

// ApprovalSweepWorker chạy sweep định kỳ của Approval Coordinator:
// poll trạng thái mọi active request và auto-reject request quá hạn.
type ApprovalSweepWorker struct {
	coordinator *approval.Coordinator
	interval    time.Duration
}

// NewApprovalSweepWorker tạo mới ApprovalSweepWorker
// Tham số:
//   - coordinator: Approval Coordinator cần sweep
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 1 phút)
func NewApprovalSweepWorker(coordinator *approval.Coordinator, interval time.Duration) *ApprovalSweepWorker {
	if interval < 10*time.Second {
		interval = 1 * time.Minute
	}
	return &ApprovalSweepWorker{
		coordinator: coordinator,
		interval:    interval,
	}
}

// Start bắt đầu background worker sweep approval requests
func (w *ApprovalSweepWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval.String()).Info("🔄 [APPROVAL_SWEEP] Starting Approval Sweep Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [APPROVAL_SWEEP] Approval Sweep Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("🔄 [APPROVAL_SWEEP] Panic trong sweep cycle")
					}
				}()
				w.coordinator.SweepOnce(ctx)
			}()
		}
	}
}
