package worker

import (
	"context"
	"time"

	"meta_publisher/internal/delivery"
	"meta_publisher/internal/logger"
)

// ScheduleReloadWorker reload scheduled deliveries từ cache định kỳ.
// Đây là safety net: timer in-memory có thể mất (panic, drift), nhưng cache
// là source of truth nên reload định kỳ đảm bảo không entry nào bị bỏ quên.
type ScheduleReloadWorker struct {
	orchestrator *delivery.Orchestrator
	interval     time.Duration
}

// NewScheduleReloadWorker tạo mới ScheduleReloadWorker
// Tham số:
//   - orchestrator: Delivery Orchestrator cần reload
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 15 phút)
func NewScheduleReloadWorker(orchestrator *delivery.Orchestrator, interval time.Duration) *ScheduleReloadWorker {
	if interval < time.Minute {
		interval = 15 * time.Minute
	}
	return &ScheduleReloadWorker{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

// Start bắt đầu background worker reload schedules
func (w *ScheduleReloadWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval.String()).Info("🔄 [SCHEDULE_RELOAD] Starting Schedule Reload Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [SCHEDULE_RELOAD] Schedule Reload Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("🔄 [SCHEDULE_RELOAD] Panic trong reload cycle")
					}
				}()
				if err := w.orchestrator.LoadScheduledDeliveries(ctx); err != nil {
					log.WithError(err).Warn("🔄 [SCHEDULE_RELOAD] Lỗi reload scheduled deliveries")
				}
			}()
		}
	}
}
