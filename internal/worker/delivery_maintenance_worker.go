package worker

import (
	"context"
	"time"

	"meta_publisher/internal/delivery"
	"meta_publisher/internal/logger"
)

// DeliveryMaintenanceWorker chạy maintenance sweep định kỳ của orchestrator:
// dọn scheduled entry quá hạn grace window và reset isProcessing bị kẹt.
type DeliveryMaintenanceWorker struct {
	orchestrator *delivery.Orchestrator
	interval     time.Duration
}

// NewDeliveryMaintenanceWorker tạo mới DeliveryMaintenanceWorker
// Tham số:
//   - orchestrator: Delivery Orchestrator cần maintain
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 5 phút)
func NewDeliveryMaintenanceWorker(orchestrator *delivery.Orchestrator, interval time.Duration) *DeliveryMaintenanceWorker {
	if interval < 30*time.Second {
		interval = 5 * time.Minute
	}
	return &DeliveryMaintenanceWorker{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

// Start bắt đầu background worker maintenance
func (w *DeliveryMaintenanceWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithField("interval", w.interval.String()).Info("🔄 [DELIVERY_MAINTENANCE] Starting Delivery Maintenance Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [DELIVERY_MAINTENANCE] Delivery Maintenance Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("🔄 [DELIVERY_MAINTENANCE] Panic trong maintenance cycle")
					}
				}()
				w.orchestrator.RunMaintenance(ctx)
			}()
		}
	}
}
