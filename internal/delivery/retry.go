package delivery

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"meta_publisher/internal/logger"
)

// Các cụm từ trong error message khiến retry loop abort ngay (fatal).
// Platform adapter chịu trách nhiệm giữ nguyên wording khi map lỗi API.
var fatalErrorPatterns = []string{
	"authentication failure",
	"insufficient permissions",
	"invalid content format",
	"account suspended",
	"rate limit exceeded",
}

// isFatalPublishError phân loại lỗi publish theo message.
func isFatalPublishError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryPolicy cấu hình backoff quanh publish call.
// Override interval trong test để không chờ wall-clock thật.
type retryPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
	}
}

// withRetry chạy op tối đa maxAttempts lần với exponential backoff (1s khởi điểm,
// cap 30s). Lỗi fatal abort ngay. Trả về số attempts đã thực hiện và lỗi cuối.
func (p retryPolicy) withRetry(ctx context.Context, maxAttempts int, op func() error) (int, error) {
	log := logger.GetAppLogger()
	attempts := 0

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.initialInterval
	expo.MaxInterval = p.maxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if err := op(); err != nil {
			if isFatalPublishError(err) {
				log.WithError(err).WithField("attempt", attempts).Warn("📦 [DELIVERY] Lỗi fatal, không retry")
				return struct{}{}, backoff.Permanent(err)
			}
			log.WithError(err).WithField("attempt", attempts).Warn("📦 [DELIVERY] Lỗi tạm thời, sẽ retry")
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(maxAttempts)))

	return attempts, err
}
