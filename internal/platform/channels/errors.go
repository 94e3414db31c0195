package channels

import (
	"fmt"
	"net/http"
	"strings"
)

// apiError chuyển HTTP status code từ platform API thành error với message
// phân loại được. Retry policy của orchestrator phân loại fatal/retryable
// theo các cụm từ trong message, nên các nhánh dưới đây phải giữ nguyên wording.
func apiError(platformName string, statusCode int, body string) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return fmt.Errorf("authentication failure: %s API returned 401: %s", platformName, body)
	case statusCode == http.StatusForbidden:
		if strings.Contains(strings.ToLower(body), "suspended") {
			return fmt.Errorf("account suspended: %s API returned 403: %s", platformName, body)
		}
		return fmt.Errorf("insufficient permissions: %s API returned 403: %s", platformName, body)
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("invalid content format: %s API returned %d: %s", platformName, statusCode, body)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: %s API returned 429: %s", platformName, body)
	default:
		return fmt.Errorf("%s API returned status %d: %s", platformName, statusCode, body)
	}
}
