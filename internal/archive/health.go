package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// EndpointHealthCheck sends a HEAD request to a custom S3 endpoint. It only
// proves reachability: an auth error still means the endpoint answered.
func EndpointHealthCheck(ctx context.Context, endpoint string, timeout time.Duration) error {
	if endpoint == "" {
		return fmt.Errorf("s3 endpoint not configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return fmt.Errorf("s3 health request build failed: %w", err)
	}
	req.Close = true
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("s3 health request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("s3 endpoint reachable but returned auth error: %d", resp.StatusCode)
	default:
		return fmt.Errorf("s3 endpoint returned unexpected status: %d", resp.StatusCode)
	}
}
