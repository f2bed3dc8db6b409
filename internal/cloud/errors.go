package cloud

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSkuMissing is returned by the modern api when a device has not been listed yet,
// control requests can't be addressed without its sku
var ErrSkuMissing = errors.New("cloud: device sku missing, refresh devices first")

// APIError is returned once a request has failed permanently or run out of retries
type APIError struct {
	// http status, 0 when the request never got a response
	Status int
	// application level code from the response body, 0 when absent
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("govee api error (status %d): %s", e.Status, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("govee api error (code %d): %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("govee api error: %s", e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func shouldRetry(status int) bool {
	if status == 0 {
		return true
	}
	if status >= 500 {
		return true
	}
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

// IsRateLimited reports whether err was caused by the api's rate limiting
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests || apiErr.Code == http.StatusTooManyRequests {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate")
}

// IsNotSupported reports whether the api refused a request because the device lacks the feature
func IsNotSupported(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not support")
}

// IsDeviceNotExist reports whether the api no longer recognises the device
func IsDeviceNotExist(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "devices not exist")
}
