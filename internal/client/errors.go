package client

import (
	"errors"
	"fmt"
)

var ErrInvalidResponse = errors.New("invalid response from backend")

// APIError 后端返回非 2xx 状态码
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}
