package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient 创建带连接池的 HTTP 客户端。
// timeout 为 0 表示不限制整体超时，SSE 长连接必须用 0，
// 由调用方的 context 控制生命周期。
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
