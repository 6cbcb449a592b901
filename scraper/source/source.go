// Package source holds the per-site listing adapters. Each adapter
// turns one listing page into a batch of download candidates and
// reports whether a further page exists.
package source

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
)

// newClient builds the shared HTTP client for listing requests.
func newClient(cfg config.HTTPConfig) *resty.Client {
	client := resty.New().
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		switch r.StatusCode() {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	})
	return client
}
