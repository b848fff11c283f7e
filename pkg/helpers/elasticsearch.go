package helpers

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

const esTimeout = 5 * time.Second

// NewESClient builds the client shared by the search endpoint and the user
// events worker. Basic auth is used when username is set. Gateway errors are
// retried because a rolling cluster restart surfaces them briefly.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses:     addrs,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		MaxRetries:    2,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: esTimeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: esTimeout}).DialContext,
		},
	}
	if username != "" {
		cfg.Username = username
		cfg.Password = password
	}
	return elasticsearch.NewClient(cfg)
}
