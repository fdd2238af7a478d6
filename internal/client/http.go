package client

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package client builds the HTTP clients SubHound talks to the network with.

Discovery goes through a shared client that is configured once (InitHTTPClient)
and fetched wherever needed (GetHTTPClient). Probing uses a dedicated client from
NewProbeClient that never follows redirects, so a 301 is reported as a 301.
*/

import (
	"net"
	"net/http"
	"sync"
	"time"
)

var (
	defaultDialTimeout      = 5 * time.Second
	defaultKeepAliveTimeout = 30 * time.Second
	defaultIdleConnTimeout  = 90 * time.Second
	defaultMaxIdleConns     = 100
	// defaultRequestTimeout covers the whole crt.sh round trip, body included.
	defaultRequestTimeout = 60 * time.Second
	defaultUserAgent      = "SubHound"

	// sharedClient is the discovery client. Lazily initialized by GetHTTPClient.
	sharedClient *http.Client
	// sharedClientLock protects sharedClient and clientInitialized.
	sharedClientLock  sync.RWMutex
	clientInitialized bool
)

// Config holds the transport settings of the shared discovery client.
// A zero-value field falls back to its default.
type Config struct {
	DialTimeout      time.Duration
	KeepAliveTimeout time.Duration
	IdleConnTimeout  time.Duration
	MaxIdleConns     int
	// RequestTimeout bounds the entire request, including reading the body.
	RequestTimeout time.Duration
	// UserAgent is set on every request that does not already carry one.
	UserAgent string
}

// DefaultConfig returns the discovery client settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:      defaultDialTimeout,
		KeepAliveTimeout: defaultKeepAliveTimeout,
		IdleConnTimeout:  defaultIdleConnTimeout,
		MaxIdleConns:     defaultMaxIdleConns,
		RequestTimeout:   defaultRequestTimeout,
		UserAgent:        defaultUserAgent,
	}
}

// userAgentTransport stamps a User-Agent header on outgoing requests.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// InitHTTPClient (re)builds the shared discovery client. A nil config means
// DefaultConfig. Safe for concurrent use.
func InitHTTPClient(config *Config) {
	sharedClientLock.Lock()
	defer sharedClientLock.Unlock()

	if config == nil {
		config = DefaultConfig()
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.KeepAliveTimeout == 0 {
		config.KeepAliveTimeout = defaultKeepAliveTimeout
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = defaultIdleConnTimeout
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = defaultMaxIdleConns
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	// Drop keep-alive connections held by the previous transport.
	if sharedClient != nil {
		if old, ok := sharedClient.Transport.(*userAgentTransport); ok {
			if tr, ok := old.base.(*http.Transport); ok {
				tr.CloseIdleConnections()
			}
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAliveTimeout,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	sharedClient = &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: config.UserAgent},
		Timeout:   config.RequestTimeout,
	}
	clientInitialized = true
}

// GetHTTPClient returns the shared discovery client, initializing it with
// defaults on first use. Safe for concurrent use.
func GetHTTPClient() *http.Client {
	sharedClientLock.RLock()
	if !clientInitialized {
		sharedClientLock.RUnlock()
		InitHTTPClient(nil)
		sharedClientLock.RLock()
	}
	c := sharedClient
	sharedClientLock.RUnlock()
	return c
}

// NewProbeClient returns a client for HEAD probes. Redirects are not followed
// and each request is bounded by timeout. poolSize sizes the idle connection
// pool; pass the worker count.
func NewProbeClient(timeout time.Duration, poolSize int) *http.Client {
	if poolSize < 1 {
		poolSize = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: defaultKeepAliveTimeout,
		}).DialContext,
		MaxIdleConns:          poolSize,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
