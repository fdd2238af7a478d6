package core

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

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mxngel/SubHound/internal/client"
	"github.com/mxngel/SubHound/internal/metrics"
)

// Prober checks a single target. A false second value means the probe
// failed and produced nothing; no error crosses this boundary.
type Prober interface {
	Probe(ctx context.Context, target string) (ProbeResult, bool)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, target string) (ProbeResult, bool)

// Probe calls f(ctx, target).
func (f ProberFunc) Probe(ctx context.Context, target string) (ProbeResult, bool) {
	return f(ctx, target)
}

// NormalizeTarget prefixes "https://" to bare hosts. The check is a plain
// prefix test: anything starting with "https" counts as schemed (so does
// "httpsfoo"), and "http://" URLs are left as they are, not upgraded.
func NormalizeTarget(target string) string {
	if strings.HasPrefix(target, "https") || strings.HasPrefix(target, "http://") {
		return target
	}
	return "https://" + target
}

// HTTPProber sends one HEAD request per target and reports the status code.
// Redirects are not followed.
type HTTPProber struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPProber builds a prober with a dedicated no-redirect client whose
// connection pool is sized for workers concurrent probes.
func NewHTTPProber(timeout time.Duration, workers int) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{
		Client:  client.NewProbeClient(timeout, workers),
		Timeout: timeout,
	}
}

// Probe implements Prober.
// Operation: network bound, at most Timeout.
func (p *HTTPProber) Probe(ctx context.Context, target string) (ProbeResult, bool) {
	url := NormalizeTarget(target)

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer metrics.MeasureDuration(metrics.GetMetrics().ProbeDuration)()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		log.Printf("Probe %s: invalid request: %v", url, err)
		return ProbeResult{}, false
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		log.Printf("Probe %s failed: %v", url, err)
		return ProbeResult{}, false
	}
	// HEAD has no body, but draining lets the connection be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return ProbeResult{StatusCode: resp.StatusCode, URL: url}, true
}
