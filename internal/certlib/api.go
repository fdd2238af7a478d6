package certlib

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
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/mxngel/SubHound/internal/client"
	"github.com/mxngel/SubHound/internal/metrics"
)

// DefaultEndpoint is the crt.sh search page. %s receives the query-escaped domain.
const DefaultEndpoint = "https://crt.sh/?q=%s"

// ErrQueryFailed wraps every discovery failure: network errors, non-2xx
// responses and unreadable bodies.
var ErrQueryFailed = errors.New("certificate search query failed")

// QueryURL builds the search URL for domain from an endpoint template.
func QueryURL(endpoint, domain string) string {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	// Only the placeholder is substituted; other percent-escapes pass through.
	return strings.Replace(endpoint, "%s", url.QueryEscape(domain), 1)
}

// Discover performs a single GET against the search endpoint for domain and
// returns the hostname candidates found in the page. A nil httpClient means
// the shared client. An empty set is not an error.
// Operation: network bound, one request, never retried.
func Discover(ctx context.Context, httpClient *http.Client, endpoint, domain string) (*CandidateSet, error) {
	if httpClient == nil {
		httpClient = client.GetHTTPClient()
	}
	m := metrics.GetMetrics()
	defer metrics.MeasureDuration(m.DiscoveryDuration)()

	queryURL := QueryURL(endpoint, domain)
	log.Printf("Querying %s", queryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		m.RecordDiscovery("request_error", 0)
		return nil, fmt.Errorf("%w: building request for %s: %w", ErrQueryFailed, queryURL, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		m.RecordDiscovery("network_error", 0)
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.RecordDiscovery("http_error", 0)
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrQueryFailed, queryURL, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		m.RecordDiscovery("decode_error", 0)
		return nil, fmt.Errorf("%w: decoding response from %s: %w", ErrQueryFailed, queryURL, err)
	}

	set, err := ExtractCandidates(body, domain)
	if err != nil {
		m.RecordDiscovery("parse_error", 0)
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	m.RecordDiscovery("ok", set.Len())
	log.Printf("Discovery for %s found %d candidates (fingerprint %s)", domain, set.Len(), set.Fingerprint())
	return set, nil
}

// ExtractCandidates parses an HTML document and collects, from every text
// node, the first hostname-looking match that belongs to domain.
// r must already be UTF-8.
func ExtractCandidates(r io.Reader, domain string) (*CandidateSet, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	set := NewCandidateSet()
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type != html.TextNode && node.Type != html.CommentNode {
			return
		}
		if strings.TrimSpace(node.Data) == "" {
			return
		}
		if candidate, ok := candidateFromText(node.Data, domain); ok {
			set.Add(candidate)
		}
	})
	return set, nil
}
