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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// candidatePattern matches an optional scheme, two or more dotted labels and
// an optional path. Only the first match in each text node is considered.
var candidatePattern = regexp.MustCompile(`(https?://)?([\w\-]+\.)+[\w\-]+(/\S*)?`)

// CandidateSet is an unordered set of hostname candidates found by discovery.
// It is owned by one goroutine at a time and is not safe for concurrent writes.
type CandidateSet struct {
	items map[string]struct{}
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{items: make(map[string]struct{})}
}

// Add inserts candidate and reports whether it was new.
func (s *CandidateSet) Add(candidate string) bool {
	if _, ok := s.items[candidate]; ok {
		return false
	}
	s.items[candidate] = struct{}{}
	return true
}

// Len returns the number of unique candidates.
func (s *CandidateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Contains reports whether candidate is in the set.
func (s *CandidateSet) Contains(candidate string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[candidate]
	return ok
}

// Items returns the candidates in no particular order.
func (s *CandidateSet) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.items))
	for c := range s.items {
		out = append(out, c)
	}
	return out
}

// Sorted returns the candidates in lexical order, for display and hashing.
func (s *CandidateSet) Sorted() []string {
	out := s.Items()
	sort.Strings(out)
	return out
}

// Fingerprint is an xxh3 hash over the sorted candidates. Two runs that found
// the same hosts share a fingerprint.
func (s *CandidateSet) Fingerprint() string {
	sorted := s.Sorted()
	estimatedLen := 0
	for _, c := range sorted {
		estimatedLen += len(c) + 1
	}
	var sb strings.Builder
	sb.Grow(estimatedLen)
	for i, c := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c)
	}
	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}

// MatchesDomain reports whether candidate ends in "."+domain or "."+domain+".".
// The apex itself does not match. The comparison is case-sensitive.
func MatchesDomain(candidate, domain string) bool {
	suffix := "." + domain
	return strings.HasSuffix(candidate, suffix) || strings.HasSuffix(candidate, suffix+".")
}

// candidateFromText returns the first pattern match in text when it belongs to domain.
func candidateFromText(text, domain string) (string, bool) {
	match := candidatePattern.FindString(text)
	if match == "" || !MatchesDomain(match, domain) {
		return "", false
	}
	return match, true
}
