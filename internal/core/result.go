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

import "strconv"

// ProbeResult is the outcome of one successful probe.
type ProbeResult struct {
	StatusCode int
	// URL is the normalized target that was requested.
	URL string
}

// String renders the result as an output record: "[<status>] - <url>".
func (r ProbeResult) String() string {
	b := make([]byte, 0, len(r.URL)+10)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(r.StatusCode), 10)
	b = append(b, "] - "...)
	b = append(b, r.URL...)
	return string(b)
}

// ResultSink receives output records, one per successful probe.
// The pipeline calls it from a single goroutine.
type ResultSink interface {
	WriteLine(line string) error
}
