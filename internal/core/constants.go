/*
Package core is the probing stage of SubHound: a fixed pool of workers that
sends one HEAD request per candidate host, and a pipeline that collects the
results in completion order, echoes them and persists them.
*/
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
	"time"
)

const (
	// DefaultWorkers is the number of probes allowed in flight at once.
	DefaultWorkers = 10

	// MaxWorkers caps the pool regardless of configuration.
	MaxWorkers = 1024

	// DefaultProbeTimeout bounds a single probe, connect to response headers.
	DefaultProbeTimeout = 10 * time.Second

	// StatsReportInterval is the minimum gap between progress log lines.
	StatsReportInterval = 5 * time.Second

	// fileDescriptorHeadroom is reserved on top of one socket per worker
	// for the results file, logs and the metrics listener.
	fileDescriptorHeadroom = 64
)
