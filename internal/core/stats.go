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
	"sync/atomic"
	"time"
)

// PipelineStats uses atomic counters so workers can update them without locks.
type PipelineStats struct {
	Submitted    atomic.Int64
	Succeeded    atomic.Int64
	Failed       atomic.Int64
	InFlight     atomic.Int64
	PeakInFlight atomic.Int64
	Panics       atomic.Int64
	BytesWritten atomic.Int64
	StartTime    time.Time
}

// StatsSnapshot is a point-in-time copy of PipelineStats.
type StatsSnapshot struct {
	Submitted    int64
	Succeeded    int64
	Failed       int64
	InFlight     int64
	PeakInFlight int64
	Panics       int64
	BytesWritten int64
	Elapsed      time.Duration
}

// Completed is the number of probes that finished, successfully or not.
func (s StatsSnapshot) Completed() int64 { return s.Succeeded + s.Failed }

// probeStarted bumps the in-flight gauge and tracks its peak.
func (s *PipelineStats) probeStarted() {
	n := s.InFlight.Add(1)
	for {
		peak := s.PeakInFlight.Load()
		if n <= peak || s.PeakInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (s *PipelineStats) probeFinished(ok bool) {
	s.InFlight.Add(-1)
	if ok {
		s.Succeeded.Add(1)
	} else {
		s.Failed.Add(1)
	}
}

// Snapshot copies the current counter values.
func (s *PipelineStats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Submitted:    s.Submitted.Load(),
		Succeeded:    s.Succeeded.Load(),
		Failed:       s.Failed.Load(),
		InFlight:     s.InFlight.Load(),
		PeakInFlight: s.PeakInFlight.Load(),
		Panics:       s.Panics.Load(),
		BytesWritten: s.BytesWritten.Load(),
	}
	if !s.StartTime.IsZero() {
		snap.Elapsed = time.Since(s.StartTime)
	}
	return snap
}
