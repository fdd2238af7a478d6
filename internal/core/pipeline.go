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
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/mxngel/SubHound/internal/metrics"
)

// PipelineConfig configures one probing run. Zero values select defaults.
type PipelineConfig struct {
	// Workers is the maximum number of probes in flight. Default 10.
	Workers int
	// Timeout bounds each probe. Default 10s.
	Timeout time.Duration
	// Prober checks a target. Nil means an HTTPProber built from Timeout and Workers.
	Prober Prober
	// Echo receives each output record as it completes. Nil discards.
	Echo io.Writer
	// EchoFormat renders a record for Echo. Nil means ProbeResult.String.
	// The results file always gets the plain String form.
	EchoFormat func(ProbeResult) string
	// OnProbeDone is called after every probe, successful or not. It runs on
	// worker goroutines and must be safe for concurrent use.
	OnProbeDone func(result ProbeResult, ok bool)
}

// Pipeline fans probes out over a Scheduler and funnels the results through
// a single drainer that owns the sink and the echo writer.
type Pipeline struct {
	config PipelineConfig
	prober Prober
	stats  *PipelineStats
}

// NewPipeline validates cfg and fills in defaults.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if cfg.Echo == nil {
		cfg.Echo = io.Discard
	}
	if cfg.EchoFormat == nil {
		cfg.EchoFormat = ProbeResult.String
	}

	prober := cfg.Prober
	if prober == nil {
		prober = NewHTTPProber(cfg.Timeout, cfg.Workers)
	}

	return &Pipeline{
		config: cfg,
		prober: prober,
		stats:  &PipelineStats{},
	}, nil
}

// GetStats returns the live counters of the current or last run.
func (p *Pipeline) GetStats() *PipelineStats { return p.stats }

// Run probes every target and returns once each has completed or failed.
// Successful results are written to sink in completion order; failures are
// dropped. Cancelling ctx makes outstanding probes fail quickly, it does not
// skip them. The returned error is non-nil only for sink failures and wraps
// ErrOutput.
// Operation: blocking, network bound.
func (p *Pipeline) Run(ctx context.Context, targets []string, sink ResultSink) (StatsSnapshot, error) {
	p.stats = &PipelineStats{StartTime: time.Now()}
	if len(targets) == 0 {
		return p.stats.Snapshot(), nil
	}

	workers := p.config.Workers
	if workers > len(targets) {
		workers = len(targets)
	}
	if _, err := RaiseFileLimit(uint64(workers) + fileDescriptorHeadroom); err != nil {
		log.Printf("Warning: could not raise open file limit: %v", err)
	}

	// The backlog holds every target so submission never blocks or fails.
	scheduler, err := NewScheduler(ctx, workers, len(targets))
	if err != nil {
		return p.stats.Snapshot(), err
	}
	defer scheduler.Shutdown()
	scheduler.onPanic = func(item *WorkItem, _ any) {
		p.stats.Panics.Add(1)
	}

	results := make(chan ProbeResult, workers)
	drained := make(chan error, 1)
	go func() {
		drained <- p.drain(results, sink, len(targets))
	}()

	probe := func(item *WorkItem) {
		p.probeItem(item, results)
	}
	for _, target := range targets {
		if err := scheduler.SubmitWork(target, probe); err != nil {
			log.Printf("Failed to submit %s: %v", target, err)
			continue
		}
		p.stats.Submitted.Add(1)
	}

	scheduler.Close()
	scheduler.Wait()
	close(results)
	outErr := <-drained

	snap := p.stats.Snapshot()
	logFinalStats(snap)
	return snap, outErr
}

// probeItem runs on a worker. The deferred bookkeeping also runs when the
// prober panics, so the probe is counted as failed before the worker recovers.
func (p *Pipeline) probeItem(item *WorkItem, results chan<- ProbeResult) {
	m := metrics.GetMetrics()
	p.stats.probeStarted()
	m.RecordInFlight(1)

	var (
		result ProbeResult
		ok     bool
	)
	defer func() {
		p.stats.probeFinished(ok)
		m.RecordInFlight(-1)
		m.RecordProbe(result.StatusCode, ok)
		if ok {
			results <- result
		}
		if p.config.OnProbeDone != nil {
			p.config.OnProbeDone(result, ok)
		}
	}()

	result, ok = p.prober.Probe(item.Ctx, item.Target)
}

// drain is the only goroutine that touches sink and Echo. After the first
// sink error it keeps receiving so workers never block, but writes nothing.
func (p *Pipeline) drain(results <-chan ProbeResult, sink ResultSink, total int) error {
	progress := rate.Sometimes{First: 1, Interval: StatsReportInterval}
	var outErr error

	for result := range results {
		if outErr != nil {
			continue
		}
		if _, err := fmt.Fprintln(p.config.Echo, p.config.EchoFormat(result)); err != nil {
			log.Printf("Echo failed for %s: %v", result.URL, err)
		}
		line := result.String()
		if err := sink.WriteLine(line); err != nil {
			outErr = fmt.Errorf("%w: %w", ErrOutput, err)
			log.Printf("Results sink failed, discarding further results: %v", err)
			continue
		}
		p.stats.BytesWritten.Add(int64(len(line) + 1))

		progress.Do(func() {
			snap := p.stats.Snapshot()
			log.Printf("Progress: %d/%d probed | ok: %d | failed: %d | in flight: %d",
				snap.Completed(), total, snap.Succeeded, snap.Failed, snap.InFlight)
		})
	}
	return outErr
}

// logFinalStats writes the end-of-run summary to the diagnostic log.
func logFinalStats(snap StatsSnapshot) {
	perSec := 0.0
	if snap.Elapsed.Seconds() > 0 {
		perSec = float64(snap.Completed()) / snap.Elapsed.Seconds()
	}
	log.Printf("--- Final Probe Statistics ---")
	log.Printf("  Probing Time: %v", snap.Elapsed.Round(time.Millisecond))
	log.Printf("     Submitted: %d", snap.Submitted)
	log.Printf("     Succeeded: %d", snap.Succeeded)
	log.Printf("        Failed: %d (panics: %d)", snap.Failed, snap.Panics)
	log.Printf("Peak In Flight: %d", snap.PeakInFlight)
	log.Printf("  Overall Rate: %.1f probes/sec", perSec)
	log.Printf(" Output Written: %d bytes", snap.BytesWritten)
}
