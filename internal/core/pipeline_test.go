package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mxngel/SubHound/internal/output"
)

// memorySink collects lines in memory. The pipeline writes from one goroutine.
type memorySink struct {
	lines []string
}

func (m *memorySink) WriteLine(line string) error {
	m.lines = append(m.lines, line)
	return nil
}

type failingSink struct {
	calls int
}

func (f *failingSink) WriteLine(string) error {
	f.calls++
	return errors.New("disk full")
}

func runToFile(t *testing.T, cfg PipelineConfig, targets []string) (string, StatsSnapshot) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "example.com.txt")
	sink, err := output.Create(path)
	if err != nil {
		t.Fatalf("output.Create: %v", err)
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	snap, runErr := p.Run(context.Background(), targets, sink)
	if err := sink.Close(); err != nil {
		t.Fatalf("sink.Close: %v", err)
	}
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data), snap
}

func TestPipelineSingleSuccess(t *testing.T) {
	t.Parallel()
	rt := newStubTransport(map[string]stubResponse{
		"a.example.com": {status: http.StatusOK},
	})
	var echo bytes.Buffer
	cfg := PipelineConfig{Prober: newStubProber(rt, time.Second), Echo: &echo}

	content, snap := runToFile(t, cfg, []string{"a.example.com"})

	want := "[200] - https://a.example.com\n"
	if content != want {
		t.Errorf("file = %q; want %q", content, want)
	}
	if echo.String() != want {
		t.Errorf("echo = %q; want %q", echo.String(), want)
	}
	if snap.Submitted != 1 || snap.Succeeded != 1 || snap.Failed != 0 {
		t.Errorf("unexpected stats %+v", snap)
	}
}

func TestPipelineDropsFailures(t *testing.T) {
	t.Parallel()
	rt := newStubTransport(map[string]stubResponse{
		"x.example.com": {status: http.StatusMovedPermanently},
		"y.example.com": {err: errors.New("no such host")},
	})
	var echo bytes.Buffer
	cfg := PipelineConfig{Prober: newStubProber(rt, time.Second), Echo: &echo}

	content, snap := runToFile(t, cfg, []string{"x.example.com", "y.example.com"})

	want := "[301] - https://x.example.com\n"
	if content != want {
		t.Errorf("file = %q; want %q", content, want)
	}
	if echo.String() != want {
		t.Errorf("echo = %q; want %q", echo.String(), want)
	}
	if snap.Submitted != 2 || snap.Succeeded != 1 || snap.Failed != 1 {
		t.Errorf("unexpected stats %+v", snap)
	}
}

func TestPipelineBoundsConcurrency(t *testing.T) {
	t.Parallel()
	const workers = 5
	const n = 40

	responses := make(map[string]stubResponse, n)
	targets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		host := fmt.Sprintf("h%02d.example.com", i)
		responses[host] = stubResponse{status: http.StatusOK, delay: 20 * time.Millisecond}
		targets = append(targets, host)
	}
	rt := newStubTransport(responses)

	p, err := NewPipeline(PipelineConfig{Workers: workers, Prober: newStubProber(rt, time.Second)})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	sink := &memorySink{}
	snap, err := p.Run(context.Background(), targets, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := rt.maxInFlight.Load(); got > workers {
		t.Errorf("transport saw %d concurrent requests; limit is %d", got, workers)
	}
	if snap.PeakInFlight > workers {
		t.Errorf("PeakInFlight = %d; limit is %d", snap.PeakInFlight, workers)
	}
	if rt.calls.Load() != n {
		t.Errorf("transport calls = %d; want %d", rt.calls.Load(), n)
	}
	if snap.Submitted != n {
		t.Errorf("Submitted = %d; want %d", snap.Submitted, n)
	}
	if len(sink.lines) != n {
		t.Errorf("got %d lines; want %d", len(sink.lines), n)
	}
}

func TestPipelineSubmittedMatchesTargets(t *testing.T) {
	t.Parallel()
	responses := map[string]stubResponse{}
	var targets []string
	for i := 0; i < 25; i++ {
		host := fmt.Sprintf("n%02d.example.com", i)
		targets = append(targets, host)
		if i%3 == 0 {
			responses[host] = stubResponse{err: errors.New("refused")}
		} else {
			responses[host] = stubResponse{status: http.StatusOK}
		}
	}
	rt := newStubTransport(responses)

	p, err := NewPipeline(PipelineConfig{Prober: newStubProber(rt, time.Second)})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	sink := &memorySink{}
	snap, err := p.Run(context.Background(), targets, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if snap.Submitted != int64(len(targets)) {
		t.Errorf("Submitted = %d; want %d", snap.Submitted, len(targets))
	}
	if snap.Completed() != int64(len(targets)) {
		t.Errorf("Completed = %d; want %d", snap.Completed(), len(targets))
	}
	if len(sink.lines) > len(targets) {
		t.Errorf("got %d lines for %d targets", len(sink.lines), len(targets))
	}
	if int64(len(sink.lines)) != snap.Succeeded {
		t.Errorf("lines = %d; Succeeded = %d", len(sink.lines), snap.Succeeded)
	}
}

func TestPipelineHangingProbeDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	rt := newStubTransport(map[string]stubResponse{
		"hang.example.com": {hang: true},
		"a.example.com":    {status: http.StatusOK},
		"b.example.com":    {status: http.StatusForbidden},
	})
	var echo bytes.Buffer
	p, err := NewPipeline(PipelineConfig{
		Workers: 2,
		Prober:  newStubProber(rt, 100*time.Millisecond),
		Echo:    &echo,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sink := &memorySink{}
	start := time.Now()
	if _, err := p.Run(context.Background(), []string{"hang.example.com", "a.example.com", "b.example.com"}, sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("run took %v; the hanging probe should time out", elapsed)
	}

	sort.Strings(sink.lines)
	want := []string{"[200] - https://a.example.com", "[403] - https://b.example.com"}
	if strings.Join(sink.lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines = %v; want %v", sink.lines, want)
	}
	if strings.Contains(echo.String(), "hang.example.com") {
		t.Errorf("hanging probe leaked to echo: %q", echo.String())
	}
}

func TestPipelineRecoversProberPanic(t *testing.T) {
	t.Parallel()
	prober := ProberFunc(func(ctx context.Context, target string) (ProbeResult, bool) {
		if target == "bad.example.com" {
			panic("prober exploded")
		}
		return ProbeResult{StatusCode: 200, URL: NormalizeTarget(target)}, true
	})
	p, err := NewPipeline(PipelineConfig{Workers: 2, Prober: prober})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sink := &memorySink{}
	snap, err := p.Run(context.Background(), []string{"bad.example.com", "good.example.com"}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.lines) != 1 || sink.lines[0] != "[200] - https://good.example.com" {
		t.Errorf("lines = %v", sink.lines)
	}
	if snap.Failed != 1 || snap.Panics != 1 {
		t.Errorf("Failed = %d, Panics = %d; want 1 and 1", snap.Failed, snap.Panics)
	}
	if snap.InFlight != 0 {
		t.Errorf("InFlight = %d after run; want 0", snap.InFlight)
	}
}

func TestPipelineSinkErrorIsReported(t *testing.T) {
	t.Parallel()
	prober := ProberFunc(func(ctx context.Context, target string) (ProbeResult, bool) {
		return ProbeResult{StatusCode: 200, URL: NormalizeTarget(target)}, true
	})
	p, err := NewPipeline(PipelineConfig{Prober: prober})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sink := &failingSink{}
	snap, err := p.Run(context.Background(), []string{"a.example.com", "b.example.com", "c.example.com"}, sink)
	if !errors.Is(err, ErrOutput) {
		t.Fatalf("Run error = %v; want ErrOutput", err)
	}
	if sink.calls != 1 {
		t.Errorf("sink called %d times; want 1 (writes stop after the first failure)", sink.calls)
	}
	if snap.Completed() != 3 {
		t.Errorf("Completed = %d; every probe still runs", snap.Completed())
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	t.Parallel()
	rt := newStubTransport(map[string]stubResponse{
		"a.example.com": {hang: true},
		"b.example.com": {hang: true},
	})
	p, err := NewPipeline(PipelineConfig{Prober: newStubProber(rt, 10*time.Second)})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	sink := &memorySink{}
	start := time.Now()
	snap, err := p.Run(ctx, []string{"a.example.com", "b.example.com"}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("cancelled run took %v", elapsed)
	}
	if len(sink.lines) != 0 || snap.Failed != 2 {
		t.Errorf("lines = %v, Failed = %d; want none and 2", sink.lines, snap.Failed)
	}
}

func TestPipelineEchoFormatAndCallback(t *testing.T) {
	t.Parallel()
	prober := ProberFunc(func(ctx context.Context, target string) (ProbeResult, bool) {
		if target == "down.example.com" {
			return ProbeResult{}, false
		}
		return ProbeResult{StatusCode: 404, URL: NormalizeTarget(target)}, true
	})

	var echo bytes.Buffer
	var mu sync.Mutex
	seen := map[bool]int{}
	var calls atomic.Int64
	p, err := NewPipeline(PipelineConfig{
		Prober:     prober,
		Echo:       &echo,
		EchoFormat: func(r ProbeResult) string { return "<" + r.String() + ">" },
		OnProbeDone: func(_ ProbeResult, ok bool) {
			calls.Add(1)
			mu.Lock()
			seen[ok]++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	sink := &memorySink{}
	if _, err := p.Run(context.Background(), []string{"up.example.com", "down.example.com"}, sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if echo.String() != "<[404] - https://up.example.com>\n" {
		t.Errorf("echo = %q", echo.String())
	}
	if len(sink.lines) != 1 || sink.lines[0] != "[404] - https://up.example.com" {
		t.Errorf("sink lines = %v; the file always gets the plain form", sink.lines)
	}
	if calls.Load() != 2 || seen[true] != 1 || seen[false] != 1 {
		t.Errorf("OnProbeDone calls = %d, seen = %v", calls.Load(), seen)
	}
}

func TestPipelineNoTargets(t *testing.T) {
	t.Parallel()
	p, err := NewPipeline(PipelineConfig{Prober: ProberFunc(func(context.Context, string) (ProbeResult, bool) {
		t.Error("prober must not be called")
		return ProbeResult{}, false
	})})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	snap, err := p.Run(context.Background(), nil, &memorySink{})
	if err != nil || snap.Submitted != 0 {
		t.Fatalf("Run(nil) = %+v, %v", snap, err)
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	t.Parallel()
	if _, err := NewPipeline(PipelineConfig{Workers: -1}); !errors.Is(err, ErrInvalidWorkers) {
		t.Fatalf("NewPipeline(-1) = %v; want ErrInvalidWorkers", err)
	}
	p, err := NewPipeline(PipelineConfig{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.config.Workers != DefaultWorkers || p.config.Timeout != DefaultProbeTimeout {
		t.Errorf("defaults = %d workers, %v timeout", p.config.Workers, p.config.Timeout)
	}
	hp, ok := p.prober.(*HTTPProber)
	if !ok {
		t.Fatalf("default prober is %T; want *HTTPProber", p.prober)
	}
	if hp.Timeout != DefaultProbeTimeout || hp.Client.CheckRedirect == nil {
		t.Errorf("default HTTPProber misconfigured: %+v", hp)
	}
}
