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

package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/mxngel/SubHound/internal/metrics"
)

// WorkItem is one probe waiting in the backlog.
// It is pooled via sync.Pool; callbacks must not retain it after returning.
type WorkItem struct {
	Target   string
	Callback func(item *WorkItem)
	// Ctx is the scheduler context. It is cancelled by Shutdown or by the parent.
	Ctx context.Context
}

// Scheduler runs a fixed number of workers that all read from one shared
// backlog channel, so at most numWorkers callbacks execute at any moment.
// Every accepted item is executed exactly once, even after cancellation.
type Scheduler struct {
	numWorkers   int
	queue        chan *WorkItem
	ctx          context.Context
	cancel       context.CancelFunc
	shutdown     atomic.Bool
	closeMu      sync.RWMutex // Orders SubmitWork sends against close(queue).
	workItemPool sync.Pool
	activeWork   sync.WaitGroup // Accepted items not yet finished.
	workers      sync.WaitGroup

	// onPanic, when set, is told about every callback panic after recovery.
	onPanic func(item *WorkItem, recovered any)
}

// NewScheduler starts numWorkers workers over a backlog that holds up to
// backlog pending items. The pool is capped at MaxWorkers.
// Operation: allocates the backlog and launches the workers.
func NewScheduler(parentCtx context.Context, numWorkers, backlog int) (*Scheduler, error) {
	if numWorkers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, numWorkers)
	}
	if numWorkers > MaxWorkers {
		log.Printf("Requested %d workers, capping at %d", numWorkers, MaxWorkers)
		numWorkers = MaxWorkers
	}
	if backlog < 1 {
		backlog = 1
	}

	sctx, cancel := context.WithCancel(parentCtx)
	s := &Scheduler{
		numWorkers: numWorkers,
		queue:      make(chan *WorkItem, backlog),
		ctx:        sctx,
		cancel:     cancel,
		workItemPool: sync.Pool{
			New: func() interface{} {
				return &WorkItem{}
			},
		},
	}

	s.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go s.run(i)
	}

	log.Printf("Scheduler initialized with %d workers, backlog %d", numWorkers, backlog)
	return s, nil
}

// NumWorkers returns the pool size.
func (s *Scheduler) NumWorkers() int { return s.numWorkers }

// run drains the shared backlog until it is closed and empty.
func (s *Scheduler) run(id int) {
	defer s.workers.Done()
	for item := range s.queue {
		s.execute(id, item)

		item.Callback = nil
		item.Target = ""
		item.Ctx = nil
		s.workItemPool.Put(item)
	}
}

// execute runs one callback. A panic is logged, counted and swallowed so the
// worker survives it.
func (s *Scheduler) execute(workerID int, item *WorkItem) {
	defer s.activeWork.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic recovered in worker %d probing %s: %v", workerID, item.Target, r)
			metrics.GetMetrics().RecordWorkerPanic(workerID)
			if s.onPanic != nil {
				s.onPanic(item, r)
			}
		}
	}()
	item.Callback(item)
}

// SubmitWork queues target for callback without blocking. It returns
// ErrQueueFull when the backlog is at capacity and ErrSchedulerShutdown once
// the scheduler stopped accepting work.
func (s *Scheduler) SubmitWork(target string, callback func(item *WorkItem)) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.shutdown.Load() {
		return ErrSchedulerShutdown
	}

	item := s.workItemPool.Get().(*WorkItem)
	item.Target = target
	item.Callback = callback
	item.Ctx = s.ctx
	s.activeWork.Add(1)

	select {
	case s.queue <- item:
		metrics.GetMetrics().RecordSubmit(true)
		return nil
	default:
		s.activeWork.Done()
		item.Callback = nil
		item.Ctx = nil
		s.workItemPool.Put(item)
		metrics.GetMetrics().RecordSubmit(false)
		return fmt.Errorf("backlog of %d full, dropping %s: %w", cap(s.queue), target, ErrQueueFull)
	}
}

// Close stops accepting work. Items already queued are still executed.
func (s *Scheduler) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.shutdown.CompareAndSwap(false, true) {
		close(s.queue)
	}
}

// Wait blocks until every accepted item finished and the workers exited.
// Close must be called first or Wait never returns.
func (s *Scheduler) Wait() {
	s.activeWork.Wait()
	s.workers.Wait()
	log.Println("Scheduler active work completed.")
}

// Shutdown stops accepting work and cancels the context handed to
// callbacks, so queued probes fail fast instead of waiting on the network.
// It does not wait; call Wait for that.
func (s *Scheduler) Shutdown() {
	s.Close()
	s.cancel()
}
