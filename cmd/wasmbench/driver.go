package main

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasmbench/bench"
)

// stats is shared by every worker.
type stats struct {
	start    time.Time
	events   *xsync.Counter
	failures *xsync.Counter
	elapsed  atomic.Int64
}

func newStats() *stats {
	return &stats{
		start:    time.Now(),
		events:   xsync.NewCounter(),
		failures: xsync.NewCounter(),
	}
}

func (s *stats) finish() {
	s.elapsed.Store(int64(time.Since(s.start)))
}

func (s *stats) duration() time.Duration {
	if d := s.elapsed.Load(); d > 0 {
		return time.Duration(d)
	}
	return time.Since(s.start)
}

type limits struct {
	duration time.Duration
	events   int64
}

// driver is the harness side: one goroutine per worker, each pinned to its
// OS thread for the sandbox lifetime.
type driver struct {
	test     *bench.Test
	log      *zap.Logger
	stats    *stats
	limits   limits
	interval time.Duration
	threads  int

	budget atomic.Int64
}

func newDriver(test *bench.Test, threads int, lim limits, log *zap.Logger) *driver {
	d := &driver{
		test:    test,
		log:     log,
		stats:   newStats(),
		limits:  lim,
		threads: threads,
	}
	d.budget.Store(lim.events)
	return d
}

// claim reserves one event from the budget. Without an event limit the
// run is bounded by time or cancellation only.
func (d *driver) claim() bool {
	if d.limits.events <= 0 {
		return true
	}
	return d.budget.Add(-1) >= 0
}

func (d *driver) run(ctx context.Context) error {
	ops := d.test.Ops
	if err := ops.Init(ctx); err != nil {
		_ = ops.Done(context.WithoutCancel(ctx))
		return err
	}

	runCtx := ctx
	if d.limits.duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.limits.duration)
		defer cancel()
	}

	stopReports := d.startReports(runCtx)

	d.stats.start = time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for tid := 0; tid < d.threads; tid++ {
		tid := tid
		g.Go(func() error {
			return d.worker(gctx, tid)
		})
	}
	werr := g.Wait()
	d.stats.finish()
	stopReports()

	// Teardown runs even when the run was interrupted.
	ctx = context.WithoutCancel(ctx)
	if r, ok := d.test.Reporter(); ok {
		if err := r.ReportCumulative(ctx, d.stats.events.Value()); err != nil {
			d.log.Warn("cumulative report failed", zap.Error(err))
		}
	}

	if err := ops.Done(ctx); err != nil && werr == nil {
		return err
	}
	return werr
}

func (d *driver) worker(ctx context.Context, tid int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ops := d.test.Ops
	// Sandbox setup and teardown are not cancelled with the run.
	bg := context.WithoutCancel(ctx)
	if err := ops.ThreadInit(bg, tid); err != nil {
		return err
	}
	defer ops.ThreadDone(bg, tid)

	if tr, ok := d.test.ThreadRunner(); ok {
		ran, err := tr.ThreadRun(ctx, tid)
		if ran {
			return err
		}
	}

	for ctx.Err() == nil && d.claim() {
		ev := ops.NextEvent(tid)
		if err := ops.ExecuteEvent(ctx, &ev, tid); err != nil {
			d.stats.failures.Inc()
			d.log.Debug("event failed", zap.Int("thread", tid), zap.Error(err))
			continue
		}
		d.stats.events.Inc()
	}
	return nil
}

func (d *driver) startReports(ctx context.Context) func() {
	r, ok := d.test.Reporter()
	if !ok || d.interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.ReportIntermediate(ctx, d.stats.events.Value()); err != nil {
					d.log.Warn("intermediate report failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
