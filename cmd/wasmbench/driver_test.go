package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/bench"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/engines"
)

func loadGuest(t *testing.T, threads int) *bench.Test {
	t.Helper()
	cfg := config.Default()
	cfg.Runtime = "wazero"
	cfg.Threads = threads

	test, err := bench.Load(engines.NewRegistry(), backendtest.WriteModule(t, backendtest.GuestModule()), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(test.Close)
	return test
}

func TestDriver_EventBudget(t *testing.T) {
	tests := []struct {
		name    string
		threads int
		events  int64
	}{
		{"single thread", 1, 10},
		{"shared budget", 3, 100},
		{"budget below threads", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := loadGuest(t, tt.threads)
			d := newDriver(test, tt.threads, limits{events: tt.events}, zap.NewNop())

			if err := d.run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if got := d.stats.events.Value(); got != tt.events {
				t.Errorf("events = %d, want %d", got, tt.events)
			}
			if got := d.stats.failures.Value(); got != 0 {
				t.Errorf("failures = %d", got)
			}
		})
	}
}

func TestDriver_Duration(t *testing.T) {
	test := loadGuest(t, 2)
	d := newDriver(test, 2, limits{duration: 50 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	if err := d.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v", elapsed)
	}
	if d.stats.events.Value() == 0 {
		t.Error("no events executed")
	}
	if d.stats.duration() <= 0 {
		t.Error("duration not recorded")
	}
}

func TestDriver_Cancelled(t *testing.T) {
	test := loadGuest(t, 2)
	d := newDriver(test, 2, limits{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	defer cancel()

	if err := d.run(ctx); err != nil {
		t.Fatal(err)
	}
	if test.Ops.(*bench.Suite).Sandbox(0).State() != bench.StateClosed {
		t.Error("worker sandbox left open after cancellation")
	}
}

func TestDriver_Claim(t *testing.T) {
	d := &driver{limits: limits{events: 2}}
	d.budget.Store(2)
	for i, want := range []bool{true, true, false, false} {
		if got := d.claim(); got != want {
			t.Errorf("claim %d = %v, want %v", i, got, want)
		}
	}

	unlimited := &driver{}
	if !unlimited.claim() {
		t.Error("unlimited driver refused an event")
	}
}

func TestSummaryRows(t *testing.T) {
	test := loadGuest(t, 1)
	st := newStats()
	st.events.Add(10)
	st.failures.Inc()
	st.elapsed.Store(int64(2 * time.Second))

	cfg := config.Default()
	cfg.Runtime = "wazero"
	rows := summaryRows(test, cfg, st)

	got := make(map[string]summaryRow, len(rows))
	for _, r := range rows {
		got[r.label] = r
	}
	if got["events"].value != "10" {
		t.Errorf("events = %q", got["events"].value)
	}
	if got["events/s"].value != "5.00" {
		t.Errorf("events/s = %q", got["events/s"].value)
	}
	if !got["failures"].fail {
		t.Error("failures row not flagged")
	}
	if got["runtime"].value != "wazero" {
		t.Errorf("runtime = %q", got["runtime"].value)
	}
}
