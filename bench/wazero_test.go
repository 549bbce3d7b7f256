package bench

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasmbench"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/engines"
)

func TestWazero_EndToEnd(t *testing.T) {
	const (
		threads = 4
		events  = 50
	)
	ctx := context.Background()

	test, err := Load(engines.NewRegistry(), backendtest.WriteModule(t, backendtest.GuestModule()), testConfig(threads))
	if err != nil {
		t.Fatal(err)
	}
	defer test.Close()

	if err := test.Ops.Init(ctx); err != nil {
		t.Fatal(err)
	}
	suite := test.Ops.(*Suite)

	var g errgroup.Group
	for tid := 0; tid < threads; tid++ {
		tid := tid
		g.Go(func() error {
			if err := test.Ops.ThreadInit(ctx, tid); err != nil {
				return err
			}
			defer test.Ops.ThreadDone(ctx, tid)

			for i := 0; i < events; i++ {
				ev := test.Ops.NextEvent(tid)
				in := ev.Payload
				if err := test.Ops.ExecuteEvent(ctx, &ev, tid); err != nil {
					return err
				}
				if ev.Payload != in+1 {
					t.Errorf("thread %d: event(%d) = %d", tid, in, ev.Payload)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	for tid := 0; tid < threads; tid++ {
		sb := suite.Sandbox(tid)
		h, ok := sb.Buffer()
		want := wasmbench.Handle{Addr: backendtest.BufferBase, Size: uint32(suite.Module().Limits.BufferSize)}
		if !ok || h != want {
			t.Errorf("thread %d buffer = %+v, %v", tid, h, ok)
		}
		if sb.State() != StateClosed {
			t.Errorf("thread %d state = %v", tid, sb.State())
		}
	}

	if err := test.Ops.Done(ctx); err != nil {
		t.Fatal(err)
	}
}
