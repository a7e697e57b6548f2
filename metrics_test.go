package uring_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/ring/ringtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := ringtest.New(4)
	loop := newTestLoop(t, q, uring.WithMetrics(reg, "test"))

	for i := 0; i < 2; i++ {
		if _, err := uring.Spawn(loop, func(co *uring.Co) error {
			_, err := co.Await(co.Loop().Nop(0))
			return err
		}).BlockOn(); err != nil {
			t.Fatal(err)
		}
	}
	uring.Spawn(loop, func(co *uring.Co) error {
		if _, err := co.Await(co.Loop().Nop(0)); err != nil {
			return err
		}
		return errors.New("detached failure")
	}).Detach()
	if err := loop.Poll(); err != nil {
		t.Fatal(err)
	}

	expected := fmt.Sprintf(`
# HELP test_operations_submitted_total Operations encoded into submission slots, by operation
# TYPE test_operations_submitted_total counter
test_operations_submitted_total{loop=%[1]q,op="nop"} 3
# HELP test_operations_completed_total Completions delivered to awaiting bridges, by operation and outcome
# TYPE test_operations_completed_total counter
test_operations_completed_total{loop=%[1]q,op="nop",outcome="ok"} 3
# HELP test_detached_task_failures_total Detached tasks that finished with a failure
# TYPE test_detached_task_failures_total counter
test_detached_task_failures_total{loop=%[1]q} 1
# HELP test_operations_inflight Operations submitted or pending whose completion has not been drained
# TYPE test_operations_inflight gauge
test_operations_inflight{loop=%[1]q} 0
# HELP test_tasks_live Started tasks that have not finished
# TYPE test_tasks_live gauge
test_tasks_live{loop=%[1]q} 0
`, loop.ID())
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_operations_submitted_total",
		"test_operations_completed_total",
		"test_detached_task_failures_total",
		"test_operations_inflight",
		"test_tasks_live",
	)
	if err != nil {
		t.Fatal(err)
	}

	// a second loop on the same registry is told apart by its loop label
	other := newTestLoop(t, ringtest.New(4), uring.WithMetrics(reg, "test"))
	_ = other.Close()
	_ = loop.Close()
}
