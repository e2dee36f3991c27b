package tracer

import (
	"testing"
	"time"
)

func TestPerfectScheduler(t *testing.T) {
	type spec struct {
		batchSize uint32
		busy1     time.Duration
		busy2     time.Duration
		expRays1  uint32
		expRays2  uint32
	}
	specs := []spec{
		// First call always splits evenly
		{10, time.Duration(1), time.Duration(5), 5, 5},
		// Second call should use the busy times to assign rays
		{10, time.Duration(1), time.Duration(5), 9, 1},
		// This time worker 2 performed much better
		{10, time.Duration(5), time.Duration(1), 7, 3},
	}

	stats := make([]WorkerStats, 2)
	sch := NewPerfectScheduler()
	for index, s := range specs {
		stats[0].BusyTime = s.busy1
		stats[1].BusyTime = s.busy2

		blockAssignment := sch.Schedule(stats, s.batchSize)

		if blockAssignment[0] != s.expRays1 {
			t.Fatalf("[spec %d] expected worker 0 to be assigned %d rays; got %d", index, s.expRays1, blockAssignment[0])
		}

		if blockAssignment[1] != s.expRays2 {
			t.Fatalf("[spec %d] expected worker 1 to be assigned %d rays; got %d", index, s.expRays2, blockAssignment[1])
		}

		stats[0].Started = blockAssignment[0]
		stats[1].Started = blockAssignment[1]
	}
}

func TestPerfectSchedulerEvenSplit(t *testing.T) {
	type spec struct {
		workers   int
		batchSize uint32
		exp       []uint32
	}
	specs := []spec{
		{1, 7, []uint32{7}},
		{3, 10, []uint32{4, 3, 3}},
		{4, 2, []uint32{2, 0, 0, 0}},
	}

	for index, s := range specs {
		sch := NewPerfectScheduler()
		blockAssignment := sch.Schedule(make([]WorkerStats, s.workers), s.batchSize)
		for i, exp := range s.exp {
			if blockAssignment[i] != exp {
				t.Fatalf("[spec %d] expected worker %d to be assigned %d rays; got %d", index, i, exp, blockAssignment[i])
			}
		}
	}
}

func TestPerfectSchedulerAssignsWholeBatch(t *testing.T) {
	stats := []WorkerStats{
		{Started: 1, BusyTime: time.Second},
		{Started: 1000, BusyTime: time.Millisecond},
		{Started: 3, BusyTime: time.Second},
	}

	sch := NewPerfectScheduler()
	sch.Schedule(stats, 10)
	blockAssignment := sch.Schedule(stats, 10)

	var total uint32
	for i, n := range blockAssignment {
		if n == 0 {
			t.Fatalf("expected worker %d to be assigned at least one ray", i)
		}
		total += n
	}
	if total != 10 {
		t.Fatalf("expected 10 rays to be assigned; got %d", total)
	}

	var empty []WorkerStats
	if got := sch.Schedule(empty, 10); got != nil {
		t.Fatalf("expected nil assignment without workers; got %v", got)
	}
}
