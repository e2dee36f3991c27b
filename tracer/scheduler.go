package tracer

import "math"

// The BlockScheduler interface is implemented by all algorithms that split a
// batch of rays among the workers of a pool.
type BlockScheduler interface {
	// Split a batch of batchSize rays into contiguous blocks and assign one
	// to each worker using the stats collected while tracing the previous
	// batch.
	//
	// This function returns the block size assigned to each worker in the
	// input list.
	Schedule(stats []WorkerStats, batchSize uint32) []uint32
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent batches is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split a batch into blocks and assign them to the pool workers using feedback
// collected from the previous batch.
//
// When previous batch information is available the scheduler uses the
// following formula for estimating the workload for worker w and batch i+1:
// w_i, b_i+1 = (started,w_i / time,w_i) / Σ(started_i / time,i)
func (sch *perfectScheduler) Schedule(stats []WorkerStats, batchSize uint32) []uint32 {
	if len(stats) == 0 {
		return nil
	}

	// If this is the first time we try to schedule or the number of workers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(stats) {
		sch.blockAssignment = make([]uint32, len(stats))
		return sch.even(batchSize)
	}

	// Use last batch statistics
	var total float64
	for _, s := range stats {
		if s.BusyTime <= 0 {
			return sch.even(batchSize)
		}
		total += float64(s.Started) / float64(s.BusyTime)
	}
	if total == 0 {
		return sch.even(batchSize)
	}

	scaler := float64(batchSize) / total
	minBlock := 1.0
	if batchSize < uint32(len(stats)) {
		minBlock = 0
	}
	var scheduled uint32
	for idx, s := range stats {
		sch.blockAssignment[idx] = uint32(math.Max(minBlock, math.Floor(float64(s.Started)/float64(s.BusyTime)*scaler)))
		scheduled += sch.blockAssignment[idx]
	}

	// Rounding may leave some rays unassigned; append them to the first worker.
	// Enforcing the minimum block size may assign too many; take those back
	// from the largest blocks.
	for scheduled > batchSize {
		largest := 0
		for idx, n := range sch.blockAssignment {
			if n > sch.blockAssignment[largest] {
				largest = idx
			}
		}
		sch.blockAssignment[largest]--
		scheduled--
	}
	sch.blockAssignment[0] += batchSize - scheduled

	return sch.blockAssignment
}

func (sch *perfectScheduler) even(batchSize uint32) []uint32 {
	workers := uint32(len(sch.blockAssignment))
	for idx := range sch.blockAssignment {
		sch.blockAssignment[idx] = batchSize / workers
	}
	sch.blockAssignment[0] += batchSize % workers
	return sch.blockAssignment
}
