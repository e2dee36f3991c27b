package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/log"
	"golang.org/x/sync/errgroup"
)

// The outcome of tracing a batch of rays.
type Result struct {
	// The nearest hit for each ray, in batch order.
	Hits []bvh.HitRecord

	// Total number of times queries moved between workers.
	Forwards uint64

	// Total number of scene index node tests.
	NodeTests uint64

	Elapsed time.Duration
}

// A Pool traces batches of rays with a set of workers that each own part of
// the scene. Queries travel between workers as encoded packets until they are
// exhausted.
type Pool struct {
	workers   []*Worker
	scheduler BlockScheduler
	logger    log.Logger
}

// Create a pool for the given workers.
func NewPool(workers []*Worker) (*Pool, error) {
	if len(workers) == 0 {
		return nil, ErrNoWorkers
	}
	return &Pool{
		workers:   workers,
		scheduler: NewPerfectScheduler(),
		logger:    log.New("tracer pool"),
	}, nil
}

// Get the pool workers.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Get the stats collected by each worker during the last Trace call.
func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}

func (p *Pool) ownerOf(meshID uint32) (int, error) {
	for i, w := range p.workers {
		if w.Owns(meshID) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrNoOwner, meshID)
}

// Trace a batch of rays and return the nearest hit for each one. Trace blocks
// until every query is exhausted, a worker fails or ctx is cancelled.
func (p *Pool) Trace(ctx context.Context, rays []bvh.Ray) (*Result, error) {
	start := time.Now()
	defer instrumentTraceLatency(start)

	// Every packet is either in exactly one inbox, in the results channel or
	// held by a worker, so channels sized to the batch never block.
	inboxes := make([]chan []byte, len(p.workers))
	for i := range inboxes {
		inboxes[i] = make(chan []byte, len(rays))
	}
	results := make(chan []byte, len(rays))

	blocks := p.scheduler.Schedule(p.Stats(), uint32(len(rays)))
	var slot uint32
	for i, w := range p.workers {
		w.ResetStats()
		w.stats.Started = blocks[i]
		for end := slot + blocks[i]; slot < end; slot++ {
			q := NewQuery(slot, rays[slot])
			data, err := q.MarshalBinary()
			if err != nil {
				return nil, err
			}
			inboxes[i] <- data
		}
	}
	p.logger.Debugf("seeded %d queries with block assignment %v", len(rays), blocks)

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.workers {
		i := i
		g.Go(func() error {
			return p.runWorker(gctx, i, inboxes, results)
		})
	}

	res := &Result{Hits: make([]bvh.HitRecord, len(rays))}
	g.Go(func() error {
		var q Query
		for done := 0; done < len(rays); done++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case data := <-results:
				if err := q.UnmarshalBinary(data); err != nil {
					return err
				}
				if int(q.Slot) >= len(rays) {
					return fmt.Errorf("%w: slot %d out of range", ErrCorruptQuery, q.Slot)
				}
				res.Hits[q.Slot] = q.Hit
				res.Forwards += uint64(q.Hops)
				res.NodeTests += uint64(q.Cursor.NodeTests)
				instrumentQueryDone(&q)
			}
		}

		// All queries are back so no worker can be holding or sending one.
		for _, inbox := range inboxes {
			close(inbox)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	p.logger.Infof("traced %d rays in %d ms (%d forwards, %d node tests)", len(rays), res.Elapsed.Nanoseconds()/1e6, res.Forwards, res.NodeTests)
	return res, nil
}

func (p *Pool) runWorker(ctx context.Context, index int, inboxes []chan []byte, results chan<- []byte) error {
	w := p.workers[index]
	var q Query
	for {
		var data []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-inboxes[index]:
			if !ok {
				return nil
			}
			data = in
		}

		if err := q.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("worker %d: %w", w.ID(), err)
		}
		status, err := w.Process(&q)
		if err != nil {
			return fmt.Errorf("worker %d: query %s: %w", w.ID(), q.ID, err)
		}
		out, err := q.MarshalBinary()
		if err != nil {
			return err
		}

		dest := results
		if status == bvh.Suspended {
			owner, err := p.ownerOf(q.Forward)
			if err != nil {
				return fmt.Errorf("worker %d: query %s: %w", w.ID(), q.ID, err)
			}
			w.logger.Debugf("forwarding query %s to worker %d for mesh %d", q.ID, p.workers[owner].ID(), q.Forward)
			instrumentForward(w.ID())
			dest = inboxes[owner]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dest <- out:
		}
	}
}
