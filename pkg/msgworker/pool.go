package msgworker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue full")
)

// Job is a unit of webhook work. Jobs that share a Key land on the same
// worker and run in dispatch order.
type Job struct {
	Key     string
	Handler func(ctx context.Context) error

	done chan error
}

// PoolStats is the snapshot served by the worker pool stats endpoint.
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveKeys      map[string]int `json:"active_keys"` // key -> worker_id
}

// WorkerStats describes a single shard.
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeKeyEntry struct {
	workerID  int
	updatedAt time.Time
}

// activeKeyTTL bounds how long a key stays listed in stats after dispatch.
const activeKeyTTL = 2 * time.Second

// Pool shards jobs over a fixed set of workers by key.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	activeMu        sync.Mutex
	activeKeys      map[string]activeKeyEntry
}

type worker struct {
	id            int
	queue         chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *Pool
}

// NewPool creates a pool with numWorkers shards, each buffering up to
// queueSize jobs. Non-positive values fall back to 8 workers and 256 slots.
// Call Start before dispatching.
func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		activeKeys: make(map[string]activeKeyEntry),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the workers and the active-key sweeper. Cancelling ctx
// cancels the context handed to running jobs.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.sweepActiveKeys(ctx)

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:     i,
			queue:  make(chan Job, p.queueSize),
			ctx:    workerCtx,
			cancel: cancel,
			pool:   p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

func (p *Pool) sweepActiveKeys(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			p.activeMu.Lock()
			for k, v := range p.activeKeys {
				if now.Sub(v.updatedAt) > activeKeyTTL {
					delete(p.activeKeys, k)
				}
			}
			p.activeMu.Unlock()
		}
	}
}

// TryDispatch enqueues the job without blocking and reports whether it was accepted.
func (p *Pool) TryDispatch(job Job) bool {
	return p.enqueue(job) == nil
}

// Run enqueues the job and waits for its handler to return. Waiting stops
// early when ctx is done; the job itself still runs.
func (p *Pool) Run(ctx context.Context, job Job) error {
	job.done = make(chan error, 1)
	if err := p.enqueue(job); err != nil {
		return err
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) enqueue(job Job) error {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return ErrPoolStopped
	}

	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)

	p.activeMu.Lock()
	p.activeKeys[job.Key] = activeKeyEntry{workerID: shard, updatedAt: time.Now()}
	p.activeMu.Unlock()

	sent := func() (ok bool) {
		// Stop may close the queue between the stopped check and the send.
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].queue <- job:
			return true
		default:
			return false
		}
	}()
	if sent {
		return nil
	}

	p.activeMu.Lock()
	delete(p.activeKeys, job.Key)
	p.activeMu.Unlock()

	atomic.AddInt64(&p.totalDropped, 1)
	if atomic.LoadInt32(&p.stopped) == 1 {
		return ErrPoolStopped
	}
	logrus.Warnf("[WORKER_POOL] Worker %d queue full, dropping job for %s", shard, job.Key)
	return ErrQueueFull
}

// Stop closes every queue, lets queued jobs finish and waits for the
// workers to exit. Later dispatches fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			if w == nil {
				continue
			}
			w.cancel()
			close(w.queue)
		}
		p.wg.Wait()

		logrus.Info("[WORKER_POOL] All workers stopped")
	})
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// Stats returns counters, per-worker state and the keys dispatched within
// the last activeKeyTTL.
func (p *Pool) Stats() PoolStats {
	workerStats := make([]WorkerStats, 0, len(p.workers))
	activeWorkers := 0

	for _, w := range p.workers {
		if w == nil {
			continue
		}
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}
		workerStats = append(workerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.queue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}

	now := time.Now()
	p.activeMu.Lock()
	active := make(map[string]int, len(p.activeKeys))
	for k, v := range p.activeKeys {
		if now.Sub(v.updatedAt) > activeKeyTTL {
			delete(p.activeKeys, k)
			continue
		}
		active[k] = v.workerID
	}
	p.activeMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveKeys:      active,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.execute(w.ctx, job)
		case <-w.ctx.Done():
			// Queued webhooks still get processed on shutdown.
			drainCtx := context.WithoutCancel(w.ctx)
			for job := range w.queue {
				w.execute(drainCtx, job)
			}
			return
		}
	}
}

func (w *worker) execute(ctx context.Context, job Job) {
	atomic.StoreInt32(&w.isProcessing, 1)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job.Handler(ctx)
	}()

	atomic.StoreInt32(&w.isProcessing, 0)
	atomic.AddInt64(&w.jobsProcessed, 1)
	atomic.AddInt64(&w.pool.totalProcessed, 1)

	if err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[WORKER_POOL] Worker %d job failed for %s", w.id, job.Key)
	}
	if job.done != nil {
		job.done <- err
	}
}
