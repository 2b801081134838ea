// Package parallel runs range-partitioned stages on a persistent worker pool.
//
// A stage is a function over a half-open index range. Run splits [0, n) into
// contiguous chunks, one per worker, and returns only after every chunk has
// finished, so consecutive Run calls form a sequence of barriers.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the minimum item count to use the workers.
// Below this, running inline is faster than the channel round trips.
const DefaultThreshold = 64

// Range is a half-open interval [Start, End) of item indices.
type Range struct {
	Start, End int
}

// Len returns the number of items in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// StageFunc processes one range. worker is the chunk slot in [0, Workers())
// and is unique among the chunks of a single Run, so it can index per-worker
// scratch buffers.
type StageFunc func(r Range, worker int)

// task is one chunk of a stage for a worker to process.
type task struct {
	r      Range
	worker int
	fn     StageFunc
}

// Pool holds a fixed number of worker goroutines reused across stages.
type Pool struct {
	numWorkers int
	threshold  int

	mu       sync.Mutex // serialises Run and Close
	workChan chan task
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewPool creates a pool with numWorkers workers. A value below 1 uses GOMAXPROCS.
// Workers are started on the first parallel Run.
func NewPool(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		numWorkers: numWorkers,
		threshold:  DefaultThreshold,
	}
}

// Workers returns the number of workers, which is also the maximum chunk count.
func (p *Pool) Workers() int {
	return p.numWorkers
}

// SetThreshold sets the minimum item count for parallel dispatch.
func (p *Pool) SetThreshold(n int) {
	p.mu.Lock()
	p.threshold = n
	p.mu.Unlock()
}

// Partition splits [0, n) into at most parts contiguous, non-empty ranges.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	chunkSize := (n + parts - 1) / parts
	ranges := make([]Range, 0, parts)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// Run executes fn over [0, n) and blocks until all chunks complete.
func (p *Pool) Run(n int, fn StageFunc) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.numWorkers == 1 || n < p.threshold {
		fn(Range{Start: 0, End: n}, 0)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunks := Partition(n, p.numWorkers)
	for w, r := range chunks {
		p.workChan <- task{r: r, worker: w, fn: fn}
	}
	for range chunks {
		<-p.doneChan
	}
}

// startWorkers launches the worker goroutines. Caller holds p.mu.
func (p *Pool) startWorkers() {
	p.workChan = make(chan task, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case t := <-p.workChan:
			t.fn(t.r, t.worker)
			p.doneChan <- struct{}{}
		}
	}
}

// Close stops the workers and waits for them to exit. The pool restarts its
// workers if Run is called again.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}
