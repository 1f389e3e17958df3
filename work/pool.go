// Package work provides a bounded worker pool for offloading simulated
// blocking I/O away from connection goroutines.
package work

import "time"

// BlockResult reports how long a simulated blocking call slept.
type BlockResult struct {
	BlockedMs int `json:"blocked_ms"`
}

// SimulateBlockingIO sleeps for the given number of milliseconds. It must run
// on a pool worker, never on a connection's own goroutine.
func SimulateBlockingIO(durationMs int) BlockResult {
	if durationMs < 0 {
		durationMs = 0
	}
	time.Sleep(time.Duration(durationMs) * time.Millisecond)
	return BlockResult{BlockedMs: durationMs}
}

// Pool bounds the number of concurrently running offloaded tasks.
type Pool struct {
	sem chan struct{}
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Go runs fn on a worker goroutine, blocking the caller only while the pool
// is saturated.
func (p *Pool) Go(fn func()) {
	p.sem <- struct{}{}
	go func() {
		defer func() { <-p.sem }()
		fn()
	}()
}

// Block runs a simulated blocking call on the pool and returns a channel that
// yields the result once the call completes.
func (p *Pool) Block(durationMs int) <-chan BlockResult {
	result := make(chan BlockResult, 1)
	p.Go(func() {
		result <- SimulateBlockingIO(durationMs)
	})
	return result
}
