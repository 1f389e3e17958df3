package work

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulateBlockingIO_Sleeps(t *testing.T) {
	start := time.Now()
	result := SimulateBlockingIO(50)
	elapsed := time.Since(start)

	assert.Equal(t, 50, result.BlockedMs)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestSimulateBlockingIO_NegativeDuration(t *testing.T) {
	result := SimulateBlockingIO(-10)
	assert.Equal(t, 0, result.BlockedMs)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			now := running.Add(1)
			for {
				current := peak.Load()
				if now <= current || peak.CompareAndSwap(current, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2), "pool must never exceed its size")
}

func TestPool_BlockDeliversResult(t *testing.T) {
	pool := NewPool(1)

	start := time.Now()
	result := <-pool.Block(30)
	elapsed := time.Since(start)

	assert.Equal(t, 30, result.BlockedMs)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}
