package latch

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatch_SingleAcquisition(t *testing.T) {
	var l Latch

	assert.False(t, l.Closed())
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Closed())
	assert.False(t, l.TryAcquire())
}

func TestLatch_Reset(t *testing.T) {
	var l Latch

	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())

	l.Reset()
	assert.False(t, l.Closed())
	assert.True(t, l.TryAcquire())
}

func TestLatch_ConcurrentAcquisition(t *testing.T) {
	var l Latch
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
