package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToCPUCount(t *testing.T) {
	t.Parallel()

	pool := New(0)
	assert.Positive(t, pool.Workers())
}

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	t.Parallel()

	const n = 1000

	pool := New(4)
	visits := make([]int32, n)

	pool.For(n, func(i int) {
		atomic.AddInt32(&visits[i], 1)
	})

	for i := range visits {
		require.Equal(t, int32(1), visits[i], "index %d", i)
	}
}

func TestForRange_EmptyRangeIsNoop(t *testing.T) {
	t.Parallel()

	pool := New(4)
	called := false

	pool.ForRange(5, 5, func(_ int) { called = true })
	pool.ForRange(7, 3, func(_ int) { called = true })

	assert.False(t, called)
}

func TestForRange_SingleWorkerRunsInline(t *testing.T) {
	t.Parallel()

	pool := New(1)
	sum := 0

	pool.ForRange(1, 5, func(i int) { sum += i })

	assert.Equal(t, 1+2+3+4, sum)
}

func TestForChunks_CoversRangeWithDenseChunkIndices(t *testing.T) {
	t.Parallel()

	const n = 103

	pool := New(4)
	visits := make([]int32, n)

	var maxChunk int32 = -1

	chunks := pool.ForChunks(0, n, func(chunk, lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&visits[i], 1)
		}

		for {
			cur := atomic.LoadInt32(&maxChunk)
			if int32(chunk) <= cur || atomic.CompareAndSwapInt32(&maxChunk, cur, int32(chunk)) {
				break
			}
		}
	})

	require.LessOrEqual(t, chunks, pool.Workers())
	assert.Equal(t, int32(chunks-1), atomic.LoadInt32(&maxChunk))

	for i := range visits {
		require.Equal(t, int32(1), visits[i], "index %d", i)
	}
}
