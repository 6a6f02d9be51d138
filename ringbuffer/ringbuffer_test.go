package ringbuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(8)
	n := rb.Write([]float32{1, 2, 3})
	require.Equal(t, 3, n)
	assert.Equal(t, 3, rb.Available())
	assert.Equal(t, 5, rb.FreeSpace())

	dst := make([]float32, 3)
	n = rb.Read(dst)
	require.Equal(t, 3, n)
	assert.Equal(t, []float32{1, 2, 3}, dst)
	assert.Equal(t, 0, rb.Available())
}

func TestWriteShortWhenFull(t *testing.T) {
	rb := New(4)
	n := rb.Write([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, 4, n, "write must not overwrite unread data")
	assert.Equal(t, 0, rb.FreeSpace())
}

func TestReadShortOnUnderrun(t *testing.T) {
	rb := New(4)
	rb.Write([]float32{1, 2})
	dst := make([]float32, 4)
	n := rb.Read(dst)
	assert.Equal(t, 2, n, "short read signals underrun to the caller")
}

func TestWrapsAroundCapacity(t *testing.T) {
	rb := New(4)
	rb.Write([]float32{1, 2, 3})
	out := make([]float32, 2)
	rb.Read(out)
	n := rb.Write([]float32{4, 5, 6})
	require.Equal(t, 3, n)

	dst := make([]float32, 4)
	got := rb.Read(dst)
	require.Equal(t, 4, got)
	assert.Equal(t, []float32{3, 4, 5, 6}, dst)
}

func TestResetClearsBuffer(t *testing.T) {
	rb := New(4)
	rb.Write([]float32{1, 2, 3})
	rb.Reset()
	assert.Equal(t, 0, rb.Available())
	assert.Equal(t, 4, rb.FreeSpace())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	rb := New(256)
	const total = 10000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		src := make([]float32, 1)
		for i := 0; i < total; i++ {
			src[0] = float32(i)
			for rb.Write(src) == 0 {
			}
		}
	}()

	received := make([]float32, 0, total)
	go func() {
		defer wg.Done()
		dst := make([]float32, 1)
		for len(received) < total {
			if rb.Read(dst) == 1 {
				received = append(received, dst[0])
			}
		}
	}()

	wg.Wait()
	require.Len(t, received, total)
	for i, v := range received {
		assert.Equal(t, float32(i), v)
	}
}
