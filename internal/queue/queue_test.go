package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())

	q.Push(1, 2)
	q.Push(3)
	assert.Equal(t, 3, q.Len())

	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, []int{2, 3}, q.GetAndEmpty())
	assert.True(t, q.Empty())

	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestQueue_GetAndEmptyOnEmpty(t *testing.T) {
	q := New[string]()
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(i)
		}()
	}
	wg.Wait()

	got := q.GetAndEmpty()
	assert.Len(t, got, 50)
	assert.ElementsMatch(t, func() []int {
		out := make([]int, 50)
		for i := range out {
			out[i] = i
		}
		return out
	}(), got)
}
