package systems

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		sum    int
		failed int
	)
	for i := 1; i <= 10; i++ {
		n := i
		require.NoError(t, js.Submit(JobTask{
			Name: "sum",
			Run: func() (interface{}, error) {
				if n%5 == 0 {
					return nil, errors.New("multiple of five")
				}
				return n, nil
			},
			OnComplete: func(result interface{}) {
				mu.Lock()
				sum += result.(int)
				mu.Unlock()
			},
			OnFailure: func(error) {
				mu.Lock()
				failed++
				mu.Unlock()
			},
		}))
	}
	require.NoError(t, js.Shutdown())

	assert.Equal(t, 55-5-10, sum)
	assert.Equal(t, 2, failed)
}

func TestJobSystemRejectsAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())

	assert.ErrorIs(t, js.Submit(JobTask{Name: "late"}), ErrJobSystemClosed)
	assert.ErrorIs(t, js.Shutdown(), ErrJobSystemClosed)
}
