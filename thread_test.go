package sharegl

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRenderThreadDo(t *testing.T) {
	th := newRenderThread()
	defer th.Stop()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, th.Do(func() error {
			order = append(order, i)
			return nil
		}))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	boom := errors.New("boom")
	assert.Equal(t, boom, th.Do(func() error { return boom }))
}

func TestRenderThreadStop(t *testing.T) {
	th := newRenderThread()
	th.Stop()
	th.Stop() // No-op
	called := false
	err := th.Do(func() error {
		called = true
		return nil
	})
	assert.Equal(t, errThreadStopped, err)
	assert.False(t, called)
}
