package surface

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"runtime"
	"testing"
)

func TestCreateLookupLocal(t *testing.T) {
	s, err := Create(Properties{Width: 800, Height: 600})
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Owner())
	assert.Equal(t, 800*4, s.BytesPerRow())
	assert.Equal(t, 4, s.BytesPerElement())

	ref, err := Lookup(s.ID())
	require.NoError(t, err)
	assert.False(t, ref.Owner())
	assert.Equal(t, s.Width(), ref.Width())
	assert.Equal(t, s.Height(), ref.Height())
	assert.Equal(t, s.BytesPerRow(), ref.BytesPerRow())

	// Both handles see the same memory and frame counter.
	require.NoError(t, s.Lock())
	s.Bytes()[0] = 42
	require.NoError(t, s.Unlock())
	require.NoError(t, s.Flush())
	require.NoError(t, ref.Lock())
	assert.Equal(t, byte(42), ref.Bytes()[0])
	require.NoError(t, ref.Unlock())
	assert.Equal(t, uint32(1), ref.Frame())

	// Detaching a reference leaves the surface alive.
	require.NoError(t, ref.Close())
	_, err = Lookup(s.ID())
	require.NoError(t, err)
}

func TestCloseOwnerDestroys(t *testing.T) {
	s, err := Create(Properties{Width: 4, Height: 4})
	require.NoError(t, err)
	id := s.ID()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Lock(), ErrClosed)

	_, err = Lookup(id)
	if runtime.GOOS == "darwin" {
		// IOSurfaceLookup may still resolve an unrelated surface with the same ID.
		return
	}
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidProperties(t *testing.T) {
	for _, props := range []Properties{
		{Width: 0, Height: 10},
		{Width: 10, Height: -1},
		{Width: 10, Height: 10, BytesPerElement: 3},
		{Width: 10, Height: 10, BytesPerRow: 39},
	} {
		_, err := Create(props)
		assert.ErrorIs(t, err, ErrInvalidProperties, "%+v", props)
	}
}

func TestPaddedRows(t *testing.T) {
	s, err := Create(Properties{Width: 10, Height: 3, BytesPerRow: 64})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Lock())
	defer s.Unlock()
	assert.Len(t, s.Bytes(), 64*3)
}

func TestCreateLookupGlobal(t *testing.T) {
	s, err := Create(Properties{Width: 800, Height: 600, Global: true})
	if errors.Is(err, ErrUnsupported) {
		t.Skip(err)
	}
	if err != nil {
		// Containers frequently forbid System V IPC.
		t.Skipf("cannot create a global surface here: %v", err)
	}
	defer s.Close()
	assert.True(t, s.Global())

	ref, err := Lookup(s.ID())
	require.NoError(t, err)
	defer ref.Close()
	assert.Equal(t, 800, ref.Width())
	assert.Equal(t, 600, ref.Height())
	assert.Equal(t, 800*4, ref.BytesPerRow())

	require.NoError(t, s.Lock())
	copy(s.Bytes(), []byte{1, 2, 3, 4})
	require.NoError(t, s.Unlock())
	require.NoError(t, ref.Lock())
	assert.Equal(t, []byte{1, 2, 3, 4}, ref.Bytes()[:4])
	require.NoError(t, ref.Unlock())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup(0x7ffffff0)
	assert.ErrorIs(t, err, ErrNotFound)
}
