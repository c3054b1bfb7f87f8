package sharegl

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseSurfaceID(t *testing.T) {
	id, err := ParseSurfaceID("42")
	require.NoError(t, err)
	assert.Equal(t, SurfaceID(42), id)

	id, err = ParseSurfaceID("4294967295")
	require.NoError(t, err)
	assert.Equal(t, SurfaceID(4294967295), id)
}

func TestParseSurfaceIDInvalid(t *testing.T) {
	for _, arg := range []string{"", "abc", "-1", "0x10", "4294967296", "12 ", "1.5"} {
		_, err := ParseSurfaceID(arg)
		assert.True(t, errors.Is(err, ErrInvalidSurfaceID), "%q: got %v", arg, err)
	}
}
