package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake(t *testing.T) {
	t.Parallel()

	s, err := NewSnowflakeNode(7)
	require.NoError(t, err)

	seen := make(map[int64]struct{}, 1000)
	prev := int64(0)
	for range 1000 {
		id := s.Generate()
		assert.Greater(t, id, prev)
		seen[id] = struct{}{}
		prev = id
	}
	assert.Len(t, seen, 1000)

	_, err = NewSnowflakeNode(4096)
	assert.Error(t, err)

	_, err = NewSnowflake()
	assert.NoError(t, err)
}

func TestUUID(t *testing.T) {
	t.Parallel()

	id, err := uuid.Parse(NewUUID().Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestToken(t *testing.T) {
	t.Parallel()

	g := NewToken(0)
	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}
