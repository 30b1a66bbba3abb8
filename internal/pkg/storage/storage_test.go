package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLimited(t *testing.T) {
	t.Parallel()

	body, err := readLimited(strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))

	_, err = readLimited(strings.NewReader("abcd"), 3)
	assert.ErrorIs(t, err, ErrTooLarge)

	body, err = readLimited(strings.NewReader("abcd"), 0)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(body))
}

func TestNew_Driver(t *testing.T) {
	t.Parallel()

	s, err := New(context.Background(), "none", Options{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New(context.Background(), "ftp", Options{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	assert.Equal(t, `attachment; filename="a.json"`, contentDisposition("a.json"))
	assert.Empty(t, contentDisposition(""))
}
