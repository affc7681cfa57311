package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horup/hostess/wire"
)

func TestDeltaAllNewBytes(t *testing.T) {
	delta := wire.Delta([]byte("AAAAA"), []byte(""))
	assert.Equal(t, []byte{0x05, 0x41}, delta)
}

func TestDeltaApplyRoundTrip(t *testing.T) {
	oldBuf := []byte("the quick brown fox")
	newBuf := []byte("the slow brown foxes")

	delta := wire.Delta(newBuf, oldBuf)
	restored, err := wire.ApplyDelta(delta, oldBuf)
	require.NoError(t, err)
	assert.Equal(t, newBuf, restored)
}

func TestDeltaIdenticalBuffersRoundTrip(t *testing.T) {
	buf := []byte("unchanged")
	delta := wire.Delta(buf, buf)
	restored, err := wire.ApplyDelta(delta, buf)
	require.NoError(t, err)
	assert.Equal(t, buf, restored)
}

func TestDeltaRunLongerThan255(t *testing.T) {
	newBuf := make([]byte, 300)
	for i := range newBuf {
		newBuf[i] = 'x'
	}
	oldBuf := make([]byte, 300)

	delta := wire.Delta(newBuf, oldBuf)
	// 300 identical-diff bytes must split into a 255-run and a 45-run.
	assert.Equal(t, []byte{255, 'x', 45, 'x'}, delta)

	restored, err := wire.ApplyDelta(delta, oldBuf)
	require.NoError(t, err)
	assert.Equal(t, newBuf, restored)
}

func TestApplyDeltaOddLengthIsError(t *testing.T) {
	_, err := wire.ApplyDelta([]byte{0x01}, nil)
	assert.ErrorIs(t, err, wire.ErrDecode)
}
