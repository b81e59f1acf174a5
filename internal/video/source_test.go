package video

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullSource(t *testing.T) {
	t.Parallel()

	src := NewNullSource(30, 5)
	assert.Equal(t, 30.0, src.Info().FPS)
	require.NoError(t, src.Seek(3))

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, f.Index())

	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, f.Index())

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)

	assert.Error(t, src.Seek(-1))
	assert.NoError(t, src.Close())
}

func TestNullSource_Unbounded(t *testing.T) {
	t.Parallel()

	src := NewNullSource(25, 0)
	for i := 0; i < 100; i++ {
		f, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, i, f.Index())
	}
}

type closingFrame struct {
	IndexFrame
	closed bool
}

func (f *closingFrame) Close() error {
	f.closed = true
	return nil
}

func TestRelease(t *testing.T) {
	t.Parallel()

	f := &closingFrame{IndexFrame: 7}
	Release(f)
	assert.True(t, f.closed)

	// Frames without resources are ignored.
	Release(IndexFrame(1))
}

func TestInfoString(t *testing.T) {
	t.Parallel()
	info := Info{FPS: 29.97, TotalFrames: 900, Width: 1280, Height: 720}
	assert.Equal(t, "1280x720, 29.97 fps, 900 total frames", info.String())
}
