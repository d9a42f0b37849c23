package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamAlternatesLayouts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := Stream(ctx, 4, 6, 500)

	interleaved := <-frames
	require.True(t, interleaved.Valid())
	assert.Equal(t, 4, interleaved.Height)
	assert.Equal(t, 6, interleaved.Width)
	assert.Equal(t, 3, interleaved.Channels)
	assert.NotNil(t, interleaved.Bytes)

	planar := <-frames
	require.True(t, planar.Valid())
	assert.Equal(t, 4, planar.Height)
	assert.Equal(t, 18, planar.Width)
	assert.Equal(t, 1, planar.Channels)
	require.NotNil(t, planar.Float)
	for _, v := range planar.Float {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frames := Stream(ctx, 2, 2, 500)
	<-frames
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}
