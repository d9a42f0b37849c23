package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSinks(t *testing.T) {
	s := New()
	assert.True(t, s.Loading())

	s.SetPredictions(`{"type":"detections"}`)
	s.SetTick(`{"type":"sync","tick":5}`)
	s.SetWebcamList(`{"webcamDevices":[]}`)
	s.SetStatus(`{"lastFrameTime":1.5}`)
	s.ClearLoading()

	assert.Equal(t, `{"type":"detections"}`, s.Predictions())
	assert.Equal(t, `{"type":"sync","tick":5}`, s.Tick())
	assert.Equal(t, `{"webcamDevices":[]}`, s.WebcamList())
	assert.Equal(t, `{"lastFrameTime":1.5}`, s.Status())
	assert.False(t, s.Loading())

	snap := s.Snapshot()
	assert.Equal(t, false, snap["loading"])
	assert.Equal(t, `{"type":"detections"}`, snap["predictions"])
	assert.Contains(t, snap, "last_update")
}

func TestSnapshotOmitsEmptySinks(t *testing.T) {
	snap := New().Snapshot()
	assert.Equal(t, true, snap["loading"])
	assert.NotContains(t, snap, "predictions")
	assert.NotContains(t, snap, "tick")
	assert.NotContains(t, snap, "webcam_devices")
	assert.NotContains(t, snap, "status")
}
