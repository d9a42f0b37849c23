package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"yolo-bridge-go/internal/config"
	"yolo-bridge-go/internal/flow"
	"yolo-bridge-go/internal/packer"
	"yolo-bridge-go/internal/store"
)

func newRouterServer() *Server {
	return New(config.AppConfig{}, flow.New(0), store.New(), packer.New(2, 2), nil, nil)
}

func TestClassifyPriorityOrder(t *testing.T) {
	cases := []struct {
		msg  string
		kind msgKind
	}{
		{`{"type":"keepalive"}`, kindKeepalive},
		{`{"type":"sync","tick":12}`, kindSync},
		{`{"type":"sync"}`, kindSync},
		{`{"type":"detections","boxes":[]}`, kindTyped},
		{`{"webcamDevices":["cam0"]}`, kindWebcamList},
		{`{"tick":42}`, kindTick},
		{`{"loaded":true}`, kindLoaded},
		{`{"lastFrameTime":1.5}`, kindLastFrameTime},
		{`{"unknown":1}`, kindRelay},
		{`not json at all`, kindRelay},
		// "type" takes priority over every presence-based marker.
		{`{"type":"detections","webcamDevices":[],"tick":1}`, kindTyped},
	}
	for _, tc := range cases {
		kind, _ := classify(tc.msg)
		assert.Equal(t, tc.kind, kind, "message %q", tc.msg)
	}
}

func TestRouteStoresIntoSinks(t *testing.T) {
	s := newRouterServer()

	s.routeText("peer", `{"type":"sync","tick":7}`)
	assert.Equal(t, `{"type":"sync","tick":7}`, s.store.Tick())

	s.routeText("peer", `{"type":"detections"}`)
	assert.Equal(t, `{"type":"detections"}`, s.store.Predictions())

	s.routeText("peer", `{"webcamDevices":["cam0"]}`)
	assert.Equal(t, `{"webcamDevices":["cam0"]}`, s.store.WebcamList())

	s.routeText("peer", `{"tick":9}`)
	assert.Equal(t, `{"tick":9}`, s.store.Tick())

	assert.True(t, s.store.Loading())
	s.routeText("peer", `{"loaded":true}`)
	assert.False(t, s.store.Loading())

	s.routeText("peer", `{"lastFrameTime":0.03}`)
	assert.Equal(t, `{"lastFrameTime":0.03}`, s.store.Status())
}

func TestRouteAcknowledgesBusy(t *testing.T) {
	acking := []string{
		`{"type":"sync","tick":1}`,
		`{"type":"detections"}`,
		`{"webcamDevices":[]}`,
		`{"tick":2}`,
		`{"loaded":1}`,
		`{"lastFrameTime":0.5}`,
	}
	for _, msg := range acking {
		s := newRouterServer()
		s.flow.MarkBusy(1)
		s.routeText("peer", msg)
		assert.False(t, s.flow.Busy(), "message %q must ack", msg)
	}
}

func TestRouteKeepaliveDoesNotAck(t *testing.T) {
	s := newRouterServer()
	s.flow.MarkBusy(1)
	s.routeText("peer", `{"type":"keepalive"}`)
	assert.True(t, s.flow.Busy())
}

func TestRouteSyncWithoutTickIsNoOp(t *testing.T) {
	s := newRouterServer()
	s.flow.MarkBusy(1)
	s.routeText("peer", `{"type":"sync"}`)
	assert.True(t, s.flow.Busy())
	assert.Empty(t, s.store.Tick())
}

func TestRouteRelayDoesNotAck(t *testing.T) {
	s := newRouterServer()
	s.flow.MarkBusy(1)
	s.routeText("peer", `{"mirror":"me"}`)
	assert.True(t, s.flow.Busy())
}
