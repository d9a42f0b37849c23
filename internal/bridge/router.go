package bridge

import "encoding/json"

// msgKind classifies an inbound text message. First match wins, in this
// priority order.
type msgKind int

const (
	kindRelay msgKind = iota
	kindKeepalive
	kindSync
	kindTyped
	kindWebcamList
	kindTick
	kindLoaded
	kindLastFrameTime
)

// classify parses the message as JSON and picks its kind from the fields
// present. hasTick is only meaningful for kindSync. Anything that does not
// parse as a JSON object falls to the relay branch.
func classify(msg string) (kind msgKind, hasTick bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(msg), &fields); err != nil {
		return kindRelay, false
	}

	_, hasTick = fields["tick"]

	if raw, ok := fields["type"]; ok {
		var typ string
		_ = json.Unmarshal(raw, &typ)
		switch typ {
		case "keepalive":
			return kindKeepalive, hasTick
		case "sync":
			return kindSync, hasTick
		}
		return kindTyped, hasTick
	}
	if _, ok := fields["webcamDevices"]; ok {
		return kindWebcamList, hasTick
	}
	if hasTick {
		return kindTick, true
	}
	if _, ok := fields["loaded"]; ok {
		return kindLoaded, false
	}
	if _, ok := fields["lastFrameTime"]; ok {
		return kindLastFrameTime, false
	}
	return kindRelay, false
}

// routeText dispatches one inbound text message. Every recognized message
// class except keepalive doubles as the backpressure acknowledgment that
// clears Busy; unrecognized messages are relayed verbatim to the other
// connected peers so one browser's output can be mirrored to others.
func (s *Server) routeText(senderID, msg string) {
	kind, hasTick := classify(msg)
	switch kind {
	case kindKeepalive:
		// Pure liveness ping, handled at the transport level.
		return
	case kindSync:
		if !hasTick {
			return
		}
		s.store.SetTick(msg)
	case kindTyped:
		s.store.SetPredictions(msg)
	case kindWebcamList:
		s.store.SetWebcamList(msg)
	case kindTick:
		s.store.SetTick(msg)
	case kindLoaded:
		s.store.ClearLoading()
	case kindLastFrameTime:
		s.store.SetStatus(msg)
	case kindRelay:
		s.broadcastExcept(senderID, []byte(msg))
		return
	}
	s.flow.Ack()
}
