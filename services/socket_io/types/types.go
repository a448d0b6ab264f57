package socketio_types

import (
	"Garito/services/rooms"

	"github.com/zishang520/socket.io/v2/socket"
)

// SocketServer is a struct that contains the socket.io server and the
// connection registry every authenticated socket is registered into.
type SocketServer struct {
	Sio_server *socket.Server
	Registry   *rooms.Registry
}

func NewSocketServer(registry *rooms.Registry) *SocketServer {
	return &SocketServer{Registry: registry}
}

// SocketSession adapts one socket.io client to the engine's Session
// interface so the registry can track it.
type SocketSession struct {
	Client *socket.Socket
}

func (s *SocketSession) ID() string {
	return string(s.Client.Id())
}

func (s *SocketSession) Emit(event string, payload map[string]interface{}) {
	s.Client.Emit(event, payload)
}

// EmitToUser delivers an event to every live session of an identity.
func (srv *SocketServer) EmitToUser(username string, event string, payload map[string]interface{}) {
	for _, session := range srv.Registry.SessionsFor(username) {
		session.Emit(event, payload)
	}
}

// EventSink bridges room engine events onto socket.io. The recipients are
// already resolved by the room actor; delivery here is fire-and-forget.
func (srv *SocketServer) EventSink() rooms.Sink {
	return func(roomID string, ev rooms.Event) {
		if ev.Payload == nil {
			ev.Payload = map[string]interface{}{}
		}
		ev.Payload["room_id"] = roomID
		for _, username := range ev.Recipients {
			srv.EmitToUser(username, ev.Name, ev.Payload)
		}
	}
}
