package websocket

import (
	"mentor-chat/internal/conversation"
	"mentor-chat/internal/models"
	"mentor-chat/internal/render"
)

const TypeSessionState = "session_state"

// NewStateMessage wraps a rendered snapshot for the wire.
func NewStateMessage(snap conversation.Snapshot) models.WSMessage {
	return models.WSMessage{Type: TypeSessionState, Payload: render.Session(snap)}
}
