package render

import "mentor-chat/internal/conversation"

// SessionView is a session snapshot plus the display model of every turn.
type SessionView struct {
	conversation.Snapshot
	Documents []Document `json:"documents"`
}

func Session(snap conversation.Snapshot) SessionView {
	return SessionView{Snapshot: snap, Documents: Messages(snap.Messages)}
}
