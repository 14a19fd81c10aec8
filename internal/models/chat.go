package models

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RelayRequest is the payload accepted by the relay proxy.
type RelayRequest struct {
	Messages []Message `json:"messages"`
}

// RelayResponse is the proxy's success body.
type RelayResponse struct {
	Response string `json:"response"`
}

// RelayError is the proxy's failure body.
type RelayError struct {
	Error string `json:"error"`
}

// SubmitRequest is the payload for posting a user turn to a session.
type SubmitRequest struct {
	Text string `json:"text"`
}

// OptionRequest is the payload sent when a topic chip is selected.
type OptionRequest struct {
	Label string `json:"label"`
}
