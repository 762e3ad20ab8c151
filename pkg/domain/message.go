package domain

// Role identifies who authored a chat message.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

const (
	// SystemNodeID tags messages that do not come from a flow node.
	SystemNodeID = "system"
	// EndOfConversationText is appended when the flow runs out of edges.
	EndOfConversationText = "Thank you! This conversation has ended."
)

// ChatMessage is one entry of a simulated conversation transcript.
type ChatMessage struct {
	ID     string `json:"id" yaml:"id"`
	Type   Role   `json:"type" yaml:"type"`
	Text   string `json:"text" yaml:"text"`
	NodeID string `json:"nodeId,omitempty" yaml:"nodeId,omitempty"`
}
