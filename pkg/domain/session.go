package domain

// SessionStatus defines the current mode of a simulated conversation.
type SessionStatus string

const (
	StatusIdle          SessionStatus = "idle"           // Nothing to run (no start node)
	StatusRunning       SessionStatus = "running"        // Walking nodes that need no input
	StatusAwaitingInput SessionStatus = "awaiting_input" // Suspended on a question
	StatusCompleted     SessionStatus = "completed"      // Sink state reached
)

// HaltReason explains a completion that did not come from the end of the flow.
type HaltReason string

const (
	HaltNone           HaltReason = ""
	HaltDanglingEdge   HaltReason = "dangling_edge"
	HaltTraversalLimit HaltReason = "traversal_limit_exceeded"
)

// Session is the snapshot of one simulated conversation.
// It carries the flow it runs against, so it can be persisted and resumed
// without consulting the flow store again.
type Session struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	CurrentNodeID string        `json:"currentNodeId,omitempty"`
	Flow          Flow          `json:"flow"`
	Messages      []ChatMessage `json:"messages"`

	// Responses holds answers to questions flagged storeResponse, by node id.
	Responses map[string]string `json:"responses"`

	// Steps counts node executions over the whole session.
	Steps int `json:"steps"`

	Halt HaltReason `json:"halt,omitempty"`
}

// NewSession creates an idle session bound to a flow snapshot.
func NewSession(id string, flow Flow) *Session {
	return &Session{
		ID:        id,
		Status:    StatusIdle,
		Flow:      flow.Clone(),
		Messages:  []ChatMessage{},
		Responses: make(map[string]string),
	}
}

// Snapshot returns a deep copy of the session safe for independent mutation.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	next := *s
	next.Flow = s.Flow.Clone()
	next.Messages = make([]ChatMessage, len(s.Messages))
	copy(next.Messages, s.Messages)
	next.Responses = make(map[string]string, len(s.Responses))
	for k, v := range s.Responses {
		next.Responses[k] = v
	}
	return &next
}

// Awaiting reports whether the session is suspended on a question.
func (s *Session) Awaiting() bool {
	return s != nil && s.Status == StatusAwaitingInput
}

// Done reports whether the session reached a sink state.
func (s *Session) Done() bool {
	return s != nil && s.Status == StatusCompleted
}
