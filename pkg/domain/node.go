package domain

// NodeKind defines the control flow behavior of a node.
type NodeKind string

const (
	// NodeKindStart is the entry point of a flow. It shows nothing and continues immediately.
	NodeKindStart NodeKind = "start"
	// NodeKindMessage shows its text and continues immediately (soft step).
	NodeKindMessage NodeKind = "message"
	// NodeKindQuestion shows its text and halts waiting for input (hard step).
	NodeKindQuestion NodeKind = "question"
)

// InputType describes what kind of answer a question expects.
type InputType string

const (
	InputText   InputType = "text"
	InputNumber InputType = "number"
	InputEmail  InputType = "email"
)

// Position is the canvas coordinate of a node. It has no effect on execution.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData holds the editable properties of a node.
//
// Text is a pointer so that a start node without any text survives a round
// trip distinct from a message whose text was cleared to "".
type NodeData struct {
	Text          *string   `json:"text,omitempty" yaml:"text,omitempty"`
	InputType     InputType `json:"inputType,omitempty" yaml:"inputType,omitempty"`
	Required      bool      `json:"required,omitempty" yaml:"required,omitempty"`
	StoreResponse bool      `json:"storeResponse,omitempty" yaml:"storeResponse,omitempty"`
}

// Node represents a single step in a conversation flow.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeKind `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// Text returns the node text, or "" when none is set.
func (n Node) Text() string {
	if n.Data.Text == nil {
		return ""
	}
	return *n.Data.Text
}

// HasText reports whether the node has text to show to the end user.
func (n Node) HasText() bool {
	return n.Text() != ""
}

// EffectiveInputType returns the configured input type, defaulting to text.
func (n Node) EffectiveInputType() InputType {
	if n.Data.InputType == "" {
		return InputText
	}
	return n.Data.InputType
}

// Clone returns a copy that shares no pointers with n.
func (n Node) Clone() Node {
	c := n
	if n.Data.Text != nil {
		c.Data.Text = StringPtr(*n.Data.Text)
	}
	return c
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
