package dsl

import "github.com/aretw0/botflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Start marks the node as the entry point of the flow.
func (n *NodeBuilder) Start() *NodeBuilder {
	n.node.Type = domain.NodeKindStart
	n.node.Data.Text = nil
	return n
}

// Message sets the content of the node and marks it as a message node.
func (n *NodeBuilder) Message(text string) *NodeBuilder {
	n.node.Type = domain.NodeKindMessage
	n.node.Data.Text = domain.StringPtr(text)
	return n
}

// Question sets the content of the node and marks it as a question node,
// where the conversation waits for an answer.
func (n *NodeBuilder) Question(text string) *NodeBuilder {
	n.node.Type = domain.NodeKindQuestion
	n.node.Data.Text = domain.StringPtr(text)
	return n
}

// Input sets the kind of answer a question expects.
func (n *NodeBuilder) Input(inputType domain.InputType) *NodeBuilder {
	n.node.Data.InputType = inputType
	return n
}

// Required flags the question as required in the editor.
func (n *NodeBuilder) Required() *NodeBuilder {
	n.node.Data.Required = true
	return n
}

// Store keeps the answer in the session responses.
func (n *NodeBuilder) Store() *NodeBuilder {
	n.node.Data.StoreResponse = true
	return n
}

// At places the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Go adds an edge to the target node. Only the first edge of a node is
// followed at run time.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target)
	return n
}

// Then connects this node to target and returns the target's builder, so a
// linear flow reads as one chain.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.Go(target)
	return n.builder.Add(target)
}

// Terminal removes every outgoing edge: the conversation ends after this node.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.builder.disconnect(n.node.ID)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
