package domain

import "fmt"

// DuplicateOffset is how far a duplicated node is moved from its original.
const DuplicateOffset = 50

// FlowStats summarises a flow for the editor status bar.
type FlowStats struct {
	TotalBlocks      int `json:"totalBlocks"`
	TotalConnections int `json:"totalConnections"`
}

// Stats counts the nodes and edges of the flow.
func (f Flow) Stats() FlowStats {
	return FlowStats{
		TotalBlocks:      len(f.Nodes),
		TotalConnections: len(f.Edges),
	}
}

// NewNodeID generates an id of the form "<kind>-node-<n>" where n starts at
// one more than the number of nodes of that kind and is bumped until unused.
func (f Flow) NewNodeID(kind NodeKind) string {
	n := 1
	for _, node := range f.Nodes {
		if node.Type == kind {
			n++
		}
	}
	for {
		id := fmt.Sprintf("%s-node-%d", kind, n)
		if _, taken := f.Node(id); !taken {
			return id
		}
		n++
	}
}

// AddNode appends a new node of the given kind at pos and returns the
// updated flow together with the new node. Message and question nodes get
// placeholder text; start nodes get none.
func (f Flow) AddNode(kind NodeKind, pos Position) (Flow, Node) {
	node := Node{
		ID:       f.NewNodeID(kind),
		Type:     kind,
		Position: pos,
	}
	if kind != NodeKindStart {
		node.Data.Text = StringPtr(fmt.Sprintf("Enter your %s...", kind))
	}

	out := f.Clone()
	out.Nodes = append(out.Nodes, node)
	return out, node.Clone()
}

// UpdateNodeData merges the non-nil fields of patch into the data of node id.
// Unknown ids leave the flow unchanged.
func (f Flow) UpdateNodeData(id string, patch NodeDataPatch) Flow {
	out := f.Clone()
	for i := range out.Nodes {
		if out.Nodes[i].ID != id {
			continue
		}
		d := &out.Nodes[i].Data
		if patch.Text != nil {
			d.Text = StringPtr(*patch.Text)
		}
		if patch.InputType != nil {
			d.InputType = *patch.InputType
		}
		if patch.Required != nil {
			d.Required = *patch.Required
		}
		if patch.StoreResponse != nil {
			d.StoreResponse = *patch.StoreResponse
		}
	}
	return out
}

// NodeDataPatch is a partial update of NodeData.
type NodeDataPatch struct {
	Text          *string
	InputType     *InputType
	Required      *bool
	StoreResponse *bool
}

// DuplicateNode copies node id under a fresh id, offset on the canvas.
// Edges are not copied. It returns false if id does not exist.
func (f Flow) DuplicateNode(id string) (Flow, Node, bool) {
	src, ok := f.Node(id)
	if !ok {
		return f, Node{}, false
	}

	dup := src.Clone()
	dup.ID = f.NewNodeID(src.Type)
	dup.Position = Position{
		X: src.Position.X + DuplicateOffset,
		Y: src.Position.Y + DuplicateOffset,
	}

	out := f.Clone()
	out.Nodes = append(out.Nodes, dup)
	return out, dup.Clone(), true
}

// DeleteNode removes node id and every edge that starts or ends at it.
func (f Flow) DeleteNode(id string) Flow {
	out := Flow{
		Nodes: make([]Node, 0, len(f.Nodes)),
		Edges: make([]Edge, 0, len(f.Edges)),
	}
	for _, n := range f.Nodes {
		if n.ID != id {
			out.Nodes = append(out.Nodes, n.Clone())
		}
	}
	for _, e := range f.Edges {
		if e.Source != id && e.Target != id {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// Connect appends an edge from source to target with id "edge-<source>-<target>".
// Handles are optional and only matter to the canvas.
func (f Flow) Connect(source, target, sourceHandle, targetHandle string) (Flow, Edge) {
	edge := Edge{
		ID:           fmt.Sprintf("edge-%s-%s", source, target),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}
	out := f.Clone()
	out.Edges = append(out.Edges, edge)
	return out, edge
}

// Connections lists the edges that touch node id, split by direction.
func (f Flow) Connections(id string) (incoming, outgoing []Edge) {
	for _, e := range f.Edges {
		if e.Target == id {
			incoming = append(incoming, e)
		}
		if e.Source == id {
			outgoing = append(outgoing, e)
		}
	}
	return incoming, outgoing
}
