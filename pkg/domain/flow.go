package domain

// DefaultFlowName is the name given to flows saved without one.
const DefaultFlowName = "Untitled Flow"

// DefaultStartNodeID is the id of the start node in an empty document.
const DefaultStartNodeID = "start-node-1"

// Flow is the aggregate root: the nodes and edges of one conversation design.
// Node order is insertion order and carries no meaning, except that the first
// start node wins when several exist. Edge order decides which successor is
// followed when a node has more than one outgoing edge.
type Flow struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// StoredFlow is a Flow persisted by a FlowStore.
type StoredFlow struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	FlowData Flow   `json:"flowData" yaml:"flowData"`
}

// FlowPatch is a partial update of a StoredFlow. Nil fields are left untouched.
type FlowPatch struct {
	Name     *string
	FlowData *Flow
}

// Apply returns a copy of sf with the patch merged in. The id never changes.
func (p FlowPatch) Apply(sf StoredFlow) StoredFlow {
	out := sf.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.FlowData != nil {
		out.FlowData = p.FlowData.Clone()
	}
	return out
}

// DefaultFlow returns the document served when nothing has been saved yet:
// a single start node and no edges.
func DefaultFlow() Flow {
	return Flow{
		Nodes: []Node{
			{
				ID:       DefaultStartNodeID,
				Type:     NodeKindStart,
				Position: Position{X: 100, Y: 50},
			},
		},
		Edges: []Edge{},
	}
}

// StartNode returns the first node of kind start, in insertion order.
func (f Flow) StartNode() (Node, bool) {
	for _, n := range f.Nodes {
		if n.Type == NodeKindStart {
			return n, true
		}
	}
	return Node{}, false
}

// Node looks up a node by id.
func (f Flow) Node(id string) (Node, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NextEdge returns the effective outgoing edge of a node: the first edge,
// in insertion order, whose source is nodeID.
func (f Flow) NextEdge(nodeID string) (Edge, bool) {
	for _, e := range f.Edges {
		if e.Source == nodeID {
			return e, true
		}
	}
	return Edge{}, false
}

// Clone returns a deep copy of the flow.
func (f Flow) Clone() Flow {
	out := Flow{}
	if f.Nodes != nil {
		out.Nodes = make([]Node, len(f.Nodes))
		for i, n := range f.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if f.Edges != nil {
		out.Edges = make([]Edge, len(f.Edges))
		copy(out.Edges, f.Edges)
	}
	return out
}

// Clone returns a deep copy of the stored flow.
func (sf StoredFlow) Clone() StoredFlow {
	out := sf
	out.FlowData = sf.FlowData.Clone()
	return out
}
