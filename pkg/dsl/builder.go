package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/botflow/pkg/domain"
)

var (
	// ErrUntypedNode is returned by Build for a node whose kind was never set.
	ErrUntypedNode = errors.New("node has no kind")

	// ErrUnknownTarget is returned by Build for an edge to a node that was
	// never added.
	ErrUnknownTarget = errors.New("edge targets an unknown node")
)

// Layout of nodes added without an explicit position: one column, top down.
const (
	layoutX    = 100
	layoutY    = 50
	layoutStep = 150
)

// Builder manages the flow construction.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new flow builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
			Position: domain.Position{
				X: layoutX,
				Y: float64(layoutY + layoutStep*len(b.order)),
			},
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

func (b *Builder) connect(source, target string) {
	b.edges = append(b.edges, domain.Edge{
		ID:     fmt.Sprintf("edge-%s-%s", source, target),
		Source: source,
		Target: target,
	})
}

func (b *Builder) disconnect(source string) {
	kept := b.edges[:0]
	for _, e := range b.edges {
		if e.Source != source {
			kept = append(kept, e)
		}
	}
	b.edges = kept
}

// Build compiles the declared nodes and edges into a Flow.
func (b *Builder) Build() (domain.Flow, error) {
	flow := domain.Flow{
		Nodes: make([]domain.Node, 0, len(b.order)),
		Edges: make([]domain.Edge, 0, len(b.edges)),
	}

	for _, id := range b.order {
		node := b.nodes[id].node
		if node.Type == "" {
			return domain.Flow{}, fmt.Errorf("%w: %s", ErrUntypedNode, id)
		}
		flow.Nodes = append(flow.Nodes, node.Clone())
	}
	for _, e := range b.edges {
		if _, ok := b.nodes[e.Target]; !ok {
			return domain.Flow{}, fmt.Errorf("%w: %s -> %s", ErrUnknownTarget, e.Source, e.Target)
		}
		flow.Edges = append(flow.Edges, e)
	}
	return flow, nil
}
