// Package testutils holds flow fixtures shared by tests across packages.
package testutils

import (
	"fmt"

	"github.com/aretw0/botflow/pkg/domain"
)

// Start returns a start node.
func Start(id string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeKindStart}
}

// Message returns a message node with the given text.
func Message(id, text string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeKindMessage, Data: domain.NodeData{Text: domain.StringPtr(text)}}
}

// Question returns a question node with the given text.
func Question(id, text string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeKindQuestion, Data: domain.NodeData{Text: domain.StringPtr(text)}}
}

// Stored marks a question so its answer is kept in the session responses.
func Stored(n domain.Node) domain.Node {
	n.Data.StoreResponse = true
	return n
}

// Edge returns an edge from source to target using the editor id scheme.
func Edge(source, target string) domain.Edge {
	return domain.Edge{ID: fmt.Sprintf("edge-%s-%s", source, target), Source: source, Target: target}
}

// Chain links the nodes in order, each to the next.
func Chain(nodes ...domain.Node) domain.Flow {
	f := domain.Flow{Nodes: nodes, Edges: []domain.Edge{}}
	for i := 1; i < len(nodes); i++ {
		f.Edges = append(f.Edges, Edge(nodes[i-1].ID, nodes[i].ID))
	}
	return f
}

// Greeting is start -> "Welcome!" -> "Hi there" -> "What is your name?" (stored).
func Greeting() domain.Flow {
	return Chain(
		Start("start-node-1"),
		Message("message-node-1", "Welcome!"),
		Message("message-node-2", "Hi there"),
		Stored(Question("question-node-1", "What is your name?")),
	)
}

// Questions chains a start node to n questions with non-empty text.
func Questions(n int) domain.Flow {
	nodes := []domain.Node{Start("start")}
	for i := 1; i <= n; i++ {
		nodes = append(nodes, Question(fmt.Sprintf("q%d", i), fmt.Sprintf("Question %d?", i)))
	}
	return Chain(nodes...)
}
