package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// maxLabelRunes truncates long block texts in diagram labels.
const maxLabelRunes = 40

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSession marks the nodes that produced transcript lines as
// visited and the node the session stopped on as current.
func OverlayFromSession(s *domain.Session) *GraphOverlay {
	if s == nil {
		return nil
	}
	overlay := &GraphOverlay{CurrentNode: s.CurrentNodeID}
	for _, m := range s.Messages {
		if m.NodeID != "" && m.NodeID != domain.SystemNodeID {
			overlay.VisitedNodes = append(overlay.VisitedNodes, m.NodeID)
		}
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart for a flow.
// It applies semantic styling:
// - Start: ((Circle))
// - Question: [/Parallelogram/]
// - Message: [Rectangle]
// Only the first outgoing edge of a block is followed at run time; any other
// edge from the same block is drawn dotted.
func GenerateMermaid(flow domain.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range flow.Nodes {
		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeKindStart:
			opener, closer = "((", "))"
		case domain.NodeKindQuestion:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, label(node), closer)
	}

	followed := make(map[string]bool)
	for _, e := range flow.Edges {
		arrow := "-->"
		if followed[e.Source] {
			arrow = "-.->"
		}
		followed[e.Source] = true
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// label is the block text, or its ID when it has none.
func label(node domain.Node) string {
	text := node.Text()
	if text == "" {
		text = node.ID
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxLabelRunes {
		text = string(r[:maxLabelRunes-1]) + "…"
	}
	return strings.ReplaceAll(text, "\"", "#quot;")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
