package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// Mask replaces every redacted value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks answers to sensitive
// questions before they are stored. A question is sensitive when its node id
// matches one of the patterns, or when it asks for an email address. Both the
// stored response and the user's transcript line are masked. Redaction is
// one-way: Load returns what was stored.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) sensitive(flow domain.Flow, nodeID string) bool {
	if nodeID == "" || nodeID == domain.SystemNodeID {
		return false
	}
	for _, p := range m.patterns {
		if p.MatchString(nodeID) {
			return true
		}
	}
	node, ok := flow.Node(nodeID)
	return ok && node.Type == domain.NodeKindQuestion && node.Data.InputType == domain.InputEmail
}

func (m *piiMiddleware) Save(ctx context.Context, session *domain.Session) error {
	// Work on a copy so the caller's session keeps the real answers.
	masked := session.Snapshot()

	for nodeID := range masked.Responses {
		if m.sensitive(masked.Flow, nodeID) {
			masked.Responses[nodeID] = Mask
		}
	}

	// A user line answers the bot line right before it.
	asked := ""
	for i, msg := range masked.Messages {
		if msg.Type == domain.RoleBot {
			asked = msg.NodeID
			continue
		}
		if m.sensitive(masked.Flow, asked) {
			masked.Messages[i].Text = Mask
		}
	}

	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
