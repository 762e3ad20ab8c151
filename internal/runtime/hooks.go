package runtime

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

func (e *Engine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		SessionID: sessionID,
	}
}

func (e *Engine) emitSessionStart(ctx context.Context, s *domain.Session) {
	if e.hooks.OnSessionStart == nil {
		return
	}
	e.hooks.OnSessionStart(ctx, &domain.SessionEvent{
		EventBase: e.base(domain.EventSessionStart, s.ID),
		Status:    s.Status,
	})
}

func (e *Engine) emitNodeEnter(ctx context.Context, s *domain.Session, node domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeEnter, s.ID),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (e *Engine) emitMessage(ctx context.Context, s *domain.Session, msg domain.ChatMessage) {
	if e.hooks.OnMessage == nil {
		return
	}
	e.hooks.OnMessage(ctx, &domain.MessageEvent{
		EventBase: e.base(domain.EventMessage, s.ID),
		Message:   msg,
	})
}

func (e *Engine) emitSessionEnd(ctx context.Context, s *domain.Session) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase: e.base(domain.EventSessionEnd, s.ID),
		Status:    s.Status,
		Halt:      s.Halt,
	})
}
