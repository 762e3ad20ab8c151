package domain

// SessionDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string        `json:"current_node_id,omitempty"`
	Status        *SessionStatus `json:"status,omitempty"`

	// Appended holds the transcript lines added since the old snapshot.
	Appended []ChatMessage `json:"appended,omitempty"`

	// Responses contains only added or changed answers.
	Responses map[string]string `json:"responses,omitempty"`

	// Reset is set when the transcript was rewritten (a restart) rather
	// than appended to. Appended then carries the full new transcript.
	Reset bool `json:"reset,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
// It returns nil when nothing changed.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.CurrentNodeID != newSession.CurrentNodeID {
		id := newSession.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if oldSession == nil || oldSession.Status != newSession.Status {
		status := newSession.Status
		diff.Status = &status
	}

	diff.Appended, diff.Reset = diffMessages(oldSession, newSession)
	diff.Responses = diffResponses(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffMessages assumes an append-only transcript; anything else is a reset.
func diffMessages(old, new *Session) ([]ChatMessage, bool) {
	if old == nil {
		if len(new.Messages) == 0 {
			return nil, false
		}
		return new.Messages, false
	}

	if len(new.Messages) < len(old.Messages) {
		return new.Messages, true
	}
	for i := range old.Messages {
		if old.Messages[i] != new.Messages[i] {
			return new.Messages, true
		}
	}
	if len(new.Messages) == len(old.Messages) {
		return nil, false
	}
	return new.Messages[len(old.Messages):], false
}

func diffResponses(old, new *Session) map[string]string {
	delta := make(map[string]string)
	for k, v := range new.Responses {
		if old == nil {
			delta[k] = v
			continue
		}
		if prev, ok := old.Responses[k]; !ok || prev != v {
			delta[k] = v
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		len(d.Appended) == 0 &&
		len(d.Responses) == 0 &&
		!d.Reset
}
