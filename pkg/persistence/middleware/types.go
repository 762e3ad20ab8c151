// Package middleware decorates a ports.SessionStore with at-rest protection
// for transcripts: AES-GCM envelopes and redaction of sensitive answers.
package middleware

import "github.com/aretw0/botflow/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain wraps store with mws. The first middleware is the outermost, so it
// sees a session first on Save and last on Load.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
