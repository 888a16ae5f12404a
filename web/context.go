package web

import (
	"context"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/domain/session"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	sessionKey  ctxKey = "session"
)

// withIdentity adds the API key identity to the context.
func withIdentity(ctx context.Context, id apikey.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// getIdentity retrieves the API key identity from context.
func getIdentity(ctx context.Context) (apikey.Identity, bool) {
	id, ok := ctx.Value(identityKey).(apikey.Identity)
	return id, ok
}

// withSession adds the dashboard session to the context.
func withSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// getSession retrieves the dashboard session from context.
func getSession(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}
