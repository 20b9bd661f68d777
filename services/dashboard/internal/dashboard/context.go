package dashboard

import (
	"context"

	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
)

type contextKey string

const contextKeySession contextKey = "session"

func withSession(ctx context.Context, sess posapi.Session) context.Context {
	return context.WithValue(ctx, contextKeySession, sess)
}

func getSessionFromContext(ctx context.Context) posapi.Session {
	if sess, ok := ctx.Value(contextKeySession).(posapi.Session); ok {
		return sess
	}
	return posapi.Session{}
}
