package authorization

import "context"

type contextKey string

const contextKeyIdentity contextKey = "authorization.identity"

// Identity is the authenticated caller.
type Identity struct {
	Subject     string
	Role        string
	BuildingIDs BuildingIDs
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKeyIdentity).(Identity)
	return id, ok
}

// SubjectFromContext returns the caller's subject, or "" when anonymous.
func SubjectFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Subject
}
