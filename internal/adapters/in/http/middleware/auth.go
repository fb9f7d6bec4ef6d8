// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient is an alias so DI can pass *middleware.FirebaseAuthClient.
type FirebaseAuthClient = fbauth.Client

// context key uses a private type to avoid collisions (SA1029).
type ctxKey struct{ name string }

var ctxKeyUID = ctxKey{name: "uid"}

// Auth verifies "Authorization: Bearer <ID_TOKEN>" and stashes the verified
// uid in the request context. Requests without a (valid) token pass through
// unauthenticated; handlers that require identity check UIDFromContext.
type Auth struct {
	FirebaseAuth *FirebaseAuthClient
}

func NewAuth(client *FirebaseAuthClient) *Auth {
	return &Auth{FirebaseAuth: client}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || a == nil || a.FirebaseAuth == nil {
			next.ServeHTTP(w, r)
			return
		}

		decoded, err := a.FirebaseAuth.VerifyIDToken(r.Context(), token)
		if err != nil {
			log.Printf("[auth] WARN: id token verify failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUID, decoded.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UIDFromContext returns the verified Firebase uid, or "".
func UIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUID).(string)
	return v
}

// WithUID stamps a verified uid on ctx (tests and trusted internal callers).
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUID, uid)
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
