package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

const identityKey key = 1

// Identity is the verified caller resolved by the upstream auth layer. The
// gateway strips and re-sets these headers on every request, so their
// presence here means they have already been authenticated.
type Identity struct {
	UserID   string
	TenantID string
	Admin    bool
}

// CanAccess reports whether the identity may touch a record owned by the
// given tenant. Admins bypass tenant scoping.
func (i Identity) CanAccess(tenantID string) bool {
	return i.Admin || (i.TenantID != "" && i.TenantID == tenantID)
}

// RequireIdentity rejects requests that arrive without a resolved tenant.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID:   r.Header.Get("X-User-ID"),
			TenantID: r.Header.Get("X-Tenant-ID"),
			Admin:    r.Header.Get("X-Admin") == "true",
		}
		if id.TenantID == "" && !id.Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"code":    "UNAUTHENTICATED",
					"message": "missing tenant identity",
				},
				"correlationId": GetCorrelationID(r.Context()),
			})
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom returns the caller identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity injects an identity directly; used by workers and tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
