package identity

import (
	"context"
	"net/http"

	"github.com/chaintrack/chaintrack/internal/fault"
)

type Role string

const (
	RoleManufacturer Role = "MANUFACTURER"
	RoleSeller       Role = "SELLER"
	RoleBuyer        Role = "BUYER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleManufacturer, RoleSeller, RoleBuyer:
		return true
	}
	return false
}

// Principal is whoever the upstream identity provider says is calling.
// This service trusts the gateway headers; authentication itself lives outside.
type Principal struct {
	UserID string
	Role   Role
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Require returns the principal or an authorization failure when the caller's
// role does not match any of the allowed ones.
func Require(ctx context.Context, roles ...Role) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, fault.Authorization("no identity on request")
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return Principal{}, fault.Authorization("role %s may not perform this operation", p.Role)
}

// Middleware lifts X-User-Id / X-User-Role headers into the request context.
// Requests without identity still pass through; operations that need one fail
// later via Require.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-Id")
		role := Role(r.Header.Get("X-User-Role"))
		if uid != "" && role.Valid() {
			r = r.WithContext(WithPrincipal(r.Context(), Principal{UserID: uid, Role: role}))
		}
		next.ServeHTTP(w, r)
	})
}
