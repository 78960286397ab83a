package rbac

import (
	"net/http"

	"github.com/mind-engage/studycoach/internal/platform/apierr"
)

var defaultChecker = NewChecker(nil)

func forbid(w http.ResponseWriter) { apierr.Write(w, apierr.Forbidden()) }

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(r.Context(), perm) {
				forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				forbid(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOr lets owners through and everyone else only with perm.
// Owners must still hold ownPerm.
func RequireOwnerOr(ownPerm, perm string, isOwner func(r *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if Can(ctx, perm) || (Can(ctx, ownPerm) && isOwner(r)) {
				next.ServeHTTP(w, r)
				return
			}
			forbid(w)
		})
	}
}
