package middleware

import (
	"context"
	"net/http"

	"hrleave/internal/requestctx"
	"hrleave/internal/transport/http/api"
)

// PermissionStore answers whether a role grants a permission.
type PermissionStore interface {
	HasPermission(ctx context.Context, roleName, permission string) (bool, error)
}

// Allowed reports whether the authenticated user holds permission. Store
// errors are logged and count as a denial.
func Allowed(r *http.Request, store PermissionStore, permission string) bool {
	user, ok := GetUser(r.Context())
	if !ok || store == nil {
		return false
	}
	granted, err := store.HasPermission(r.Context(), user.RoleName, permission)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("permission lookup failed", "role", user.RoleName, "permission", permission, "err", err)
		return false
	}
	return granted
}

// RequirePermission answers 401 without a user, 500 when the store fails and
// 403 when the user's role lacks permission.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}

			granted, err := store.HasPermission(r.Context(), user.RoleName, permission)
			switch {
			case err != nil:
				requestctx.Logger(r.Context()).Error("permission lookup failed", "role", user.RoleName, "permission", permission, "err", err)
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
			case !granted:
				api.Fail(w, http.StatusForbidden, "forbidden", "missing permission "+permission, requestID)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
