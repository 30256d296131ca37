package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/warp/leave-tracker/auth"
	"github.com/warp/leave-tracker/leave"
	"github.com/warp/leave-tracker/store/jsondoc"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFrom returns the token claims of an authenticated request.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// UserLookup resolves the subject of a token to its current record.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*jsondoc.UserView, error)
}

// RequireRole rejects requests without a valid bearer token. The token's user
// is looked up on every request: a user that no longer exists is 401, and a
// non-empty role is checked against the stored role, not the one in the
// token. With nil tokens every request passes.
func RequireRole(tokens *auth.Tokens, users UserLookup, role leave.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(ah, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing token", nil)
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(ah, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", nil)
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to resolve user", err)
				return
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "Unknown user", nil)
				return
			}
			if role != "" && user.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden", nil)
				return
			}

			current := *claims
			current.Role = string(user.Role)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, &current)))
		})
	}
}
