package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/erandesamadhan2003/autopost-backend/api/responses"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
)

// UserIDHeader names the header carrying the caller's user id. Identity is
// asserted by the gateway in front of this service.
const UserIDHeader = "X-User-Id"

// Owner reads the caller's user id and seeds the request context with it.
func Owner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user id"))
				return
			}
			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user id"))
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
