package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type permissionResolver interface {
	Resolve(ctx context.Context, userID, pharmacyID uuid.UUID) internalpermissions.Access
}

// RequirePermission gates a route on the caller's effective permission set.
// Runs after Auth; requests without an identity or an active pharmacy are
// rejected before the resolver is consulted.
func RequirePermission(resolver permissionResolver, key pkgpermissions.Key, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := uuid.Parse(UserIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			pharmacyID, err := uuid.Parse(PharmacyIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "active pharmacy required"))
				return
			}

			access := resolver.Resolve(r.Context(), userID, pharmacyID)
			if !access.HasPermission(key) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "permission denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
