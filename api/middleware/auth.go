package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	pkgauth "github.com/pharmadesk/pharmadesk-backend/pkg/auth"
	"github.com/pharmadesk/pharmadesk-backend/pkg/auth/session"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

const ctxClaims contextKey = "access_claims"

// ClaimsFromContext returns the validated access token claims, if any.
func ClaimsFromContext(ctx context.Context) *pkgauth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	if claims, ok := ctx.Value(ctxClaims).(*pkgauth.AccessTokenClaims); ok {
		return claims
	}
	return nil
}

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			ctx = context.WithValue(ctx, ctxClaims, claims)
			if claims.ActivePharmacyID != nil {
				ctx = WithPharmacyID(ctx, claims.ActivePharmacyID.String())
			}

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.ActivePharmacyID != nil {
					fields["pharmacy_id"] = claims.ActivePharmacyID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
