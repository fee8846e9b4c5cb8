package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PharmaDesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency and reports the first batch of
// failures together, so one probe round surfaces all broken backends.
func HealthReady(cfg *config.Config, db, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PharmaDesk-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var errs error
		if db != nil {
			errs = multierr.Append(errs, db.Ping(ctx))
		}
		if cache != nil {
			errs = multierr.Append(errs, cache.Ping(ctx))
		}
		if errs != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "readiness check failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
