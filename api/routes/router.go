package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmadesk/pharmadesk-backend/api/controllers"
	"github.com/pharmadesk/pharmadesk-backend/api/middleware"
	"github.com/pharmadesk/pharmadesk-backend/internal/auth"
	internalpermissions "github.com/pharmadesk/pharmadesk-backend/internal/permissions"
	"github.com/pharmadesk/pharmadesk-backend/internal/staff"
	"github.com/pharmadesk/pharmadesk-backend/pkg/auth/session"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	accessResolver *internalpermissions.Resolver,
	authService auth.Service,
	staffService staff.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(authService, logg))
		r.Post("/refresh", controllers.Refresh(authService, logg))
		r.With(middleware.Auth(cfg.JWT, sessionManager, logg)).Post("/logout", controllers.Logout(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))

		r.Route("/permissions", func(r chi.Router) {
			r.Get("/catalog", controllers.PermissionCatalog(logg))
			r.Get("/me", controllers.MyPermissions(accessResolver, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			manage := middleware.RequireAnyRole(logg, string(enums.StaffRoleOwner), string(enums.StaffRoleManager))

			r.With(manage).Get("/", controllers.StaffList(staffService, logg))
			r.With(manage).Post("/", controllers.StaffInvite(staffService, logg))
			r.Route("/{staffID}", func(r chi.Router) {
				// staff can read their own grant set, so the permissions GET
				// skips the role gate and relies on the service check
				r.Get("/permissions", controllers.StaffPermissionsGet(staffService, logg))

				r.Group(func(r chi.Router) {
					r.Use(manage)
					r.Get("/", controllers.StaffGet(staffService, logg))
					r.Patch("/role", controllers.StaffUpdateRole(staffService, logg))
					r.Patch("/branch", controllers.StaffUpdateBranch(staffService, logg))
					r.Patch("/active", controllers.StaffToggleActive(staffService, logg))
					r.Put("/permissions", controllers.StaffPermissionsUpdate(staffService, logg))
					r.Post("/reset-password", controllers.StaffResetPassword(staffService, logg))
				})
			})
		})
	})

	return r
}
