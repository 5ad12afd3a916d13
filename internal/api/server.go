package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/config"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/service"
)

// NewServer wires middleware, routes and the error normalizer into a fiber
// app. rdb may be nil, which disables rate limiting.
func NewServer(cfg *config.Config, log *zap.SugaredLogger, authSvc *service.AuthService, tourSvc *service.TourService, userSvc *service.UserService, rdb *redis.Client) *fiber.App {
	development := cfg.App.Development()

	app := fiber.New(fiber.Config{
		AppName:      "tours-service",
		ErrorHandler: NewErrorHandler(log, development),
	})

	app.Use(requestid.New())
	if development {
		app.Use(fiberlogger.New())
	}
	app.Use(Observe())

	auth := &authHandler{svc: authSvc, cookieExpiry: cfg.JWT.CookieExpiry, development: development}
	tours := &tourHandler{svc: tourSvc}
	users := &userHandler{svc: userSvc}

	protect := Protect(authSvc)
	staffOnly := RestrictTo(authSvc, domain.RoleAdmin, domain.RoleLeadGuide)
	adminOnly := RestrictTo(authSvc, domain.RoleAdmin)

	// Credential endpoints share one limiter window per client IP.
	authLimit := NewRateLimiter(rdb, "rl:auth", cfg.App.RateLimitPerMin, time.Minute).Middleware()

	v1 := app.Group("/api/v1")

	u := v1.Group("/users")
	u.Post("/signup", authLimit, auth.signup)
	u.Post("/login", authLimit, auth.login)
	u.Post("/forgotPassword", authLimit, auth.forgotPassword)
	u.Patch("/resetPassword/:token", authLimit, auth.resetPassword)
	u.Patch("/updateMyPassword", protect, auth.updateMyPassword)
	u.Get("/me", protect, users.me)
	u.Get("/", protect, adminOnly, users.list)

	tr := v1.Group("/tours")
	tr.Get("/top-5-cheap", tours.aliasTopTours, tours.list)
	tr.Get("/stats", tours.stats)
	tr.Get("/monthly-plan/:year", protect, staffOnly, tours.monthlyPlan)
	tr.Get("/", tours.list)
	tr.Post("/", protect, staffOnly, tours.create)
	tr.Get("/:id", tours.get)
	tr.Patch("/:id", protect, staffOnly, tours.update)
	tr.Delete("/:id", protect, staffOnly, tours.delete)

	// Unmatched routes get the uniform envelope.
	app.Use(func(c *fiber.Ctx) error {
		return apperror.NotFound("can't find %s on this server", c.OriginalURL())
	})

	return app
}
