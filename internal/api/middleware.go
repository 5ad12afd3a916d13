package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/metrics"
	"github.com/fathima-sithara/tours-service/internal/service"
)

const localsUserKey = "currentUser"

// Protect verifies the bearer token and stores the authenticated subject in
// the request context for downstream handlers.
func Protect(authSvc *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			metrics.AuthFailuresTotal.Inc()
			return apperror.Unauthorized("you are not logged in; please log in to get access")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			metrics.AuthFailuresTotal.Inc()
			return apperror.Unauthorized("authorization header format must be Bearer {token}")
		}

		user, err := authSvc.Verify(c.Context(), parts[1])
		if err != nil {
			metrics.AuthFailuresTotal.Inc()
			return err
		}
		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// RestrictTo gates a protected route by role. It must run after Protect.
func RestrictTo(authSvc *service.AuthService, roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperror.Unauthorized("you are not logged in; please log in to get access")
		}
		if err := authSvc.Authorize(user, roles...); err != nil {
			return err
		}
		return c.Next()
	}
}

// CurrentUser returns the subject Protect stored, or nil on public routes.
func CurrentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(localsUserKey).(*domain.User)
	return user
}

// windowStore is the counter backend of the rate limiter; redis in
// production.
type windowStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration)
}

type redisWindow struct {
	rdb *redis.Client
}

func (w redisWindow) Incr(ctx context.Context, key string) (int64, error) {
	return w.rdb.Incr(ctx, key).Result()
}

func (w redisWindow) Expire(ctx context.Context, key string, ttl time.Duration) {
	w.rdb.Expire(ctx, key, ttl)
}

// RateLimiter is a fixed-window per-key limiter backed by redis. A nil redis
// client disables it, so development works without the dependency running.
type RateLimiter struct {
	store  windowStore
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	var store windowStore
	if rdb != nil {
		store = redisWindow{rdb: rdb}
	}
	return &RateLimiter{store: store, prefix: prefix, limit: limit, window: window}
}

func (r *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil || r.store == nil {
			return c.Next()
		}
		key := fmt.Sprintf("%s:%s", r.prefix, c.IP())
		count, err := r.store.Incr(c.Context(), key)
		if err != nil {
			// The limiter is best effort: a broken redis must not take the
			// login path down with it.
			return c.Next()
		}
		if count == 1 {
			r.store.Expire(c.Context(), key, r.window)
		}
		if count > int64(r.limit) {
			return apperror.New(fiber.StatusTooManyRequests, "too many requests; please try again later")
		}
		return c.Next()
	}
}

// Observe records per-route request counts for Prometheus.
func Observe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				status = appErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}
