package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/fathima-sithara/tours-service/internal/apperror"
)

// NewErrorHandler is the single place every failure funnels through. In
// development the full error detail is returned; in production only
// operational errors expose their message and everything else is flattened
// to a generic one and logged.
func NewErrorHandler(log *zap.SugaredLogger, development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := translate(err)

		if development {
			return c.Status(appErr.Code).JSON(fiber.Map{
				"status":  appErr.Status(),
				"message": appErr.Message,
				"error":   err.Error(),
			})
		}

		if !appErr.Operational {
			log.Errorw("unexpected error",
				"method", c.Method(),
				"path", c.OriginalURL(),
				"err", err,
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "something went very wrong",
			})
		}

		return c.Status(appErr.Code).JSON(fiber.Map{
			"status":  appErr.Status(),
			"message": appErr.Message,
		})
	}
}

// translate maps heterogeneous failure signals onto the operational taxonomy.
func translate(err error) *apperror.Error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apperror.New(fiberErr.Code, fiberErr.Message)
	}

	if mongo.IsDuplicateKeyError(err) {
		return apperror.BadRequest("duplicate field value; please use another value")
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperror.NotFound("resource not found")
	}

	return apperror.Internal("internal error", err)
}
