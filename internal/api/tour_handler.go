package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/service"
)

type tourHandler struct {
	svc *service.TourService
}

// aliasTopTours presets the listing parameters for the top-5-cheap route and
// falls through to the normal list handler.
func (h *tourHandler) aliasTopTours(c *fiber.Ctx) error {
	args := c.Request().URI().QueryArgs()
	args.Set("limit", "5")
	args.Set("sort", "-ratingsAverage,price")
	args.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return c.Next()
}

func (h *tourHandler) list(c *fiber.Ctx) error {
	tours, err := h.svc.List(c.Context(), c.Queries())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"results": len(tours),
		"data":    fiber.Map{"tours": tours},
	})
}

func (h *tourHandler) get(c *fiber.Ctx) error {
	tour, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"tour": tour},
	})
}

type createTourInput struct {
	Name            string      `json:"name"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"max_group_size"`
	Difficulty      string      `json:"difficulty"`
	RatingsAverage  float64     `json:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity"`
	Price           float64     `json:"price"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description"`
	StartDates      []time.Time `json:"start_dates"`
}

func (h *tourHandler) create(c *fiber.Ctx) error {
	var in createTourInput
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	tour := &domain.Tour{
		Name:            in.Name,
		Duration:        in.Duration,
		MaxGroupSize:    in.MaxGroupSize,
		Difficulty:      in.Difficulty,
		RatingsAverage:  in.RatingsAverage,
		RatingsQuantity: in.RatingsQuantity,
		Price:           in.Price,
		Summary:         in.Summary,
		Description:     in.Description,
		StartDates:      in.StartDates,
	}
	if err := h.svc.Create(c.Context(), tour); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"tour": tour},
	})
}

// updateTourInput allows partial updates; absent fields stay untouched.
type updateTourInput struct {
	Name            *string      `json:"name"`
	Duration        *int         `json:"duration"`
	MaxGroupSize    *int         `json:"max_group_size"`
	Difficulty      *string      `json:"difficulty"`
	RatingsAverage  *float64     `json:"ratings_average"`
	RatingsQuantity *int         `json:"ratings_quantity"`
	Price           *float64     `json:"price"`
	Summary         *string      `json:"summary"`
	Description     *string      `json:"description"`
	StartDates      *[]time.Time `json:"start_dates"`
}

func (in *updateTourInput) set() bson.M {
	set := bson.M{}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Duration != nil {
		set["duration"] = *in.Duration
	}
	if in.MaxGroupSize != nil {
		set["maxGroupSize"] = *in.MaxGroupSize
	}
	if in.Difficulty != nil {
		set["difficulty"] = *in.Difficulty
	}
	if in.RatingsAverage != nil {
		set["ratingsAverage"] = *in.RatingsAverage
	}
	if in.RatingsQuantity != nil {
		set["ratingsQuantity"] = *in.RatingsQuantity
	}
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.Summary != nil {
		set["summary"] = *in.Summary
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.StartDates != nil {
		set["startDates"] = *in.StartDates
	}
	return set
}

func (h *tourHandler) update(c *fiber.Ctx) error {
	var in updateTourInput
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	tour, err := h.svc.Update(c.Context(), c.Params("id"), in.set())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"tour": tour},
	})
}

func (h *tourHandler) delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *tourHandler) stats(c *fiber.Ctx) error {
	stats, err := h.svc.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"stats": stats},
	})
}

func (h *tourHandler) monthlyPlan(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return apperror.BadRequest("invalid year %q", c.Params("year"))
	}
	plan, err := h.svc.MonthlyPlan(c.Context(), year)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"plan": plan},
	})
}
