package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/events"
	"github.com/fathima-sithara/tours-service/internal/query"
	"github.com/fathima-sithara/tours-service/internal/repository"
)

type TourService struct {
	tours repository.TourRepository
	pub   *events.Publisher
}

func NewTourService(tours repository.TourRepository, pub *events.Publisher) *TourService {
	return &TourService{tours: tours, pub: pub}
}

// List runs the query-feature pipeline over the raw parameters and executes
// the resulting bounded query.
func (s *TourService) List(ctx context.Context, params map[string]string) ([]domain.Tour, error) {
	filter, opts, err := query.Build(ctx, params, s.tours.Count)
	if err != nil {
		return nil, err
	}
	return s.tours.List(ctx, filter, opts)
}

func (s *TourService) Get(ctx context.Context, id string) (*domain.Tour, error) {
	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrTourNotFound {
			return nil, apperror.NotFound("there is no tour with that id")
		}
		return nil, err
	}
	return tour, nil
}

func (s *TourService) Create(ctx context.Context, tour *domain.Tour) error {
	if tour.Name == "" {
		return apperror.BadRequest("a tour must have a name")
	}
	if tour.Price < 0 {
		return apperror.BadRequest("a tour price cannot be negative")
	}
	if err := s.tours.Create(ctx, tour); err != nil {
		return apperror.Internal("could not create tour", err)
	}
	s.pub.Publish(ctx, events.TypeTourCreated, map[string]string{"id": tour.ID.Hex(), "name": tour.Name})
	return nil
}

func (s *TourService) Update(ctx context.Context, id string, set bson.M) (*domain.Tour, error) {
	if len(set) == 0 {
		return nil, apperror.BadRequest("no fields to update")
	}
	tour, err := s.tours.UpdateByID(ctx, id, set)
	if err != nil {
		if err == repository.ErrTourNotFound {
			return nil, apperror.NotFound("there is no tour with that id")
		}
		return nil, err
	}
	return tour, nil
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	if err := s.tours.DeleteByID(ctx, id); err != nil {
		if err == repository.ErrTourNotFound {
			return apperror.NotFound("there is no tour with that id")
		}
		return err
	}
	return nil
}

func (s *TourService) Stats(ctx context.Context) ([]domain.TourStats, error) {
	return s.tours.Stats(ctx)
}

func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	if year < 1000 || year > 9999 {
		return nil, apperror.BadRequest("invalid year %d", year)
	}
	return s.tours.MonthlyPlan(ctx, year)
}
