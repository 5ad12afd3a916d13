package service

import (
	"context"

	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/query"
	"github.com/fathima-sithara/tours-service/internal/repository"
)

// UserService covers the admin-facing user listing; everything credential
// related lives on AuthService.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List reuses the same query-feature pipeline the tours listing runs on.
func (s *UserService) List(ctx context.Context, params map[string]string) ([]domain.User, error) {
	filter, opts, err := query.Build(ctx, params, s.users.Count)
	if err != nil {
		return nil, err
	}
	return s.users.List(ctx, filter, opts)
}
