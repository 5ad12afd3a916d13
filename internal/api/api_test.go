package api

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/fathima-sithara/tours-service/internal/auth"
	"github.com/fathima-sithara/tours-service/internal/config"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/mail"
	"github.com/fathima-sithara/tours-service/internal/repository"
	"github.com/fathima-sithara/tours-service/internal/service"
)

// memUserRepo is the minimal in-memory credential store the handler tests
// drive the real services against.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (f *memUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users[u.ID.Hex()] = &cp
	return nil
}

func (f *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *memUserRepo) FindByResetToken(_ context.Context, hash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PasswordResetToken == hash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(time.Now()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *memUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.Hex()]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Password = hash
	t := changedAt.UTC()
	u.PasswordChangedAt = &t
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return nil
}

func (f *memUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.Hex()]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordResetToken = hash
	e := expires
	u.PasswordResetExpires = &e
	return nil
}

func (f *memUserRepo) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id.Hex()]; ok {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	}
	return nil
}

func (f *memUserRepo) List(_ context.Context, _ bson.M, _ *options.FindOptions) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *memUserRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

// setRole promotes a stored user for role-gate tests.
func (f *memUserRepo) setRole(id primitive.ObjectID, role domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id.Hex()]; ok {
		u.Role = role
	}
}

// memTourRepo serves a static tour list and records what the pipeline built.
type memTourRepo struct {
	repository.TourRepository

	total      int64
	tours      []domain.Tour
	lastFilter bson.M
	lastOpts   *options.FindOptions
}

func (f *memTourRepo) List(_ context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Tour, error) {
	f.lastFilter = filter
	f.lastOpts = opts
	return f.tours, nil
}

func (f *memTourRepo) Count(context.Context) (int64, error) { return f.total, nil }

func (f *memTourRepo) GetByID(_ context.Context, id string) (*domain.Tour, error) {
	for i := range f.tours {
		if f.tours[i].ID.Hex() == id {
			return &f.tours[i], nil
		}
	}
	return nil, repository.ErrTourNotFound
}

type nopMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *nopMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

var _ mail.Mailer = (*nopMailer)(nil)

// newTestApp wires the real server with in-memory repositories, restricted
// (production) error mode.
func newTestApp(tourRepo *memTourRepo) (*fiber.App, *memUserRepo, *nopMailer, *service.AuthService) {
	cfg := &config.Config{}
	cfg.App.Env = "production"
	cfg.App.RateLimitPerMin = 1000
	cfg.JWT.CookieExpiry = time.Hour

	userRepo := newMemUserRepo()
	mailer := &nopMailer{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	log := zap.NewNop().Sugar()

	authSvc := service.NewAuthService(userRepo, tokens, mailer, nil, log)
	tourSvc := service.NewTourService(tourRepo, nil)
	userSvc := service.NewUserService(userRepo)

	app := NewServer(cfg, log, authSvc, tourSvc, userSvc, nil)
	return app, userRepo, mailer, authSvc
}
