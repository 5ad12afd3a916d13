package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/repository"
)

// fakeUserRepo is an in-memory credential store with the same observable
// behavior as the mongo adapter: unique emails, one-shot reset tokens and an
// unexpired-window reset lookup.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by hex id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	f.users[u.ID.Hex()] = &cp
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
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

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PasswordResetToken == tokenHash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(time.Now()) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
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

func (f *fakeUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.Hex()]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordResetToken = tokenHash
	e := expires
	u.PasswordResetExpires = &e
	return nil
}

func (f *fakeUserRepo) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id.Hex()]; ok {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	}
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, _ bson.M, _ *options.FindOptions) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

// mutate runs fn on the stored record, for tests that need to age tokens or
// password-change stamps.
func (f *fakeUserRepo) mutate(id primitive.ObjectID, fn func(*domain.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id.Hex()]; ok {
		fn(u)
	}
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// fakeTourRepo records the filter and options the pipeline produced.
type fakeTourRepo struct {
	repository.TourRepository

	total      int64
	lastFilter bson.M
	lastOpts   *options.FindOptions
	result     []domain.Tour
}

func (f *fakeTourRepo) List(_ context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Tour, error) {
	f.lastFilter = filter
	f.lastOpts = opts
	return f.result, nil
}

func (f *fakeTourRepo) Count(context.Context) (int64, error) {
	return f.total, nil
}
