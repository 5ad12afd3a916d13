// Package service orchestrates repositories, credentials and delivery into
// the operations the handlers expose.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/auth"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/events"
	"github.com/fathima-sithara/tours-service/internal/mail"
	"github.com/fathima-sithara/tours-service/internal/repository"
)

const resetTokenTTL = 10 * time.Minute

// dummyHash keeps the work done on a failed login independent of whether the
// email exists.
var dummyHash, _ = auth.HashPassword("timing-equalizer")

type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	mailer mail.Mailer
	pub    *events.Publisher
	log    *zap.SugaredLogger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, mailer mail.Mailer, pub *events.Publisher, log *zap.SugaredLogger) *AuthService {
	return &AuthService{users: users, tokens: tokens, mailer: mailer, pub: pub, log: log}
}

type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Register creates a credential record with a hashed password and issues a
// token bound to the new identity. The confirmation is validated and
// discarded before anything touches the store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	if in.Name == "" {
		return nil, "", apperror.BadRequest("please tell us your name")
	}
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return nil, "", apperror.BadRequest("please provide a valid email")
	}
	if err := auth.ValidateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, "", apperror.BadRequest("%s", err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperror.Internal("could not hash password", err)
	}

	user := &domain.User{
		Name:     in.Name,
		Email:    email,
		Role:     domain.RoleUser,
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, "", apperror.BadRequest("email already registered")
		}
		return nil, "", apperror.Internal("could not create user", err)
	}

	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", apperror.Internal("could not sign token", err)
	}

	s.pub.Publish(ctx, events.TypeUserSignedUp, map[string]string{"id": user.ID.Hex(), "email": user.Email})
	return user, token, nil
}

// Login checks credentials and issues a token. A wrong password and an
// unknown email fail identically so the endpoint cannot be used to probe for
// registered addresses.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperror.BadRequest("please provide email and password")
	}

	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if err == repository.ErrUserNotFound {
			auth.CheckPassword(dummyHash, password)
			return nil, "", apperror.Unauthorized("incorrect email or password")
		}
		return nil, "", apperror.Internal("could not look up user", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, "", apperror.Unauthorized("incorrect email or password")
	}

	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", apperror.Internal("could not sign token", err)
	}
	return user, token, nil
}

// Verify resolves a bearer token to its live subject. Tokens issued before
// the subject's last password change are rejected, which invalidates every
// outstanding token on a password change without a revocation list.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if err == auth.ErrTokenExpired {
			return nil, apperror.Unauthorized("your token has expired; please log in again")
		}
		return nil, apperror.Unauthorized("invalid token; please log in again")
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperror.Unauthorized("the user belonging to this token no longer exists")
		}
		return nil, apperror.Internal("could not look up user", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, apperror.Unauthorized("user recently changed password; please log in again")
	}
	return user, nil
}

// RequestPasswordReset issues a one-time reset token and mails it. An unknown
// email is treated as success so the endpoint does not leak which addresses
// exist. Failed delivery rolls the persisted token back.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, resetURLBase string) error {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil
		}
		return apperror.Internal("could not look up user", err)
	}

	raw, hash, err := auth.NewResetToken()
	if err != nil {
		return apperror.Internal("could not generate reset token", err)
	}
	expires := time.Now().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		return apperror.Internal("could not store reset token", err)
	}

	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to %s/%s.\n"+
			"The link expires in 10 minutes. If you didn't forget your password, please ignore this email.",
		resetURLBase, raw)

	if err := s.mailer.Send(ctx, user.Email, "Your password reset token (valid for 10 min)", body); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.log.Errorw("reset token rollback failed", "user", user.ID.Hex(), "err", clearErr)
		}
		return apperror.Internal("there was an error sending the email; try again later", err)
	}
	return nil
}

// ResetPassword consumes a raw reset token exactly once: the stored hash is
// cleared in the same update that replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (*domain.User, string, error) {
	if err := auth.ValidateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", apperror.BadRequest("%s", err.Error())
	}

	user, err := s.users.FindByResetToken(ctx, auth.HashResetToken(rawToken))
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, "", apperror.Unauthorized("token is invalid or has expired")
		}
		return nil, "", apperror.Internal("could not look up reset token", err)
	}
	if !auth.ResetTokenMatches(user.PasswordResetToken, rawToken) {
		return nil, "", apperror.Unauthorized("token is invalid or has expired")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", apperror.Internal("could not hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, time.Now()); err != nil {
		return nil, "", apperror.Internal("could not update password", err)
	}

	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return nil, "", apperror.Internal("could not sign token", err)
	}

	s.pub.Publish(ctx, events.TypePasswordReset, map[string]string{"id": user.ID.Hex()})
	return user, token, nil
}

// ChangePassword lets an authenticated subject rotate their password after
// proving the current one, and returns a fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, subjectID, current, password, passwordConfirm string) (string, error) {
	user, err := s.users.FindByID(ctx, subjectID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return "", apperror.Unauthorized("the user no longer exists")
		}
		return "", apperror.Internal("could not look up user", err)
	}
	if !auth.CheckPassword(user.Password, current) {
		return "", apperror.Unauthorized("your current password is wrong")
	}
	if err := auth.ValidateNewPassword(password, passwordConfirm); err != nil {
		return "", apperror.BadRequest("%s", err.Error())
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", apperror.Internal("could not hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, time.Now()); err != nil {
		return "", apperror.Internal("could not update password", err)
	}

	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		return "", apperror.Internal("could not sign token", err)
	}
	return token, nil
}

// Authorize gates an already-authenticated subject by role.
func (s *AuthService) Authorize(user *domain.User, roles ...domain.Role) error {
	for _, r := range roles {
		if user.Role == r {
			return nil
		}
	}
	return apperror.Forbidden("you do not have permission to perform this action")
}
