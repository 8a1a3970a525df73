package service

import (
	"context"
	"strings"

	"github.com/deppfellow/memberships/internal/errs"
	"github.com/deppfellow/memberships/internal/model"
	"github.com/deppfellow/memberships/internal/sqlerr"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the email or password is wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

const emailTakenMessage = "já existe um usuário com este email"

// SignupInput is a validated signup form.
type SignupInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AuthService manages accounts and login sessions.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	jobs     WelcomeEnqueuer
	logger   *zerolog.Logger
	cost     int
}

func NewAuthService(users UserStore, sessions SessionStore, jobs WelcomeEnqueuer, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		jobs:     jobs,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates the account. A taken email is reported as a field error.
func (s *AuthService) Register(ctx context.Context, in SignupInput) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fieldErrors("Email already registered", errs.FieldError{Field: "email", Error: emailTakenMessage})
	case !sqlerr.IsNotFound(err):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if sqlerr.IsConstraintViolation(err, "users_email_key") {
			return nil, fieldErrors("Email already registered", errs.FieldError{Field: "email", Error: emailTakenMessage})
		}
		return nil, err
	}

	return user, nil
}

// Authenticate checks an email and password pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if sqlerr.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login opens a session for user and returns its id.
func (s *AuthService) Login(ctx context.Context, user *model.User) (string, error) {
	return s.sessions.Create(ctx, user.ID)
}

// Signup registers the account, signs the user in with the submitted
// credentials and queues the welcome email. A failed enqueue is logged
// and does not fail the signup.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, string, error) {
	if _, err := s.Register(ctx, in); err != nil {
		return nil, "", err
	}

	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, "", err
	}

	sessionID, err := s.Login(ctx, user)
	if err != nil {
		return nil, "", err
	}

	if err := s.jobs.EnqueueWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to enqueue welcome email")
	}

	return user, sessionID, nil
}

// Logout ends the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// UserFromSession resolves the user behind a session id.
func (s *AuthService) UserFromSession(ctx context.Context, sessionID string) (*model.User, error) {
	userID, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
