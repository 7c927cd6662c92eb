package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned when the email is unknown or the password
// does not match. Callers get the same error either way.
var ErrBadCredentials = errors.New("invalid email or password")

// Service implements registration and sign-in against the user store.
type Service struct {
	store  store.Store
	tokens *Tokens
	log    *slog.Logger
}

func NewService(st store.Store, tokens *Tokens, log *slog.Logger) *Service {
	return &Service{store: st, tokens: tokens, log: log}
}

// SignUp registers a new account with a bcrypt-hashed password.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "email", email)
	return user, nil
}

// SignIn checks the password and returns the user plus a signed token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrBadCredentials
	}

	token, err := s.tokens.Generate(email)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}
