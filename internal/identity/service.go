package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaultpay/vaultpay/internal/fault"
)

// Service manages user lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a user keyed by a unique, normalized email address.
func (s *Service) Register(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fault.Newf(fault.InvalidArgument, "email %q is not valid", email)
	}

	user := User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// LookupByEmail finds a registered user by email address.
func (s *Service) LookupByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Lookup finds a registered user by identifier.
func (s *Service) Lookup(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
