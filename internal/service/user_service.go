package service

import (
	"context"

	"duochat/internal/domain"
)

// UserService is the narrow identity-gateway surface consumed by the chat
// core: lookups and recipient-picker listings.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ResolveByUsername resolves an active user by username, failing with
// ErrUserNotFound when unresolvable.
func (s *UserService) ResolveByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// ResolveByIdentifier resolves a user by phone number first, then username.
func (s *UserService) ResolveByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if u, err := s.users.GetByPhone(ctx, identifier); err != nil {
		return nil, err
	} else if u != nil {
		return u, nil
	}
	if u, err := s.users.GetByUsername(ctx, identifier); err != nil {
		return nil, err
	} else if u != nil {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *UserService) ListActive(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	return s.users.ListActive(ctx, offset, limit)
}
