package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// UserService covers account administration.
type UserService struct {
	users  store.UserStore
	logger *logrus.Logger
}

func NewUserService(users store.UserStore, logger *logrus.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	us, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return us, nil
}

// UpdateRole changes the role of a user.
func (s *UserService) UpdateRole(ctx context.Context, id uint64, role string) (model.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !model.ValidRole(role) {
		return model.User{}, ErrInvalidRole
	}
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update role: %w", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{"user_id": id, "role": role}).Info("user role changed")
	return u, nil
}

// SeedAdmin creates an admin account unless the email already exists.
// It reports whether an account was created.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string, cost int) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return false, err
	}
	u := model.User{Name: name, Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.logger.WithContext(ctx).WithField("email", email).Info("admin account seeded")
	return true, nil
}
