// Package store declares the persistence contract used by the service
// layer. Implementations live in internal/repository (MySQL) and
// internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("store: duplicate")
)

// EventFilter narrows ListEvents. Search matches the title,
// case-insensitively.
type EventFilter struct {
	Search string
}

// BookingFilter narrows ListBookings. Zero values are ignored.
type BookingFilter struct {
	UserID   uint64
	EventID  uint64
	Statuses []model.BookingStatus
}

// Store opens transactions and exposes the account stores.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	Users() UserStore
	Tokens() TokenStore
}

// Tx is a unit of work over events, bookings and speakers. Lock*
// methods take an exclusive row lock held until Commit or Rollback.
// Callers that touch both rows lock the event before the booking.
type Tx interface {
	Commit() error
	Rollback() error

	CreateEvent(ctx context.Context, ev *model.Event) error
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	LockEvent(ctx context.Context, id uint64) (model.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error)
	UpdateEvent(ctx context.Context, ev *model.Event) error
	DeleteEvent(ctx context.Context, id uint64) error
	SetAvailableSeats(ctx context.Context, eventID uint64, available int) error

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	LockBooking(ctx context.Context, id uint64) (model.Booking, error)
	GetBookingByTicketCode(ctx context.Context, code string) (model.Booking, error)
	FindBooking(ctx context.Context, userID, eventID uint64) (model.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	TicketCodeExists(ctx context.Context, code string) (bool, error)

	CreateSpeaker(ctx context.Context, sp *model.Speaker) error
	GetSpeaker(ctx context.Context, id uint64) (model.Speaker, error)
	ListSpeakers(ctx context.Context, eventID uint64) ([]model.Speaker, error)
	DeleteSpeaker(ctx context.Context, id uint64) error
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns ErrNotFound for unknown, revoked or
	// expired tokens.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}
