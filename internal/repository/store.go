package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// SQLStore implements store.Store on MySQL.
//
// Transactions run at READ COMMITTED. Every operation that reads the
// seat occupancy of an event first locks the event row FOR UPDATE, so
// the plain reads that follow see every booking committed by earlier
// holders of that lock.
type SQLStore struct {
	db       *sql.DB
	events   EventRepo
	bookings BookingRepo
	speakers SpeakerRepo
	users    *UserRepo
	tokens   *TokenRepo
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, users: NewUserRepo(db), tokens: NewTokenRepo(db)}
}

var _ store.Store = (*SQLStore)(nil)

func (s *SQLStore) Users() store.UserStore   { return s.users }
func (s *SQLStore) Tokens() store.TokenStore { return s.tokens }

// BeginTx starts a READ COMMITTED transaction.
func (s *SQLStore) BeginTx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, s: s}, nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

func (t *sqlTx) CreateEvent(ctx context.Context, ev *model.Event) error {
	return t.s.events.CreateTx(ctx, t.tx, ev)
}

func (t *sqlTx) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	return t.s.events.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) LockEvent(ctx context.Context, id uint64) (model.Event, error) {
	return t.s.events.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) ListEvents(ctx context.Context, f store.EventFilter) ([]model.Event, error) {
	return t.s.events.ListTx(ctx, t.tx, f)
}

func (t *sqlTx) UpdateEvent(ctx context.Context, ev *model.Event) error {
	return t.s.events.UpdateTx(ctx, t.tx, ev)
}

func (t *sqlTx) DeleteEvent(ctx context.Context, id uint64) error {
	return t.s.events.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) SetAvailableSeats(ctx context.Context, eventID uint64, available int) error {
	return t.s.events.SetAvailableSeatsTx(ctx, t.tx, eventID, available)
}

func (t *sqlTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return t.s.bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return t.s.bookings.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) GetBookingByTicketCode(ctx context.Context, code string) (model.Booking, error) {
	return t.s.bookings.GetByTicketCodeTx(ctx, t.tx, code)
}

func (t *sqlTx) FindBooking(ctx context.Context, userID, eventID uint64) (model.Booking, error) {
	return t.s.bookings.FindByUserAndEventTx(ctx, t.tx, userID, eventID)
}

func (t *sqlTx) ListBookings(ctx context.Context, f store.BookingFilter) ([]model.Booking, error) {
	return t.s.bookings.ListTx(ctx, t.tx, f)
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.UpdateTx(ctx, t.tx, b)
}

func (t *sqlTx) TicketCodeExists(ctx context.Context, code string) (bool, error) {
	return t.s.bookings.TicketCodeExistsTx(ctx, t.tx, code)
}

func (t *sqlTx) CreateSpeaker(ctx context.Context, sp *model.Speaker) error {
	return t.s.speakers.CreateTx(ctx, t.tx, sp)
}

func (t *sqlTx) GetSpeaker(ctx context.Context, id uint64) (model.Speaker, error) {
	return t.s.speakers.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ListSpeakers(ctx context.Context, eventID uint64) ([]model.Speaker, error) {
	return t.s.speakers.ListByEventTx(ctx, t.tx, eventID)
}

func (t *sqlTx) DeleteSpeaker(ctx context.Context, id uint64) error {
	return t.s.speakers.DeleteTx(ctx, t.tx, id)
}
