// Package service holds the booking lifecycle engine and the event
// catalog. It is the only writer of an event's available_seats.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// Publisher receives a notification after each committed transition.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// BookingService runs the booking state machine:
//
//	create   → pending
//	pending  → approved (counter -= seats, ticket code issued) | rejected
//	approved → checked_in
//	pending | approved | rejected → cancelled (counter += seats if approved)
//
// Every transition runs in one transaction holding the event's row lock.
type BookingService struct {
	store   store.Store
	pub     Publisher
	logger  *logrus.Logger
	now     func() time.Time
	newCode func() string
}

// NewBookingService wires the engine. pub may be nil.
func NewBookingService(st store.Store, pub Publisher, logger *logrus.Logger) *BookingService {
	return &BookingService{
		store:   st,
		pub:     pub,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: newTicketCode,
	}
}

// SeatsStatus summarizes seat usage of an event.
type SeatsStatus struct {
	Total     int      `json:"total"`
	Available int      `json:"available"`
	Booked    []string `json:"booked"`
}

// Ticket is a booking resolved from its ticket code.
type Ticket struct {
	Booking model.Booking `json:"booking"`
	Event   model.Event   `json:"event"`
	Valid   bool          `json:"valid"`
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func inTx(ctx context.Context, st store.Store, fn func(tx store.Tx) error) error {
	tx, err := st.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// lockBooking locks the booking's event, then the booking itself.
func lockBooking(ctx context.Context, tx store.Tx, id uint64) (model.Event, model.Booking, error) {
	b, err := tx.GetBooking(ctx, id)
	if err != nil {
		return model.Event{}, model.Booking{}, bookingErr(err)
	}
	ev, err := tx.LockEvent(ctx, b.EventID)
	if err != nil {
		return model.Event{}, model.Booking{}, fmt.Errorf("lock event %d: %w", b.EventID, err)
	}
	b, err = tx.LockBooking(ctx, id)
	if err != nil {
		return model.Event{}, model.Booking{}, bookingErr(err)
	}
	return ev, b, nil
}

func bookingErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrBookingNotFound
	}
	return fmt.Errorf("load booking: %w", err)
}

func loadOccupancy(ctx context.Context, tx store.Tx, eventID uint64) (occupancy, error) {
	bookings, err := tx.ListBookings(ctx, store.BookingFilter{EventID: eventID, Statuses: model.SeatHoldingStatuses})
	if err != nil {
		return occupancy{}, fmt.Errorf("list bookings: %w", err)
	}
	return resolveOccupancy(bookings), nil
}

// Create submits a pending booking. The available counter is left
// untouched; capacity is checked against every seat-holding booking.
func (s *BookingService) Create(ctx context.Context, userID, eventID uint64, seats []model.Seat) (model.Booking, error) {
	var out model.Booking
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		if _, err := tx.FindBooking(ctx, userID, eventID); err == nil {
			return ErrAlreadyBooked
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find booking: %w", err)
		}

		seats, err := normalizeSeats(seats)
		if err != nil {
			return err
		}

		occ, err := loadOccupancy(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if key, ok := occ.firstConflict(seats); ok {
			return &SeatConflictError{SeatKey: key}
		}
		if ev.Capacity-occ.reserved() < len(seats) {
			return ErrInsufficientCapacity
		}

		now := s.now()
		out = model.Booking{
			UserID:    userID,
			EventID:   eventID,
			Seats:     seats,
			Status:    model.BookingPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateBooking(ctx, &out); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyBooked
			}
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": out.ID, "event_id": eventID, "user_id": userID, "seats": len(out.Seats),
	}).Info("booking created")
	s.notify(ctx, queue.BookingCreated, out)
	return out, nil
}

// Approve confirms a pending booking, takes its seats off the counter
// and issues the ticket code.
func (s *BookingService) Approve(ctx context.Context, id uint64) (model.Booking, error) {
	var out model.Booking
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return notPending(b.Status)
		}
		if ev.AvailableSeats < len(b.Seats) {
			return ErrInsufficientCapacity
		}
		code, err := issueTicketCode(ctx, tx, s.newCode)
		if err != nil {
			return err
		}
		if err := tx.SetAvailableSeats(ctx, ev.ID, ev.AvailableSeats-len(b.Seats)); err != nil {
			return fmt.Errorf("update available seats: %w", err)
		}
		b.Status = model.BookingApproved
		b.TicketCode = &code
		b.UpdatedAt = s.now()
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{"booking_id": id, "ticket_code": out.Code()}).Info("booking approved")
	s.notify(ctx, queue.BookingApproved, out)
	return out, nil
}

// Reject declines a pending booking. Pending seats were never taken
// off the counter, so it is left alone.
func (s *BookingService) Reject(ctx context.Context, id uint64) (model.Booking, error) {
	var out model.Booking
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		_, b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return notPending(b.Status)
		}
		b.Status = model.BookingRejected
		b.UpdatedAt = s.now()
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.WithContext(ctx).WithField("booking_id", id).Info("booking rejected")
	s.notify(ctx, queue.BookingRejected, out)
	return out, nil
}

// CheckIn marks an approved booking as checked in. Checking in twice
// returns the booking unchanged, keeping the first checked_in_at.
func (s *BookingService) CheckIn(ctx context.Context, id uint64) (model.Booking, error) {
	return s.checkIn(ctx, func(tx store.Tx) (uint64, error) { return id, nil })
}

// CheckInByCode resolves a ticket code and checks its booking in.
func (s *BookingService) CheckInByCode(ctx context.Context, code string) (model.Booking, error) {
	return s.checkIn(ctx, func(tx store.Tx) (uint64, error) {
		b, err := s.resolveCode(ctx, tx, code)
		return b.ID, err
	})
}

func (s *BookingService) checkIn(ctx context.Context, resolve func(tx store.Tx) (uint64, error)) (model.Booking, error) {
	var (
		out     model.Booking
		changed bool
	)
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		id, err := resolve(tx)
		if err != nil {
			return err
		}
		_, b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingCheckedIn:
			out = b
			return nil
		case model.BookingApproved:
		default:
			return notApproved(b.Status)
		}
		now := s.now()
		b.Status = model.BookingCheckedIn
		b.CheckedInAt = &now
		b.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		out, changed = b, true
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if changed {
		s.logger.WithContext(ctx).WithField("booking_id", out.ID).Info("booking checked in")
		s.notify(ctx, queue.BookingCheckedIn, out)
	}
	return out, nil
}

func (s *BookingService) resolveCode(ctx context.Context, tx store.Tx, code string) (model.Booking, error) {
	code, ok := normalizeTicketCode(code)
	if !ok {
		return model.Booking{}, ErrInvalidCode
	}
	b, err := tx.GetBookingByTicketCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return model.Booking{}, ErrInvalidCode
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("lookup ticket code: %w", err)
	}
	return b, nil
}

// VerifyTicketCode looks a ticket up without changing it. Valid is true
// for approved and checked-in bookings.
func (s *BookingService) VerifyTicketCode(ctx context.Context, code string) (Ticket, error) {
	var out Ticket
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		b, err := s.resolveCode(ctx, tx, code)
		if err != nil {
			return err
		}
		ev, err := tx.GetEvent(ctx, b.EventID)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		out = Ticket{Booking: b, Event: ev, Valid: b.Status.Confirmed()}
		return nil
	})
	return out, err
}

// Update applies an owner's change to their booking. The only settable
// status is "cancelled", which goes through Cancel.
func (s *BookingService) Update(ctx context.Context, id, callerID uint64, status string) (model.Booking, error) {
	st := model.BookingStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != model.BookingCancelled {
		return model.Booking{}, ErrInvalidStatus
	}
	return s.Cancel(ctx, id, callerID)
}

// Cancel withdraws the caller's booking. The row is kept with status
// cancelled; seats of an approved booking go back on the counter.
func (s *BookingService) Cancel(ctx context.Context, id, callerID uint64) (model.Booking, error) {
	var (
		out      model.Booking
		restored int
	)
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.UserID != callerID {
			return ErrNotOwner
		}
		switch b.Status {
		case model.BookingCheckedIn:
			return ErrAlreadyCheckedIn
		case model.BookingCancelled:
			return ErrAlreadyCancelled
		case model.BookingApproved:
			restored = len(b.Seats)
			available := ev.AvailableSeats + restored
			if available > ev.Capacity {
				s.logger.WithContext(ctx).WithFields(logrus.Fields{
					"event_id":   ev.ID,
					"booking_id": b.ID,
					"available":  ev.AvailableSeats,
					"restoring":  restored,
					"capacity":   ev.Capacity,
				}).Warn("seat counter would exceed capacity, clamping")
				available = ev.Capacity
			}
			if err := tx.SetAvailableSeats(ctx, ev.ID, available); err != nil {
				return fmt.Errorf("update available seats: %w", err)
			}
		}
		now := s.now()
		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{"booking_id": id, "restored_seats": restored}).Info("booking cancelled")
	s.notify(ctx, queue.BookingCancelled, out)
	return out, nil
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id uint64) (model.Booking, error) {
	var out model.Booking
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return bookingErr(err)
		}
		out = b
		return nil
	})
	return out, err
}

// ListByUser returns the caller's bookings in creation order.
func (s *BookingService) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.List(ctx, store.BookingFilter{UserID: userID})
}

// List returns bookings matching f. Unknown statuses are rejected.
func (s *BookingService) List(ctx context.Context, f store.BookingFilter) ([]model.Booking, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, st)
		}
	}
	var out []model.Booking
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		bs, err := tx.ListBookings(ctx, f)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		out = bs
		return nil
	})
	return out, err
}

// SeatsStatus reports capacity, the counter and every taken seat key.
func (s *BookingService) SeatsStatus(ctx context.Context, eventID uint64) (SeatsStatus, error) {
	var out SeatsStatus
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		occ, err := loadOccupancy(ctx, tx, eventID)
		if err != nil {
			return err
		}
		booked := occ.booked
		if booked == nil {
			booked = []string{}
		}
		out = SeatsStatus{Total: ev.Capacity, Available: ev.AvailableSeats, Booked: booked}
		return nil
	})
	return out, err
}

func (s *BookingService) notify(ctx context.Context, typ string, b model.Booking) {
	if s.pub == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.UserID,
		EventID:    b.EventID,
		Status:     string(b.Status),
		TicketCode: b.Code(),
		Seats:      b.SeatKeys(),
		OccurredAt: s.now().Format(time.RFC3339),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{"type": typ, "booking_id": b.ID}).Warn("publish booking event failed")
	}
}
