package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Kind classifies domain errors. The HTTP layer maps each kind to a
// status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindCapacity:
		return "capacity"
	}
	return "unknown"
}

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(k Kind, code, msg string) *Error { return &Error{Kind: k, Code: code, Msg: msg} }

var (
	ErrNoSeatsSelected      = newErr(KindValidation, "no_seats_selected", "at least one seat must be selected")
	ErrInvalidSeats         = newErr(KindValidation, "invalid_seats", "invalid seat selection")
	ErrInvalidCapacity      = newErr(KindValidation, "invalid_capacity", "invalid capacity")
	ErrInvalidStatus        = newErr(KindValidation, "invalid_status", "only status \"cancelled\" can be set")
	ErrInvalidEvent         = newErr(KindValidation, "invalid_event", "invalid event")
	ErrInvalidSpeaker       = newErr(KindValidation, "invalid_speaker", "invalid speaker")
	ErrInvalidRole          = newErr(KindValidation, "invalid_role", "role must be user, staff or admin")
	ErrInvalidCode          = newErr(KindNotFound, "invalid_ticket_code", "invalid ticket code")
	ErrEventNotFound        = newErr(KindNotFound, "event_not_found", "event not found")
	ErrBookingNotFound      = newErr(KindNotFound, "booking_not_found", "booking not found")
	ErrSpeakerNotFound      = newErr(KindNotFound, "speaker_not_found", "speaker not found")
	ErrUserNotFound         = newErr(KindNotFound, "user_not_found", "user not found")
	ErrNotOwner             = newErr(KindForbidden, "not_owner", "booking belongs to another user")
	ErrAlreadyBooked        = newErr(KindConflict, "already_booked", "you already have a booking for this event")
	ErrSeatConflict         = newErr(KindConflict, "seat_conflict", "seat already booked")
	ErrNotPending           = newErr(KindConflict, "not_pending", "booking is not pending")
	ErrNotApproved          = newErr(KindConflict, "not_approved", "booking is not approved")
	ErrAlreadyCheckedIn     = newErr(KindConflict, "already_checked_in", "booking is already checked in")
	ErrAlreadyCancelled     = newErr(KindConflict, "already_cancelled", "booking is already cancelled")
	ErrInsufficientCapacity = newErr(KindCapacity, "insufficient_capacity", "not enough seats available")
)

// SeatConflictError names the first requested seat that is already
// taken. It matches ErrSeatConflict with errors.Is.
type SeatConflictError struct {
	SeatKey string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s is already booked", e.SeatKey)
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// StateError reports a transition refused because of the booking's
// current status.
type StateError struct {
	Err    *Error
	Status model.BookingStatus
	Msg    string
}

func (e *StateError) Error() string { return e.Msg }
func (e *StateError) Unwrap() error { return e.Err }

func notPending(status model.BookingStatus) error {
	return &StateError{
		Err:    ErrNotPending,
		Status: status,
		Msg:    fmt.Sprintf("booking is %s, only pending bookings can be reviewed", status),
	}
}

func notApproved(status model.BookingStatus) error {
	msg := ErrNotApproved.Msg
	switch status {
	case model.BookingPending:
		msg = "booking is pending approval"
	case model.BookingRejected:
		msg = "booking was rejected"
	case model.BookingCancelled:
		msg = "booking was cancelled"
	}
	return &StateError{Err: ErrNotApproved, Status: status, Msg: msg}
}

// KindOf returns the kind of a domain error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the machine-readable code of a domain error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
