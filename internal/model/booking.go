package model

import (
	"strconv"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCancelled BookingStatus = "cancelled"
)

// SeatHoldingStatuses lists the statuses whose seats count as taken.
var SeatHoldingStatuses = []BookingStatus{BookingPending, BookingApproved, BookingCheckedIn}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCheckedIn, BookingCancelled:
		return true
	}
	return false
}

// HoldsSeats reports whether a booking in this status occupies its seats.
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingPending || s == BookingApproved || s == BookingCheckedIn
}

// Confirmed reports whether the event counter was decremented for a
// booking in this status.
func (s BookingStatus) Confirmed() bool {
	return s == BookingApproved || s == BookingCheckedIn
}

// Seat identifies one seat of an event by row label and number.
type Seat struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

// Key returns the occupancy key of the seat, e.g. "A12".
func (s Seat) Key() string { return s.Row + strconv.Itoa(s.Number) }

// Booking records a user's seat request for an event. Seats never
// change after creation. TicketCode is set once, at approval.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the request.
//  EventID     – event being booked.
//  Seats       – requested seats in request order.
//  Status      – lifecycle state.
//  TicketCode  – TEDX-XXXXXX code (nil until approved).
//  CheckedInAt – first check-in time (nullable).
//  CancelledAt – cancellation time (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
	ID          uint64        `json:"id"`                      // bookings.id
	UserID      uint64        `json:"user_id"`                 // bookings.user_id
	EventID     uint64        `json:"event_id"`                // bookings.event_id
	Seats       []Seat        `json:"seats"`                   // bookings.seats (JSON)
	Status      BookingStatus `json:"status"`                  // bookings.status
	TicketCode  *string       `json:"ticket_code,omitempty"`   // bookings.ticket_code (nullable)
	CheckedInAt *time.Time    `json:"checked_in_at,omitempty"` // bookings.checked_in_at (nullable)
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`  // bookings.cancelled_at (nullable)
	CreatedAt   time.Time     `json:"created_at"`              // bookings.created_at
	UpdatedAt   time.Time     `json:"updated_at"`              // bookings.updated_at
}

// SeatKeys returns the occupancy keys of the booking's seats in order.
func (b Booking) SeatKeys() []string {
	keys := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		keys[i] = s.Key()
	}
	return keys
}

// Code returns the ticket code or an empty string.
func (b Booking) Code() string {
	if b.TicketCode == nil {
		return ""
	}
	return *b.TicketCode
}

// Clone returns a deep copy of b.
func (b Booking) Clone() Booking {
	out := b
	out.Seats = append([]Seat(nil), b.Seats...)
	if b.TicketCode != nil {
		v := *b.TicketCode
		out.TicketCode = &v
	}
	if b.CheckedInAt != nil {
		v := *b.CheckedInAt
		out.CheckedInAt = &v
	}
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		out.CancelledAt = &v
	}
	return out
}
