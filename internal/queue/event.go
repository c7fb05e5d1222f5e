// Package queue defines message payloads exchanged over the message broker.
package queue

// Booking lifecycle notification types.
const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCheckedIn = "booking.checked_in"
	BookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking transition commits. It
// carries enough for downstream consumers to log or notify the
// attendee without querying the primary database.
type BookingEvent struct {
	Type       string   `json:"type"`
	BookingID  uint64   `json:"booking_id"`
	UserID     uint64   `json:"user_id"`
	EventID    uint64   `json:"event_id"`
	Status     string   `json:"status"`
	TicketCode string   `json:"ticket_code,omitempty"`
	Seats      []string `json:"seats"`
	OccurredAt string   `json:"occurred_at"`
}
