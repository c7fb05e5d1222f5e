package service

import (
	"fmt"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// normalizeSeats validates a seat request. Row labels are opaque
// client strings: surrounding spaces are trimmed and case is kept, so
// "a5" and "A5" are different seats.
func normalizeSeats(seats []model.Seat) ([]model.Seat, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeatsSelected
	}
	out := make([]model.Seat, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		row := strings.TrimSpace(s.Row)
		if row == "" {
			return nil, fmt.Errorf("%w: row label is required", ErrInvalidSeats)
		}
		if s.Number < 1 {
			return nil, fmt.Errorf("%w: seat number must be positive in row %s", ErrInvalidSeats, row)
		}
		seat := model.Seat{Row: row, Number: s.Number}
		key := seat.Key()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: seat %s requested twice", ErrInvalidSeats, key)
		}
		seen[key] = struct{}{}
		out = append(out, seat)
	}
	return out, nil
}

// occupancy is the seat usage of one event, derived from its bookings.
type occupancy struct {
	taken     map[string]struct{}
	booked    []string // keys in booking order
	confirmed int      // seats of approved and checked-in bookings
}

// resolveOccupancy flattens the seats of every seat-holding booking.
// Bookings in other statuses are ignored.
func resolveOccupancy(bookings []model.Booking) occupancy {
	occ := occupancy{taken: map[string]struct{}{}}
	for _, b := range bookings {
		if !b.Status.HoldsSeats() {
			continue
		}
		for _, s := range b.Seats {
			key := s.Key()
			if _, ok := occ.taken[key]; ok {
				continue
			}
			occ.taken[key] = struct{}{}
			occ.booked = append(occ.booked, key)
		}
		if b.Status.Confirmed() {
			occ.confirmed += len(b.Seats)
		}
	}
	return occ
}

// reserved is the number of seats held by pending, approved and
// checked-in bookings.
func (o occupancy) reserved() int { return len(o.booked) }

// firstConflict returns the first requested seat, in request order,
// that is already taken.
func (o occupancy) firstConflict(seats []model.Seat) (string, bool) {
	for _, s := range seats {
		key := s.Key()
		if _, ok := o.taken[key]; ok {
			return key, true
		}
	}
	return "", false
}
