package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

const bookingColumns = `id, user_id, event_id, seats, status, ticket_code, checked_in_at, cancelled_at, created_at, updated_at`

// BookingRepo provides CRUD operations for bookings. Seats are stored
// as a JSON array in the bookings.seats column. Timestamps are UTC.
type BookingRepo struct{}

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b         model.Booking
		seatsRaw  []byte
		status    string
		code      sql.NullString
		checkedIn sql.NullTime
		cancelled sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.EventID, &seatsRaw, &status, &code,
		&checkedIn, &cancelled, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(seatsRaw, &b.Seats); err != nil {
		return model.Booking{}, fmt.Errorf("decode seats of booking %d: %w", b.ID, err)
	}
	b.Status = model.BookingStatus(status)
	if code.Valid {
		c := code.String
		b.TicketCode = &c
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		b.CheckedInAt = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		b.CancelledAt = &t
	}
	return b, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

// CreateTx inserts a new booking and populates its ID. A second
// booking for the same (user, event) fails with store.ErrDuplicate
// through the uniq_user_event index.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (user_id, event_id, seats, status, ticket_code, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.EventID, seats, string(b.Status),
		nullString(b.TicketCode), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByIDTx fetches a booking without locking it.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	return b, translate(err)
}

// LockTx fetches a booking with an exclusive row lock. Callers lock
// the booking's event first.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	return b, translate(err)
}

// GetByTicketCodeTx resolves a ticket code to its booking.
func (r *BookingRepo) GetByTicketCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ticket_code = ?`, code))
	return b, translate(err)
}

// FindByUserAndEventTx returns the single booking a user holds for an
// event, in any status.
func (r *BookingRepo) FindByUserAndEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? AND event_id = ?`, userID, eventID))
	return b, translate(err)
}

// bookingListQuery builds the SELECT for a filter. Zero fields do not
// filter.
func bookingListQuery(f store.BookingFilter) (string, []any) {
	where := []string{}
	args := []any{}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.EventID != 0 {
		where = append(where, "event_id = ?")
		args = append(args, f.EventID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return q + ` ORDER BY id ASC`, args
}

// ListTx returns bookings matching the filter ordered by id.
func (r *BookingRepo) ListTx(ctx context.Context, tx *sql.Tx, f store.BookingFilter) ([]model.Booking, error) {
	q, args := bookingListQuery(f)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateTx writes the lifecycle columns of a booking. Seats, user and
// event are never rewritten.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `UPDATE bookings SET status = ?, ticket_code = ?, checked_in_at = ?, cancelled_at = ?, updated_at = ?
               WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, string(b.Status), nullString(b.TicketCode),
		nullTime(b.CheckedInAt), nullTime(b.CancelledAt), b.UpdatedAt, b.ID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

// TicketCodeExistsTx reports whether any booking already carries code.
func (r *BookingRepo) TicketCodeExistsTx(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE ticket_code = ?`, code).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
