package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

const eventColumns = `id, title, description, location, date, image_url, capacity, available_seats, created_at, updated_at`

// EventRepo manages persistence for events. Every method runs inside the
// caller's transaction; the caller commits or rolls back.
type EventRepo struct{}

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var ev model.Event
	err := row.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Location,
		&ev.Date,
		&ev.ImageURL,
		&ev.Capacity,
		&ev.AvailableSeats,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	return ev, err
}

// CreateTx inserts a new event and populates its ID. The caller sets
// AvailableSeats equal to Capacity.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	const q = `INSERT INTO events (title, description, location, date, image_url, capacity, available_seats, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, ev.Title, ev.Description, ev.Location, ev.Date, ev.ImageURL,
		ev.Capacity, ev.AvailableSeats, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// GetByIDTx fetches an event without locking it.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	ev, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	return ev, translate(err)
}

// LockTx fetches an event and takes an exclusive lock on its row. All
// writes to the event's bookings and counter happen behind this lock.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	ev, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	return ev, translate(err)
}

// eventListQuery builds the catalog SELECT; Search matches titles
// case-insensitively.
func eventListQuery(f store.EventFilter) (string, []any) {
	q := `SELECT ` + eventColumns + ` FROM events`
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += ` WHERE LOWER(title) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	return q + ` ORDER BY date ASC, id ASC`, args
}

// ListTx returns events ordered by date, optionally filtered by a
// case-insensitive title match.
func (r *EventRepo) ListTx(ctx context.Context, tx *sql.Tx, f store.EventFilter) ([]model.Event, error) {
	q, args := eventListQuery(f)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UpdateTx writes every mutable column of the event.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	const q = `UPDATE events SET title = ?, description = ?, location = ?, date = ?, image_url = ?,
               capacity = ?, available_seats = ?, updated_at = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, ev.Title, ev.Description, ev.Location, ev.Date, ev.ImageURL,
		ev.Capacity, ev.AvailableSeats, ev.UpdatedAt, ev.ID)
	if err != nil {
		return translate(err)
	}
	return requireRow(res)
}

// DeleteTx removes the event; bookings and speakers follow through
// ON DELETE CASCADE.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetAvailableSeatsTx overwrites the counter of a locked event.
func (r *EventRepo) SetAvailableSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, available int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET available_seats = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, available, eventID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
