package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// SpeakerRepo persists the speakers of an event.
type SpeakerRepo struct{}

func scanSpeaker(row interface{ Scan(...any) error }) (model.Speaker, error) {
	var sp model.Speaker
	err := row.Scan(&sp.ID, &sp.EventID, &sp.Name, &sp.Bio, &sp.ImageURL, &sp.CreatedAt)
	return sp, err
}

// CreateTx inserts a speaker. An unknown event_id fails the foreign
// key and surfaces as a driver error; callers lock the event first.
func (r *SpeakerRepo) CreateTx(ctx context.Context, tx *sql.Tx, sp *model.Speaker) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO speakers (event_id, name, bio, image_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		sp.EventID, sp.Name, sp.Bio, sp.ImageURL, sp.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sp.ID = uint64(id)
	return nil
}

func (r *SpeakerRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Speaker, error) {
	sp, err := scanSpeaker(tx.QueryRowContext(ctx,
		`SELECT id, event_id, name, bio, image_url, created_at FROM speakers WHERE id = ?`, id))
	return sp, translate(err)
}

func (r *SpeakerRepo) ListByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Speaker, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, event_id, name, bio, image_url, created_at FROM speakers WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Speaker{}
	for rows.Next() {
		sp, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (r *SpeakerRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM speakers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
