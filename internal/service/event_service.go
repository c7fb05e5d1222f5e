package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// EventService manages the event catalog and speakers.
type EventService struct {
	store  store.Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewEventService(st store.Store, logger *logrus.Logger) *EventService {
	return &EventService{store: st, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// EventInput carries the fields of a new event.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Date        time.Time
	ImageURL    string
	Capacity    int
}

// EventPatch carries optional changes; nil fields are left as they are.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Date        *time.Time
	ImageURL    *string
	Capacity    *int
}

// SpeakerInput carries the fields of a new speaker.
type SpeakerInput struct {
	EventID  uint64
	Name     string
	Bio      string
	ImageURL string
}

func checkCapacity(n int) error {
	if n < model.MinEventCapacity || n > model.MaxEventCapacity {
		return fmt.Errorf("%w: capacity must be between %d and %d",
			ErrInvalidCapacity, model.MinEventCapacity, model.MaxEventCapacity)
	}
	return nil
}

func eventErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrEventNotFound
	}
	return fmt.Errorf("load event: %w", err)
}

// Create publishes an event with every seat available.
func (s *EventService) Create(ctx context.Context, in EventInput) (model.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Event{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if in.Date.IsZero() {
		return model.Event{}, fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if err := checkCapacity(in.Capacity); err != nil {
		return model.Event{}, err
	}
	now := s.now()
	ev := model.Event{
		Title:          in.Title,
		Description:    in.Description,
		Location:       strings.TrimSpace(in.Location),
		Date:           in.Date.UTC(),
		ImageURL:       strings.TrimSpace(in.ImageURL),
		Capacity:       in.Capacity,
		AvailableSeats: in.Capacity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		if err := tx.CreateEvent(ctx, &ev); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{"event_id": ev.ID, "capacity": ev.Capacity}).Info("event created")
	return ev, nil
}

// Update edits an event. A new capacity may not drop below the seats
// held by pending, approved and checked-in bookings; the counter is
// recomputed as capacity minus confirmed seats.
func (s *EventService) Update(ctx context.Context, id uint64, p EventPatch) (model.Event, error) {
	var out model.Event
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, err := tx.LockEvent(ctx, id)
		if err != nil {
			return eventErr(err)
		}
		if p.Title != nil {
			t := strings.TrimSpace(*p.Title)
			if t == "" {
				return fmt.Errorf("%w: title is required", ErrInvalidEvent)
			}
			ev.Title = t
		}
		if p.Description != nil {
			ev.Description = *p.Description
		}
		if p.Location != nil {
			ev.Location = strings.TrimSpace(*p.Location)
		}
		if p.Date != nil {
			if p.Date.IsZero() {
				return fmt.Errorf("%w: date is required", ErrInvalidEvent)
			}
			ev.Date = p.Date.UTC()
		}
		if p.ImageURL != nil {
			ev.ImageURL = strings.TrimSpace(*p.ImageURL)
		}
		if p.Capacity != nil && *p.Capacity != ev.Capacity {
			if err := checkCapacity(*p.Capacity); err != nil {
				return err
			}
			occ, err := loadOccupancy(ctx, tx, id)
			if err != nil {
				return err
			}
			if *p.Capacity < occ.reserved() {
				return fmt.Errorf("%w: %d seats are already booked", ErrInvalidCapacity, occ.reserved())
			}
			ev.Capacity = *p.Capacity
			ev.AvailableSeats = ev.Capacity - occ.confirmed
		}
		ev.UpdatedAt = s.now()
		if err := tx.UpdateEvent(ctx, &ev); err != nil {
			return eventErr(err)
		}
		out = ev
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	s.logger.WithContext(ctx).WithField("event_id", id).Info("event updated")
	return out, nil
}

// Delete removes an event with its bookings and speakers.
func (s *EventService) Delete(ctx context.Context, id uint64) error {
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.LockEvent(ctx, id); err != nil {
			return eventErr(err)
		}
		if err := tx.DeleteEvent(ctx, id); err != nil {
			return eventErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithContext(ctx).WithField("event_id", id).Info("event deleted")
	return nil
}

func (s *EventService) Get(ctx context.Context, id uint64) (model.Event, error) {
	var out model.Event
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		ev, err := tx.GetEvent(ctx, id)
		if err != nil {
			return eventErr(err)
		}
		out = ev
		return nil
	})
	return out, err
}

// List returns events by date; search filters on the title.
func (s *EventService) List(ctx context.Context, search string) ([]model.Event, error) {
	var out []model.Event
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		evs, err := tx.ListEvents(ctx, store.EventFilter{Search: search})
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		out = evs
		return nil
	})
	return out, err
}

// AddSpeaker attaches a speaker to an existing event.
func (s *EventService) AddSpeaker(ctx context.Context, in SpeakerInput) (model.Speaker, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Speaker{}, fmt.Errorf("%w: name is required", ErrInvalidSpeaker)
	}
	sp := model.Speaker{
		EventID:   in.EventID,
		Name:      in.Name,
		Bio:       in.Bio,
		ImageURL:  strings.TrimSpace(in.ImageURL),
		CreatedAt: s.now(),
	}
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.LockEvent(ctx, in.EventID); err != nil {
			return eventErr(err)
		}
		if err := tx.CreateSpeaker(ctx, &sp); err != nil {
			return fmt.Errorf("create speaker: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Speaker{}, err
	}
	return sp, nil
}

// Speakers lists the speakers of an event.
func (s *EventService) Speakers(ctx context.Context, eventID uint64) ([]model.Speaker, error) {
	var out []model.Speaker
	err := inTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return eventErr(err)
		}
		sps, err := tx.ListSpeakers(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list speakers: %w", err)
		}
		out = sps
		return nil
	})
	return out, err
}

func (s *EventService) DeleteSpeaker(ctx context.Context, id uint64) error {
	return inTx(ctx, s.store, func(tx store.Tx) error {
		err := tx.DeleteSpeaker(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSpeakerNotFound
		}
		return err
	})
}
