package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

func seedEvent(t *testing.T, s *Store, capacity int) model.Event {
	t.Helper()
	ctx := context.Background()
	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ev := model.Event{Title: "Ideas worth spreading", Capacity: capacity, AvailableSeats: capacity}
	if err := tx.CreateEvent(ctx, &ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return ev
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev := seedEvent(t, s, 10)

	tx, _ := s.BeginTx(ctx)
	if err := tx.SetAvailableSeats(ctx, ev.ID, 3); err != nil {
		t.Fatalf("set available: %v", err)
	}
	_ = tx.Rollback()

	tx, _ = s.BeginTx(ctx)
	defer tx.Rollback()
	got, err := tx.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AvailableSeats != 10 {
		t.Fatalf("available = %d, want 10", got.AvailableSeats)
	}
}

func TestCreateBookingDuplicateUserEvent(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev := seedEvent(t, s, 10)

	tx, _ := s.BeginTx(ctx)
	defer tx.Rollback()
	first := model.Booking{UserID: 7, EventID: ev.ID, Seats: []model.Seat{{Row: "A", Number: 1}}, Status: model.BookingPending}
	if err := tx.CreateBooking(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := model.Booking{UserID: 7, EventID: ev.ID, Seats: []model.Seat{{Row: "B", Number: 1}}, Status: model.BookingPending}
	if err := tx.CreateBooking(ctx, &second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestReturnedBookingsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev := seedEvent(t, s, 10)

	tx, _ := s.BeginTx(ctx)
	defer tx.Rollback()
	b := model.Booking{UserID: 1, EventID: ev.ID, Seats: []model.Seat{{Row: "A", Number: 1}}, Status: model.BookingPending}
	if err := tx.CreateBooking(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := tx.GetBooking(ctx, b.ID)
	got.Seats[0].Row = "Z"
	again, _ := tx.GetBooking(ctx, b.ID)
	if again.Seats[0].Row != "A" {
		t.Fatalf("stored seats mutated through returned value")
	}
}

func TestDeleteEventCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	ev := seedEvent(t, s, 10)

	tx, _ := s.BeginTx(ctx)
	b := model.Booking{UserID: 1, EventID: ev.ID, Seats: []model.Seat{{Row: "A", Number: 1}}, Status: model.BookingPending}
	_ = tx.CreateBooking(ctx, &b)
	sp := model.Speaker{EventID: ev.ID, Name: "Ada"}
	_ = tx.CreateSpeaker(ctx, &sp)
	if err := tx.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = tx.Commit()

	tx, _ = s.BeginTx(ctx)
	defer tx.Rollback()
	if _, err := tx.GetBooking(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("booking survived delete: %v", err)
	}
	if _, err := tx.GetSpeaker(ctx, sp.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("speaker survived delete: %v", err)
	}
}

func TestBeginTxSerializes(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, _ := s.BeginTx(ctx)

	started := make(chan struct{})
	go func() {
		tx, err := s.BeginTx(ctx)
		if err == nil {
			_ = tx.Rollback()
		}
		close(started)
	}()

	select {
	case <-started:
		t.Fatal("second transaction began while first was open")
	case <-time.After(50 * time.Millisecond):
	}
	_ = first.Commit()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("second transaction never began")
	}
}

func TestRefreshTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	tokens := s.Tokens()

	_ = tokens.StoreRefresh(ctx, 3, "h1", time.Now().Add(time.Hour))
	_ = tokens.StoreRefresh(ctx, 3, "h2", time.Now().Add(-time.Hour))

	if uid, err := tokens.ValidateRefresh(ctx, "h1"); err != nil || uid != 3 {
		t.Fatalf("validate h1 = %d, %v", uid, err)
	}
	if _, err := tokens.ValidateRefresh(ctx, "h2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired token accepted: %v", err)
	}
	_ = tokens.RevokeAllForUser(ctx, 3)
	if _, err := tokens.ValidateRefresh(ctx, "h1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("revoked token accepted: %v", err)
	}
}

func TestUserEmailUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := model.User{Name: "A", Email: "A@Example.com", PasswordHash: "x", Role: model.RoleUser}
	if err := s.Users().Create(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := model.User{Name: "B", Email: "a@example.com ", PasswordHash: "y", Role: model.RoleUser}
	if err := s.Users().Create(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}
