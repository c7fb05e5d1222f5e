package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

func TestCreateEventCapacityBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)

	for _, c := range []int{0, -5, 1001} {
		if _, err := f.events.Create(ctx, EventInput{Title: "x", Date: date, Capacity: c}); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("capacity %d: err = %v, want ErrInvalidCapacity", c, err)
		}
	}
	if _, err := f.events.Create(ctx, EventInput{Title: "  ", Date: date, Capacity: 10}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("blank title: err = %v", err)
	}
	ev, err := f.events.Create(ctx, EventInput{Title: "Edge", Date: date, Capacity: 1000})
	if err != nil {
		t.Fatalf("capacity 1000: %v", err)
	}
	if ev.AvailableSeats != 1000 {
		t.Fatalf("available = %d, want capacity", ev.AvailableSeats)
	}
}

func TestUpdateCapacityFloor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 10)
	a, _ := f.bookings.Create(ctx, 1, ev.ID, seats("A1", "A2", "A3"))
	_, _ = f.bookings.Approve(ctx, a.ID)
	_, _ = f.bookings.Create(ctx, 2, ev.ID, seats("B1", "B2"))

	four := 4
	if _, err := f.events.Update(ctx, ev.ID, EventPatch{Capacity: &four}); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("capacity below reserved: err = %v", err)
	}

	five := 5
	got, err := f.events.Update(ctx, ev.ID, EventPatch{Capacity: &five})
	if err != nil {
		t.Fatalf("capacity at reserved: %v", err)
	}
	// 3 approved seats are off the counter; 2 pending are not
	if got.Capacity != 5 || got.AvailableSeats != 2 {
		t.Fatalf("event = cap %d avail %d, want 5/2", got.Capacity, got.AvailableSeats)
	}

	title := "Renamed"
	got, err = f.events.Update(ctx, ev.ID, EventPatch{Title: &title})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Title != "Renamed" || got.Capacity != 5 || got.AvailableSeats != 2 {
		t.Fatalf("rename changed seats: %+v", got)
	}
	if _, err := f.events.Update(ctx, 999, EventPatch{Title: &title}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("unknown event: err = %v", err)
	}
}

func TestDeleteEventCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 10)
	b, _ := f.bookings.Create(ctx, 1, ev.ID, seats("A1"))
	sp, err := f.events.AddSpeaker(ctx, SpeakerInput{EventID: ev.ID, Name: "Grace"})
	if err != nil {
		t.Fatalf("add speaker: %v", err)
	}

	if err := f.events.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.bookings.Get(ctx, b.ID); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("booking survived: %v", err)
	}
	if err := f.events.DeleteSpeaker(ctx, sp.ID); !errors.Is(err, ErrSpeakerNotFound) {
		t.Fatalf("speaker survived: %v", err)
	}
	if err := f.events.Delete(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestListEventsSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, title := range []string{"Future of Energy", "Deep Oceans", "Energy Storage"} {
		_, err := f.events.Create(ctx, EventInput{
			Title:    title,
			Date:     time.Date(2026, 10, 20+i, 9, 0, 0, 0, time.UTC),
			Capacity: 5,
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	got, err := f.events.List(ctx, "energy")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Future of Energy" || got[1].Title != "Energy Storage" {
		t.Fatalf("search result = %+v", got)
	}
	all, _ := f.events.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("list all = %d events", len(all))
	}
}

func TestSpeakers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 10)

	if _, err := f.events.AddSpeaker(ctx, SpeakerInput{EventID: 999, Name: "Nobody"}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("speaker for unknown event: err = %v", err)
	}
	if _, err := f.events.AddSpeaker(ctx, SpeakerInput{EventID: ev.ID}); !errors.Is(err, ErrInvalidSpeaker) {
		t.Fatalf("nameless speaker: err = %v", err)
	}
	_, _ = f.events.AddSpeaker(ctx, SpeakerInput{EventID: ev.ID, Name: "Ada", Bio: "Engines"})
	_, _ = f.events.AddSpeaker(ctx, SpeakerInput{EventID: ev.ID, Name: "Alan"})

	sps, err := f.events.Speakers(ctx, ev.ID)
	if err != nil {
		t.Fatalf("speakers: %v", err)
	}
	if len(sps) != 2 || sps[0].Name != "Ada" {
		t.Fatalf("speakers = %+v", sps)
	}
	if _, err := f.events.Speakers(ctx, 999); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("speakers of unknown event: err = %v", err)
	}
}

func TestUserServiceRolesAndSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(f.st.Users(), quietLogger())

	created, err := users.SeedAdmin(ctx, "Admin", "Admin@Example.com", "secret", 4)
	if err != nil || !created {
		t.Fatalf("seed = %v, %v", created, err)
	}
	again, err := users.SeedAdmin(ctx, "Admin", "admin@example.com", "secret", 4)
	if err != nil || again {
		t.Fatalf("second seed = %v, %v", again, err)
	}

	u := model.User{Name: "Sam", Email: "sam@example.com", PasswordHash: "x", Role: model.RoleUser}
	_ = f.st.Users().Create(ctx, &u)

	got, err := users.UpdateRole(ctx, u.ID, "STAFF")
	if err != nil || got.Role != model.RoleStaff {
		t.Fatalf("update role = %+v, %v", got, err)
	}
	if _, err := users.UpdateRole(ctx, u.ID, "root"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bad role: err = %v", err)
	}
	if _, err := users.UpdateRole(ctx, 999, "user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err = %v", err)
	}
	list, _ := users.List(ctx)
	if len(list) != 2 {
		t.Fatalf("users = %d, want 2", len(list))
	}
}
