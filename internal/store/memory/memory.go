// Package memory is an in-process implementation of store.Store.
// Transactions are serialized: BeginTx blocks until the previous
// transaction commits or rolls back, and each transaction works on a
// private copy of the data that replaces the shared copy on Commit.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// Store keeps events, bookings, speakers, users and refresh tokens in
// memory. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex // held for the lifetime of a transaction
	data *state

	users  *userStore
	tokens *tokenStore
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data:   newState(),
		users:  &userStore{byID: map[uint64]model.User{}},
		tokens: &tokenStore{byHash: map[string]*refreshRow{}},
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Users() store.UserStore   { return s.users }
func (s *Store) Tokens() store.TokenStore { return s.tokens }

// BeginTx waits for exclusive access and returns a transaction.
func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()
	if err := ctx.Err(); err != nil {
		s.txMu.Unlock()
		return nil, err
	}
	return &tx{owner: s, data: s.data.clone()}, nil
}

type state struct {
	events   map[uint64]model.Event
	bookings map[uint64]model.Booking
	speakers map[uint64]model.Speaker

	nextEvent, nextBooking, nextSpeaker uint64
}

func newState() *state {
	return &state{
		events:   map[uint64]model.Event{},
		bookings: map[uint64]model.Booking{},
		speakers: map[uint64]model.Speaker{},
	}
}

func (st *state) clone() *state {
	out := &state{
		events:      make(map[uint64]model.Event, len(st.events)),
		bookings:    make(map[uint64]model.Booking, len(st.bookings)),
		speakers:    make(map[uint64]model.Speaker, len(st.speakers)),
		nextEvent:   st.nextEvent,
		nextBooking: st.nextBooking,
		nextSpeaker: st.nextSpeaker,
	}
	for k, v := range st.events {
		out.events[k] = v
	}
	for k, v := range st.bookings {
		out.bookings[k] = v.Clone()
	}
	for k, v := range st.speakers {
		out.speakers[k] = v
	}
	return out
}

type tx struct {
	owner *Store
	data  *state
	done  bool
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.owner.data = t.data
	t.finish()
	return nil
}

func (t *tx) Rollback() error {
	if !t.done {
		t.finish()
	}
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.owner.txMu.Unlock()
}

// ----- events -----

func (t *tx) CreateEvent(_ context.Context, ev *model.Event) error {
	t.data.nextEvent++
	ev.ID = t.data.nextEvent
	t.data.events[ev.ID] = *ev
	return nil
}

func (t *tx) GetEvent(_ context.Context, id uint64) (model.Event, error) {
	ev, ok := t.data.events[id]
	if !ok {
		return model.Event{}, store.ErrNotFound
	}
	return ev, nil
}

// LockEvent is GetEvent; the transaction already has exclusive access.
func (t *tx) LockEvent(ctx context.Context, id uint64) (model.Event, error) {
	return t.GetEvent(ctx, id)
}

func (t *tx) ListEvents(_ context.Context, f store.EventFilter) ([]model.Event, error) {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Event, 0, len(t.data.events))
	for _, ev := range t.data.events {
		if q != "" && !strings.Contains(strings.ToLower(ev.Title), q) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) UpdateEvent(_ context.Context, ev *model.Event) error {
	if _, ok := t.data.events[ev.ID]; !ok {
		return store.ErrNotFound
	}
	t.data.events[ev.ID] = *ev
	return nil
}

// DeleteEvent removes the event with its bookings and speakers.
func (t *tx) DeleteEvent(_ context.Context, id uint64) error {
	if _, ok := t.data.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.data.events, id)
	for bid, b := range t.data.bookings {
		if b.EventID == id {
			delete(t.data.bookings, bid)
		}
	}
	for sid, sp := range t.data.speakers {
		if sp.EventID == id {
			delete(t.data.speakers, sid)
		}
	}
	return nil
}

func (t *tx) SetAvailableSeats(_ context.Context, eventID uint64, available int) error {
	ev, ok := t.data.events[eventID]
	if !ok {
		return store.ErrNotFound
	}
	ev.AvailableSeats = available
	t.data.events[eventID] = ev
	return nil
}

// ----- bookings -----

func (t *tx) CreateBooking(_ context.Context, b *model.Booking) error {
	if _, ok := t.data.events[b.EventID]; !ok {
		return store.ErrNotFound
	}
	for _, other := range t.data.bookings {
		if other.UserID == b.UserID && other.EventID == b.EventID {
			return store.ErrDuplicate
		}
		if b.TicketCode != nil && other.Code() == *b.TicketCode {
			return store.ErrDuplicate
		}
	}
	t.data.nextBooking++
	b.ID = t.data.nextBooking
	t.data.bookings[b.ID] = b.Clone()
	return nil
}

func (t *tx) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	b, ok := t.data.bookings[id]
	if !ok {
		return model.Booking{}, store.ErrNotFound
	}
	return b.Clone(), nil
}

func (t *tx) LockBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *tx) GetBookingByTicketCode(_ context.Context, code string) (model.Booking, error) {
	for _, b := range t.data.bookings {
		if b.TicketCode != nil && *b.TicketCode == code {
			return b.Clone(), nil
		}
	}
	return model.Booking{}, store.ErrNotFound
}

func (t *tx) FindBooking(_ context.Context, userID, eventID uint64) (model.Booking, error) {
	for _, b := range t.data.bookings {
		if b.UserID == userID && b.EventID == eventID {
			return b.Clone(), nil
		}
	}
	return model.Booking{}, store.ErrNotFound
}

// ListBookings returns matching bookings ordered by id.
func (t *tx) ListBookings(_ context.Context, f store.BookingFilter) ([]model.Booking, error) {
	var allowed map[model.BookingStatus]bool
	if len(f.Statuses) > 0 {
		allowed = make(map[model.BookingStatus]bool, len(f.Statuses))
		for _, s := range f.Statuses {
			allowed[s] = true
		}
	}
	out := []model.Booking{}
	for _, b := range t.data.bookings {
		if f.UserID != 0 && b.UserID != f.UserID {
			continue
		}
		if f.EventID != 0 && b.EventID != f.EventID {
			continue
		}
		if allowed != nil && !allowed[b.Status] {
			continue
		}
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateBooking(_ context.Context, b *model.Booking) error {
	cur, ok := t.data.bookings[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if b.TicketCode != nil && cur.Code() != *b.TicketCode {
		for id, other := range t.data.bookings {
			if id != b.ID && other.Code() == *b.TicketCode {
				return store.ErrDuplicate
			}
		}
	}
	// seats and ownership are immutable
	next := b.Clone()
	next.UserID, next.EventID, next.Seats = cur.UserID, cur.EventID, cur.Seats
	next.CreatedAt = cur.CreatedAt
	t.data.bookings[b.ID] = next
	return nil
}

func (t *tx) TicketCodeExists(_ context.Context, code string) (bool, error) {
	for _, b := range t.data.bookings {
		if b.TicketCode != nil && *b.TicketCode == code {
			return true, nil
		}
	}
	return false, nil
}

// ----- speakers -----

func (t *tx) CreateSpeaker(_ context.Context, sp *model.Speaker) error {
	if _, ok := t.data.events[sp.EventID]; !ok {
		return store.ErrNotFound
	}
	t.data.nextSpeaker++
	sp.ID = t.data.nextSpeaker
	t.data.speakers[sp.ID] = *sp
	return nil
}

func (t *tx) GetSpeaker(_ context.Context, id uint64) (model.Speaker, error) {
	sp, ok := t.data.speakers[id]
	if !ok {
		return model.Speaker{}, store.ErrNotFound
	}
	return sp, nil
}

func (t *tx) ListSpeakers(_ context.Context, eventID uint64) ([]model.Speaker, error) {
	out := []model.Speaker{}
	for _, sp := range t.data.speakers {
		if sp.EventID == eventID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) DeleteSpeaker(_ context.Context, id uint64) error {
	if _, ok := t.data.speakers[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.data.speakers, id)
	return nil
}

// ----- users -----

type userStore struct {
	mu     sync.RWMutex
	byID   map[uint64]model.User
	nextID uint64
}

func (u *userStore) Create(_ context.Context, usr *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(usr.Email))
	for _, other := range u.byID {
		if other.Email == email {
			return store.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u.nextID++
	usr.ID = u.nextID
	usr.Email = email
	usr.CreatedAt, usr.UpdatedAt = now, now
	u.byID[usr.ID] = *usr
	return nil
}

func (u *userStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, usr := range u.byID {
		if usr.Email == email {
			return usr, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (u *userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.byID[id]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return usr, nil
}

func (u *userStore) List(_ context.Context) ([]model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]model.User, 0, len(u.byID))
	for _, usr := range u.byID {
		out = append(out, usr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *userStore) UpdateRole(_ context.Context, id uint64, role string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	u.byID[id] = usr
	return nil
}

// ----- refresh tokens -----

type refreshRow struct {
	userID  uint64
	expires time.Time
	revoked bool
}

type tokenStore struct {
	mu     sync.Mutex
	byHash map[string]*refreshRow
}

func (t *tokenStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byHash[tokenHash]; ok {
		return store.ErrDuplicate
	}
	t.byHash[tokenHash] = &refreshRow{userID: userID, expires: exp}
	return nil
}

func (t *tokenStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.byHash[tokenHash]
	if !ok || row.revoked || time.Now().UTC().After(row.expires) {
		return 0, store.ErrNotFound
	}
	return row.userID, nil
}

func (t *tokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row, ok := t.byHash[tokenHash]; ok {
		row.revoked = true
	}
	return nil
}

func (t *tokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range t.byHash {
		if row.userID == userID {
			row.revoked = true
		}
	}
	return nil
}
