package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/store/memory"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

const secret = "router-test-secret"

type app struct {
	t     *testing.T
	e     *echo.Echo
	st    *memory.Store
	admin string
	staff string
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := memory.New()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	bookings := service.NewBookingService(st, nil, logger)
	events := service.NewEventService(st, logger)
	users := service.NewUserService(st.Users(), logger)

	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, Handlers{
		Auth:     handler.NewAuthHandler(cfg, st.Users(), st.Tokens(), logger),
		Events:   handler.NewEventHandler(events, bookings, logger),
		Bookings: handler.NewBookingHandler(bookings, logger),
		Users:    handler.NewUserHandler(users, logger),
	}, secret, nil)

	a := &app{t: t, e: e, st: st}
	a.admin = a.token(a.user("admin@example.com", model.RoleAdmin), model.RoleAdmin)
	a.staff = a.token(a.user("staff@example.com", model.RoleStaff), model.RoleStaff)
	return a
}

func (a *app) user(email, role string) uint64 {
	a.t.Helper()
	u := model.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	if err := a.st.Users().Create(context.Background(), &u); err != nil {
		a.t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (a *app) token(id uint64, role string) string {
	a.t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 15)
	if err != nil {
		a.t.Fatal(err)
	}
	return tok.Token
}

func (a *app) customer(email string) string {
	return a.token(a.user(email, model.RoleUser), model.RoleUser)
}

func (a *app) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		bs, _ := json.Marshal(body)
		rd = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func (a *app) createEvent(capacity int) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/v1/events", a.admin, map[string]any{
		"title":    "Ideas Worth Spreading",
		"date":     "2026-11-20T18:00:00Z",
		"capacity": capacity,
	})
	if code != http.StatusCreated {
		a.t.Fatalf("create event: %d %v", code, body)
	}
	return idOf(body)
}

func idOf(body map[string]any) string {
	return jsonNumber(body["id"])
}

func jsonNumber(v any) string {
	f, _ := v.(float64)
	bs, _ := json.Marshal(f)
	return string(bs)
}

func seat(row string, n int) map[string]any { return map[string]any{"row": row, "number": n} }

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(2)
	alice, bob := a.customer("alice@example.com"), a.customer("bob@example.com")

	code, aliceBooking := a.do(http.MethodPost, "/v1/bookings", alice, map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat("A", 1)},
	})
	if code != http.StatusCreated || aliceBooking["status"] != "pending" {
		t.Fatalf("alice create: %d %v", code, aliceBooking)
	}

	code, body := a.do(http.MethodPost, "/v1/bookings", bob, map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat(" A ", 1)},
	})
	if code != http.StatusConflict || body["code"] != "seat_conflict" || body["seat"] != "A1" {
		t.Fatalf("bob conflict: %d %v", code, body)
	}
	code, bobBooking := a.do(http.MethodPost, "/v1/bookings", bob, map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat("A", 2)},
	})
	if code != http.StatusCreated {
		t.Fatalf("bob create: %d %v", code, bobBooking)
	}

	// only admins review
	if code, _ := a.do(http.MethodPost, "/v1/bookings/"+idOf(aliceBooking)+"/approve", a.staff, nil); code != http.StatusForbidden {
		t.Fatalf("staff approve: %d", code)
	}
	code, approved := a.do(http.MethodPost, "/v1/bookings/"+idOf(aliceBooking)+"/approve", a.admin, nil)
	if code != http.StatusOK || approved["status"] != "approved" {
		t.Fatalf("approve: %d %v", code, approved)
	}
	ticket, _ := approved["ticket_code"].(string)
	if !regexp.MustCompile(`^TEDX-[A-Z0-9]{6}$`).MatchString(ticket) {
		t.Fatalf("ticket code %q", ticket)
	}
	if code, _ := a.do(http.MethodPost, "/v1/bookings/"+idOf(bobBooking)+"/reject", a.admin, nil); code != http.StatusOK {
		t.Fatalf("reject: %d", code)
	}

	code, seats := a.do(http.MethodGet, "/v1/events/"+evID+"/seats", "", nil)
	if code != http.StatusOK || seats["available"] != float64(1) || seats["total"] != float64(2) {
		t.Fatalf("seats: %d %v", code, seats)
	}

	code, first := a.do(http.MethodPost, "/v1/checkin", a.staff, map[string]any{"ticket_code": ticket})
	if code != http.StatusOK || first["status"] != "checked_in" {
		t.Fatalf("checkin: %d %v", code, first)
	}
	_, second := a.do(http.MethodPost, "/v1/checkin", a.staff, map[string]any{"ticket_code": ticket})
	if first["checked_in_at"] != second["checked_in_at"] {
		t.Fatalf("check-in not idempotent: %v vs %v", first["checked_in_at"], second["checked_in_at"])
	}

	if code, _ := a.do(http.MethodDelete, "/v1/bookings/"+idOf(aliceBooking), alice, nil); code != http.StatusConflict {
		t.Fatalf("cancel checked-in: %d", code)
	}
}

func TestCapacityErrorIsDistinct(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(1)
	code, body := a.do(http.MethodPost, "/v1/bookings", a.customer("c@example.com"), map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat("A", 1), seat("A", 2)},
	})
	if code != http.StatusUnprocessableEntity || body["code"] != "insufficient_capacity" {
		t.Fatalf("got %d %v", code, body)
	}
}

func TestBookingValidationAndAuth(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(5)
	user := a.customer("v@example.com")

	if code, _ := a.do(http.MethodPost, "/v1/bookings", "", map[string]any{"event_id": 1}); code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", code)
	}
	code, body := a.do(http.MethodPost, "/v1/bookings", user, map[string]any{"event_id": json.Number(evID), "seats": []any{}})
	if code != http.StatusBadRequest || body["code"] != "no_seats_selected" {
		t.Fatalf("empty seats: %d %v", code, body)
	}
	code, body = a.do(http.MethodPost, "/v1/bookings", user, map[string]any{"event_id": 999, "seats": []any{seat("A", 1)}})
	if code != http.StatusNotFound || body["code"] != "event_not_found" {
		t.Fatalf("missing event: %d %v", code, body)
	}
	if code, _ := a.do(http.MethodGet, "/v1/users", user, nil); code != http.StatusForbidden {
		t.Fatalf("user lists users: %d", code)
	}
}

func TestOwnerCancelAndUpdate(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(3)
	owner, other := a.customer("o@example.com"), a.customer("x@example.com")

	_, b := a.do(http.MethodPost, "/v1/bookings", owner, map[string]any{"event_id": json.Number(evID), "seats": []any{seat("B", 1)}})
	path := "/v1/bookings/" + idOf(b)

	if code, _ := a.do(http.MethodGet, path, other, nil); code != http.StatusForbidden {
		t.Fatalf("foreign get: %d", code)
	}
	if code, _ := a.do(http.MethodGet, path, a.staff, nil); code != http.StatusOK {
		t.Fatalf("staff get: %d", code)
	}
	if code, body := a.do(http.MethodPatch, path, owner, map[string]any{"status": "approved"}); code != http.StatusBadRequest || body["code"] != "invalid_status" {
		t.Fatalf("self approve: %d %v", code, body)
	}
	if code, _ := a.do(http.MethodPatch, path, other, map[string]any{"status": "cancelled"}); code != http.StatusForbidden {
		t.Fatalf("foreign cancel: %d", code)
	}
	code, body := a.do(http.MethodPatch, path, owner, map[string]any{"status": "Cancelled"})
	if code != http.StatusOK || body["status"] != "cancelled" {
		t.Fatalf("cancel: %d %v", code, body)
	}
	if code, body := a.do(http.MethodDelete, path, owner, nil); code != http.StatusConflict || body["code"] != "already_cancelled" {
		t.Fatalf("second cancel: %d %v", code, body)
	}
}

func TestTicketQR(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(3)
	owner := a.customer("qr@example.com")
	_, b := a.do(http.MethodPost, "/v1/bookings", owner, map[string]any{"event_id": json.Number(evID), "seats": []any{seat("C", 3)}})
	path := "/v1/bookings/" + idOf(b) + "/ticket.png"

	if code, _ := a.do(http.MethodGet, path, owner, nil); code != http.StatusConflict {
		t.Fatalf("pending ticket: %d", code)
	}
	a.do(http.MethodPost, "/v1/bookings/"+idOf(b)+"/approve", a.admin, nil)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+owner)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Fatalf("ticket: %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("body is not a PNG")
	}
}

func TestAuthRoundTrip(t *testing.T) {
	a := newApp(t)
	code, body := a.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Dana", "email": "Dana@Example.com", "password": "s3cret-pass",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: %d %v", code, body)
	}
	if code, _ := a.do(http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	}); code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", code)
	}
	if code, _ := a.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "dana@example.com", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", code)
	}
	code, login := a.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "dana@example.com", "password": "s3cret-pass"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, login)
	}
	access := login["access"].(map[string]any)["token"].(string)
	refresh := login["refresh"].(map[string]any)["token"].(string)

	code, me := a.do(http.MethodGet, "/v1/me", access, nil)
	if code != http.StatusOK || me["role"] != "user" || me["email"] != "dana@example.com" {
		t.Fatalf("me: %d %v", code, me)
	}

	code, rotated := a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	if code != http.StatusOK {
		t.Fatalf("refresh: %d %v", code, rotated)
	}
	if code, _ := a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh}); code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: %d", code)
	}
	newRefresh := rotated["refresh"].(map[string]any)["token"].(string)
	if code, _ := a.do(http.MethodPost, "/v1/auth/logout", "", map[string]any{"refresh_token": newRefresh}); code != http.StatusNoContent {
		t.Fatalf("logout: %d", code)
	}
}

func TestAdminCatalogAndUsers(t *testing.T) {
	a := newApp(t)
	if code, body := a.do(http.MethodPost, "/v1/events", a.admin, map[string]any{
		"title": "Too big", "date": "2026-11-20T18:00:00Z", "capacity": 1001,
	}); code != http.StatusBadRequest || body["code"] != "invalid_capacity" {
		t.Fatalf("capacity bound: %d %v", code, body)
	}
	evID := a.createEvent(4)

	code, sp := a.do(http.MethodPost, "/v1/speakers", a.admin, map[string]any{"event_id": json.Number(evID), "name": "Ada"})
	if code != http.StatusCreated {
		t.Fatalf("speaker: %d %v", code, sp)
	}
	code, list := a.do(http.MethodGet, "/v1/events/"+evID+"/speakers", "", nil)
	if items, _ := list["items"].([]any); code != http.StatusOK || len(items) != 1 {
		t.Fatalf("speakers: %d %v", code, list)
	}

	code, upd := a.do(http.MethodPut, "/v1/events/"+evID, a.admin, map[string]any{"capacity": 2})
	if code != http.StatusOK || upd["capacity"] != float64(2) || upd["available_seats"] != float64(2) {
		t.Fatalf("update: %d %v", code, upd)
	}

	uid := a.user("promote@example.com", model.RoleUser)
	code, u := a.do(http.MethodPatch, "/v1/users/"+jsonNumber(float64(uid))+"/role", a.admin, map[string]any{"role": "STAFF"})
	if code != http.StatusOK || u["role"] != "staff" {
		t.Fatalf("role: %d %v", code, u)
	}

	if code, _ := a.do(http.MethodDelete, "/v1/events/"+evID, a.admin, nil); code != http.StatusNoContent {
		t.Fatalf("delete: %d", code)
	}
	if code, _ := a.do(http.MethodGet, "/v1/events/"+evID, "", nil); code != http.StatusNotFound {
		t.Fatalf("deleted event: %d", code)
	}
}

func TestMalformedBookingIDIsBadRequest(t *testing.T) {
	a := newApp(t)
	user := a.customer("ids@example.com")
	for _, path := range []string{"/v1/bookings/abc", "/v1/bookings/0"} {
		code, body := a.do(http.MethodGet, path, user, nil)
		if code != http.StatusBadRequest || body["code"] != "invalid_id" {
			t.Fatalf("GET %s: %d %v", path, code, body)
		}
	}
	if code, _ := a.do(http.MethodGet, "/v1/bookings/42", user, nil); code != http.StatusNotFound {
		t.Fatalf("missing booking: %d", code)
	}
}

func TestNamedRowsOverHTTP(t *testing.T) {
	a := newApp(t)
	evID := a.createEvent(5)
	code, body := a.do(http.MethodPost, "/v1/bookings", a.customer("rows@example.com"), map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat("Balcony", 1), seat("VIP-A", 2)},
	})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, body)
	}
	code, body = a.do(http.MethodPost, "/v1/bookings", a.customer("rows2@example.com"), map[string]any{
		"event_id": json.Number(evID), "seats": []any{seat("VIP-A", 2)},
	})
	if code != http.StatusConflict || body["seat"] != "VIP-A2" {
		t.Fatalf("conflict: %d %v", code, body)
	}
}
