package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/service"
)

func TestWriteErrorMapping(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", service.ErrNoSeatsSelected, http.StatusBadRequest, `"code":"no_seats_selected"`},
		{"wrapped validation", fmt.Errorf("%w: row %q", service.ErrInvalidSeats, "1"), http.StatusBadRequest, `"code":"invalid_seats"`},
		{"not found", service.ErrEventNotFound, http.StatusNotFound, `"code":"event_not_found"`},
		{"forbidden", service.ErrNotOwner, http.StatusForbidden, `"code":"not_owner"`},
		{"seat conflict", &service.SeatConflictError{SeatKey: "B7"}, http.StatusConflict, `"seat":"B7"`},
		{"capacity", service.ErrInsufficientCapacity, http.StatusUnprocessableEntity, `"code":"insufficient_capacity"`},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, `"error":"internal error"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := writeError(c, logger, tc.err); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("body %s lacks %s", rec.Body, tc.body)
			}
		})
	}
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := getUserID(c); ok {
		t.Fatal("empty context yielded an id")
	}
	c.Set(middleware.CtxUserID, uint64(9))
	if id, ok := getUserID(c); !ok || id != 9 {
		t.Fatalf("got %d %v", id, ok)
	}
	c.Set(middleware.CtxUserID, float64(3))
	if id, ok := getUserID(c); !ok || id != 3 {
		t.Fatalf("float claim: %d %v", id, ok)
	}
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&registerReq{Name: "n", Email: "not-an-email", Password: "123"})
	if err == nil {
		t.Fatal("invalid request passed")
	}
	msg := validationMessage(err)
	if !strings.Contains(msg, "email failed email") || !strings.Contains(msg, "password failed min") {
		t.Fatalf("message = %q", msg)
	}
}
