package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// qrSize is the edge length in pixels of ticket QR images.
const qrSize = 256

// BookingHandler serves booking requests, reviews and check-in.
type BookingHandler struct {
	Bookings *service.BookingService
	Logger   *logrus.Logger
}

func NewBookingHandler(b *service.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Logger: logger}
}

// seatReq is checked by the booking service so that seat errors carry
// the invalid_seats code.
type seatReq struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

type createBookingReq struct {
	EventID uint64    `json:"event_id" validate:"required"`
	Seats   []seatReq `json:"seats"`
}

type updateBookingReq struct {
	Status string `json:"status" validate:"required"`
}

type checkInReq struct {
	TicketCode string `json:"ticket_code" validate:"required"`
}

// Create submits a pending booking for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	seats := make([]model.Seat, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = model.Seat{Row: s.Row, Number: s.Number}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Create(ctx, uid, req.EventID, seats)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine lists the caller's bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	bs, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(bs)})
}

// owned loads a booking visible to the caller: the owner, staff or admin.
func (h *BookingHandler) owned(c echo.Context, id uint64) (model.Booking, error) {
	uid, _ := getUserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.UserID != uid && !isStaff(c) {
		return model.Booking{}, service.ErrNotOwner
	}
	return b, nil
}

// Get returns one booking.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	b, err := h.owned(c, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Update applies an owner status change; only "cancelled" is accepted.
func (h *BookingHandler) Update(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	var req updateBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Update(ctx, id, uid, req.Status)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel withdraws the caller's booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Cancel(ctx, id, uid)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled", "booking": b})
}

// Ticket renders the ticket code of a confirmed booking as a QR PNG.
// Only the owner may fetch it.
func (h *BookingHandler) Ticket(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	if b.UserID != uid {
		return writeError(c, h.Logger, service.ErrNotOwner)
	}
	if !b.Status.Confirmed() || b.TicketCode == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is issued on approval", "code": service.CodeOf(service.ErrNotApproved)})
	}
	png, err := qrcode.Encode(*b.TicketCode, qrcode.Medium, qrSize)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+*b.TicketCode+`.png"`)
	return c.Blob(http.StatusOK, "image/png", png)
}

// List returns bookings for review, filtered by ?event_id=, ?user_id=
// and ?status= (comma separated).
func (h *BookingHandler) List(c echo.Context) error {
	var f store.BookingFilter
	for param, dst := range map[string]*uint64{"event_id": &f.EventID, "user_id": &f.UserID} {
		if raw := c.QueryParam(param); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param, "code": "invalid_query"})
			}
			*dst = n
		}
	}
	for _, s := range strings.Split(c.QueryParam("status"), ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f.Statuses = append(f.Statuses, model.BookingStatus(s))
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	bs, err := h.Bookings.List(ctx, f)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(bs)})
}

// transition runs op on the :id path parameter and renders the result.
func (h *BookingHandler) transition(c echo.Context, op func(ctx context.Context, id uint64) (model.Booking, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := op(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Approve confirms a pending booking and issues its ticket code.
func (h *BookingHandler) Approve(c echo.Context) error {
	return h.transition(c, h.Bookings.Approve)
}

// Reject declines a pending booking.
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.transition(c, h.Bookings.Reject)
}

// CheckIn admits the holder of an approved booking. Repeating it is a
// no-op that returns the same booking.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	return h.transition(c, h.Bookings.CheckIn)
}

// CheckInByCode admits the holder of the posted ticket code.
func (h *BookingHandler) CheckInByCode(c echo.Context) error {
	var req checkInReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.CheckInByCode(ctx, req.TicketCode)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// VerifyTicket looks up a ticket code without changing anything.
func (h *BookingHandler) VerifyTicket(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Bookings.VerifyTicketCode(ctx, c.Param("code"))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, t)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
