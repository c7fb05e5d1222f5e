package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/service"
)

// EventHandler serves the event catalog and speakers.
type EventHandler struct {
	Events   *service.EventService
	Bookings *service.BookingService
	Logger   *logrus.Logger
}

func NewEventHandler(ev *service.EventService, b *service.BookingService, logger *logrus.Logger) *EventHandler {
	return &EventHandler{Events: ev, Bookings: b, Logger: logger}
}

type createEventReq struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"max=255"`
	Date        time.Time `json:"date" validate:"required"`
	ImageURL    string    `json:"image_url" validate:"omitempty,url"`
	Capacity    int       `json:"capacity"`
}

type updateEventReq struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Date        *time.Time `json:"date"`
	ImageURL    *string    `json:"image_url" validate:"omitempty,url"`
	Capacity    *int       `json:"capacity"`
}

type createSpeakerReq struct {
	EventID  uint64 `json:"event_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=150"`
	Bio      string `json:"bio"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// List returns upcoming and past events, optionally filtered by ?search=
// on the title.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	evs, err := h.Events.List(ctx, strings.TrimSpace(c.QueryParam("search")))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(evs)})
}

func (h *EventHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Seats reports capacity, available seats and the taken seat keys.
func (h *EventHandler) Seats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Bookings.SeatsStatus(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.Create(ctx, service.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		ImageURL:    req.ImageURL,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update patches an event. Lowering capacity below the seats currently
// reserved is refused.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	var req updateEventReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ev, err := h.Events.Update(ctx, id, service.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		ImageURL:    req.ImageURL,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete removes an event with its bookings and speakers.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EventHandler) Speakers(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Events.Speakers(ctx, id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(sp)})
}

func (h *EventHandler) AddSpeaker(c echo.Context) error {
	var req createSpeakerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Events.AddSpeaker(ctx, service.SpeakerInput{
		EventID:  req.EventID,
		Name:     req.Name,
		Bio:      req.Bio,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *EventHandler) DeleteSpeaker(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "speaker id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.DeleteSpeaker(ctx, id); err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
