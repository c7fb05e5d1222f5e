package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/service"
)

// UserHandler exposes account administration.
type UserHandler struct {
	Users  *service.UserService
	Logger *logrus.Logger
}

func NewUserHandler(u *service.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: u, Logger: logger}
}

type updateRoleReq struct {
	Role string `json:"role" validate:"required"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	us, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(us)})
}

// UpdateRole sets a user's role to user, staff or admin.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "user id")
	}
	var req updateRoleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.UpdateRole(ctx, id, req.Role)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, u)
}
