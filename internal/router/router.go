package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Handlers groups everything the router wires.
type Handlers struct {
	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Bookings *handler.BookingHandler
	Users    *handler.UserHandler
}

// Register mounts every route group. cache may be nil.
func Register(e *echo.Echo, h Handlers, jwtSecret string, cache *middleware.ResponseCache) {
	RegisterRoutes(e)
	RegisterAuth(e, h.Auth, jwtSecret)
	RegisterPublic(e, h.Events, cache)
	RegisterBookings(e, h.Bookings, jwtSecret, cache)
	RegisterStaff(e, h.Bookings, jwtSecret, cache)
	RegisterAdmin(e, h, jwtSecret, cache)
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers token issuance under /v1/auth and the profile
// endpoint under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout accepts either a bearer token or a refresh token
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the guest-visible catalog. Seat status is
// served uncached.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler, cache *middleware.ResponseCache) {
	cached := cache.Middleware()
	e.GET("/v1/events", h.List, cached)
	e.GET("/v1/events/:id", h.Get, cached)
	e.GET("/v1/events/:id/speakers", h.Speakers, cached)
	e.GET("/v1/events/:id/seats", h.Seats)
}

// RegisterBookings registers the endpoints available to every signed-in
// user.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, cache *middleware.ResponseCache) {
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin),
		cache.PurgeOnWrite(),
	)
	g.POST("", h.Create)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Cancel)
	g.GET("/:id/ticket.png", h.Ticket)
}

// RegisterStaff registers venue check-in endpoints for staff and admins.
func RegisterStaff(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, cache *middleware.ResponseCache) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
		cache.PurgeOnWrite(),
	}
	e.POST("/v1/bookings/:id/checkin", h.CheckIn, mw...)
	e.POST("/v1/checkin", h.CheckInByCode, mw...)
	e.GET("/v1/tickets/:code", h.VerifyTicket, mw...)
}

// RegisterAdmin registers booking review, catalog management and user
// administration.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string, cache *middleware.ResponseCache) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		cache.PurgeOnWrite(),
	}
	e.GET("/v1/bookings", h.Bookings.List, mw...)
	e.POST("/v1/bookings/:id/approve", h.Bookings.Approve, mw...)
	e.POST("/v1/bookings/:id/reject", h.Bookings.Reject, mw...)

	e.POST("/v1/events", h.Events.Create, mw...)
	e.PUT("/v1/events/:id", h.Events.Update, mw...)
	e.DELETE("/v1/events/:id", h.Events.Delete, mw...)
	e.POST("/v1/speakers", h.Events.AddSpeaker, mw...)
	e.DELETE("/v1/speakers/:id", h.Events.DeleteSpeaker, mw...)

	e.GET("/v1/users", h.Users.List, mw...)
	e.PATCH("/v1/users/:id/role", h.Users.UpdateRole, mw...)
}
