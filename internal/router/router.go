// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"

    "hostel-pms/internal/handler"
)

// RegisterRoutes registers the unauthenticated service routes.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterReservations registers the reservation CRUD endpoints and the
// notification trigger endpoints under /v1.  Middleware passed here (the
// rate limiter) applies to this group only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, mw ...echo.MiddlewareFunc) {
    g := e.Group("/v1/reservations", mw...)
    g.POST("", h.Create)
    g.GET("/:id", h.Get)
    g.PUT("/:id/guest-contact", h.UpdateGuestContact)
    g.POST("/:id/send-invitation", h.SendInvitation)
    g.POST("/:id/generate-pin-and-send", h.GeneratePinAndSend)
    g.POST("/:id/send-passcode", h.SendPasscode)
}

// RegisterWebhooks registers the inbound provider webhook.  This route must
// stay outside any rate-limit group: provider retries on 429 would delay the
// very events that open the guest's session window.
func RegisterWebhooks(e *echo.Echo, h *handler.WebhookHandler) {
    e.POST("/v1/webhooks/whatsapp", h.Receive)
}
