package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// device/worker sockets and health stay public
		r.Get("/ws", h.HandleDashboardSocket)
		r.Get("/ai", h.HandleAISocket)
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/devices", h.ListDevices)
			r.Post("/devices", h.CreateDevice)
			r.Get("/devices/{device_id}", h.GetDevice)
			r.Post("/devices/{device_id}/switch_mode", h.SwitchMode)
			r.Post("/devices/{device_id}/switch_door", h.SwitchDoor)

			r.Post("/devices/{device_id}/enroll", h.StartEnroll)
			r.Delete("/devices/{device_id}/enroll", h.CancelEnroll)
			r.Post("/faces/enroll", h.StartFaceEnroll)

			r.Get("/access_logs", h.ListAccessLogs)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 4501100,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
