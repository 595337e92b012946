package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

// StartEnroll arms card enrollment on a device: the next scan on that
// device binds the card instead of authenticating.
func (h *Handler) StartEnroll(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "device_id"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Message: "invalid device id", Code: 400, Error: err.Error()})
		return
	}

	device, err := h.devices.GetByID(r.Context(), id)
	if err != nil {
		log.Errorf("Error [DeviceStore.GetByID] %s", err)
		h.CreateResponse(w, Response{Message: "failed to get device", Code: 500, Error: err.Error()})
		return
	}
	if device == nil {
		h.CreateResponse(w, Response{Message: "device not found", Code: 404})
		return
	}

	var req struct {
		Label string `json:"label"`
	}
	if r.Body != nil {
		// label is optional, ignore a missing or empty body
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h.access.Sessions.Start(id, req.Label)
	log.Infof("card enrollment armed for device %d", id)

	h.CreateResponse(w, Response{Message: "enrollment armed", Code: 200})
}

// CancelEnroll disarms a pending enrollment session.
func (h *Handler) CancelEnroll(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "device_id"), 10, 64)
	if err != nil {
		h.CreateResponse(w, Response{Message: "invalid device id", Code: 400, Error: err.Error()})
		return
	}

	h.access.Sessions.Cancel(id)
	log.Infof("card enrollment cancelled for device %d", id)

	h.CreateResponse(w, Response{Message: "enrollment cancelled", Code: 200})
}

// StartFaceEnroll tells the AI worker to begin collecting frames for a
// named subject. The resulting embedding comes back on the AI socket.
func (h *Handler) StartFaceEnroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.CreateResponse(w, Response{Message: "subject name is required", Code: 400})
		return
	}

	h.hub.SendToAI("start-register", map[string]string{"name": req.Name})
	log.Infof("face registration armed for %s", req.Name)

	h.CreateResponse(w, Response{Message: "face registration started", Code: 200})
}
