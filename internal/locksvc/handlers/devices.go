package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/openlock/access-services/internal/locksvc/models"
)

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		log.Errorf("Error [DeviceStore.List] %s", err)
		h.CreateResponse(w, Response{Message: "failed to list devices", Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "devices", Code: 200, Data: devices})
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
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

	h.CreateResponse(w, Response{Message: "device", Code: 200, Data: device})
}

// CreateDevice provisions a device ahead of hardware arrival; its chip ids
// get claimed by the resolver when the boards first report.
func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.CreateResponse(w, Response{Message: "device name is required", Code: 400})
		return
	}

	device, err := h.devices.Create(r.Context(), req.Name, "", "")
	if err != nil {
		log.Errorf("Error [DeviceStore.Create] %s", err)
		h.CreateResponse(w, Response{Message: "failed to create device", Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "device created", Code: 201, Data: device})
}

// SwitchMode toggles the device between single-factor and dual-factor policy.
func (h *Handler) SwitchMode(w http.ResponseWriter, r *http.Request) {
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

	policy := models.PolicyAND
	if device.Policy == models.PolicyAND {
		policy = models.PolicyOR
	}

	if err := h.devices.UpdatePolicy(r.Context(), id, policy); err != nil {
		log.Errorf("Error [DeviceStore.UpdatePolicy] %s", err)
		h.CreateResponse(w, Response{Message: "failed to switch mode", Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "mode switched", Code: 200, Data: map[string]string{"policy": policy}})
}

// SwitchDoor toggles the recorded door state.
func (h *Handler) SwitchDoor(w http.ResponseWriter, r *http.Request) {
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

	state := models.DoorOpen
	if device.DoorState == models.DoorOpen {
		state = models.DoorClosed
	}

	if err := h.devices.UpdateDoorState(r.Context(), id, state); err != nil {
		log.Errorf("Error [DeviceStore.UpdateDoorState] %s", err)
		h.CreateResponse(w, Response{Message: "failed to switch door", Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "door switched", Code: 200, Data: map[string]string{"door_state": state}})
}

func (h *Handler) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.logs.ListRecent(r.Context(), limit)
	if err != nil {
		log.Errorf("Error [AccessLogStore.ListRecent] %s", err)
		h.CreateResponse(w, Response{Message: "failed to list access logs", Code: 500, Error: err.Error()})
		return
	}

	h.CreateResponse(w, Response{Message: "access logs", Code: 200, Data: logs})
}
