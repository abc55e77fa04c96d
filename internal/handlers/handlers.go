package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"geo-reminder/internal/geo"
	"geo-reminder/internal/idgen"
	"geo-reminder/internal/metrics"
	"geo-reminder/internal/monitor"
	"geo-reminder/internal/notify"
	"geo-reminder/internal/reminder"
	"geo-reminder/internal/storage"
	"geo-reminder/internal/tracker"
)

// Handlers serves the reminder API. Monitor, Positions, Prompter, Gate and
// Metrics are optional; their routes answer 503 when unset.
type Handlers struct {
	Store     storage.Storage
	Monitor   *monitor.Monitor
	Positions *tracker.PushSource
	Prompter  *notify.PendingPrompter
	Gate      *notify.Gate
	Metrics   *metrics.Metrics
	UserID    string // default owner for new reminders and listings
	Logger    *slog.Logger

	mu sync.Mutex // serializes read-modify-write on reminders
}

// Register adds every API route to r.
func (h *Handlers) Register(r *mux.Router) {
	// Reminder routes
	r.HandleFunc("/reminders", h.CreateReminderHandler).Methods("POST")
	r.HandleFunc("/reminders", h.ListRemindersHandler).Methods("GET")
	r.HandleFunc("/reminders/{id}", h.GetReminderHandler).Methods("GET")
	r.HandleFunc("/reminders/{id}", h.DeleteReminderHandler).Methods("DELETE")
	r.HandleFunc("/reminders/{id}", h.UpdateReminderHandler).Methods("PATCH")
	r.HandleFunc("/reminders/{id}/triggers", h.ListTriggerEventsHandler).Methods("GET")

	// Geolocation routes
	r.HandleFunc("/positions", h.PushPositionHandler).Methods("POST")
	r.HandleFunc("/positions/errors", h.PushPositionErrorHandler).Methods("POST")
	r.HandleFunc("/status", h.StatusHandler).Methods("GET")

	// Notification permission routes
	r.HandleFunc("/notifications/permission", h.GetPermissionHandler).Methods("GET")
	r.HandleFunc("/notifications/permission", h.AnswerPermissionHandler).Methods("POST")

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handlers) logRequest(r *http.Request, status int, msg string, args ...any) {
	attrs := append([]any{"method", r.Method, "path", r.URL.Path, "user_agent", r.UserAgent(), "status", status}, args...)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status >= 500 {
		h.logger().Error(msg, attrs...)
		return
	}
	h.logger().Info(msg, attrs...)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
	h.logRequest(r, status, "")
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	http.Error(w, err.Error(), status)
	h.logRequest(r, status, http.StatusText(status), "error", err)
}

// storageStatus maps storage and validation errors to HTTP status codes.
func storageStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reminder.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody reads the request body, logging it when it is not valid JSON.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		h.logRequest(r, http.StatusBadRequest, "failed to read body", "error", err)
		return false
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body)) // Reset body for further reading

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		h.logRequest(r, http.StatusBadRequest, "invalid JSON", "error", err, "body", string(body))
		return false
	}
	return true
}

func (h *Handlers) refresh() {
	if h.Monitor != nil {
		h.Monitor.Refresh()
	}
}

// Reminder Handlers
func (h *Handlers) CreateReminderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string             `json:"user_id"`
		Task         string             `json:"task"`
		LocationName string             `json:"location_name"`
		Address      string             `json:"address"`
		Frequency    reminder.Frequency `json:"frequency"`
		Notes        string             `json:"notes"`
		Coordinates  *geo.Coordinate    `json:"coordinates"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = h.UserID
	}

	id, err := idgen.ReminderID()
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	re := reminder.NewReminder(id, req.UserID, req.Task, req.LocationName, req.Address, req.Frequency, req.Coordinates)
	re.Notes = req.Notes
	if err := re.Validate(); err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}

	h.mu.Lock()
	err = h.Store.CreateReminder(r.Context(), re)
	h.mu.Unlock()
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	h.refresh()
	h.writeJSON(w, r, http.StatusCreated, re)
}

func (h *Handlers) GetReminderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	re, err := h.Store.GetReminder(r.Context(), id)
	if err != nil {
		h.fail(w, r, storageStatus(err), err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, re)
}

// ListRemindersHandler lists newest first. The user_id query parameter
// overrides the configured user.
func (h *Handlers) ListRemindersHandler(w http.ResponseWriter, r *http.Request) {
	userID := h.UserID
	if q := r.URL.Query().Get("user_id"); q != "" {
		userID = q
	}
	list, err := h.Store.ListReminders(r.Context(), userID)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*reminder.Reminder{}
	}
	h.writeJSON(w, r, http.StatusOK, list)
}

func (h *Handlers) DeleteReminderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.mu.Lock()
	err := h.Store.DeleteReminder(r.Context(), id)
	h.mu.Unlock()
	if err != nil {
		h.fail(w, r, storageStatus(err), err)
		return
	}
	h.refresh()
	w.WriteHeader(http.StatusNoContent)
	h.logRequest(r, http.StatusNoContent, "")
}

func (h *Handlers) UpdateReminderHandler(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.Store.GetReminder(req.Context(), id)
	if err != nil {
		h.fail(w, req, storageStatus(err), err)
		return
	}
	// Read and decode partial update
	var patch map[string]json.RawMessage
	if !h.decodeBody(w, req, &patch) {
		return
	}

	updated := false
	for k, v := range patch {
		var s string
		switch k {
		case "task", "location_name", "address", "frequency", "notes":
			if err := json.Unmarshal(v, &s); err != nil {
				h.fail(w, req, http.StatusBadRequest, errors.New(k+" must be a string"))
				return
			}
		}
		switch k {
		case "task":
			r.Task = s
		case "location_name":
			r.LocationName = s
		case "address":
			r.Address = s
		case "frequency":
			r.Frequency = reminder.Frequency(strings.ToLower(s))
		case "notes":
			r.Notes = s
		case "coordinates":
			var c *geo.Coordinate
			if err := json.Unmarshal(v, &c); err != nil {
				h.fail(w, req, http.StatusBadRequest, err)
				return
			}
			r.Coordinates = c
		default:
			continue
		}
		updated = true
	}

	if updated {
		if err := r.Validate(); err != nil {
			h.fail(w, req, http.StatusBadRequest, err)
			return
		}
		r.Touch()
		if err := h.Store.CreateReminder(req.Context(), r); err != nil { // Overwrite existing
			h.fail(w, req, http.StatusInternalServerError, err)
			return
		}
		h.refresh()
	}
	h.writeJSON(w, req, http.StatusOK, r)
}

func (h *Handlers) ListTriggerEventsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	list, err := h.Store.ListTriggerEvents(r.Context(), id)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*reminder.TriggerEvent{}
	}
	h.writeJSON(w, r, http.StatusOK, list)
}

// Geolocation Handlers
var errNoPushSource = errors.New("positions are not accepted over HTTP")

// PushPositionHandler feeds one fix to the tracker. The response reports how
// many watches received it.
func (h *Handlers) PushPositionHandler(w http.ResponseWriter, r *http.Request) {
	if h.Positions == nil {
		h.fail(w, r, http.StatusServiceUnavailable, errNoPushSource)
		return
	}
	var pos geo.Position
	if !h.decodeBody(w, r, &pos) {
		return
	}
	if !pos.Valid() {
		h.fail(w, r, http.StatusBadRequest, errors.New("position coordinates out of range"))
		return
	}
	n := h.Positions.Push(pos)
	h.writeJSON(w, r, http.StatusAccepted, map[string]int{"delivered": n})
}

func (h *Handlers) PushPositionErrorHandler(w http.ResponseWriter, r *http.Request) {
	if h.Positions == nil {
		h.fail(w, r, http.StatusServiceUnavailable, errNoPushSource)
		return
	}
	var acqErr tracker.AcquisitionError
	if !h.decodeBody(w, r, &acqErr) {
		return
	}
	if acqErr.Code == 0 {
		acqErr.Code = tracker.PositionUnavailable
	}
	n := h.Positions.Fail(&acqErr)
	h.writeJSON(w, r, http.StatusAccepted, map[string]int{"delivered": n})
}

func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.Monitor == nil {
		h.fail(w, r, http.StatusServiceUnavailable, errors.New("geofencing is not running"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.Monitor.Status())
}

// Notification permission Handlers
type permissionResponse struct {
	State    notify.PermissionState `json:"state"`
	Pending  bool                   `json:"pending"`
	Answered int                    `json:"answered,omitempty"`
}

func (h *Handlers) permission() permissionResponse {
	var resp permissionResponse
	if h.Gate != nil {
		resp.State = h.Gate.State()
	}
	if h.Prompter != nil {
		resp.Pending = h.Prompter.Pending()
	}
	return resp
}

func (h *Handlers) GetPermissionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.permission())
}

// AnswerPermissionHandler answers every pending permission prompt.
func (h *Handlers) AnswerPermissionHandler(w http.ResponseWriter, r *http.Request) {
	if h.Prompter == nil {
		h.fail(w, r, http.StatusServiceUnavailable, errors.New("notification permission is not prompted"))
		return
	}
	var req struct {
		Granted *bool `json:"granted"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Granted == nil {
		h.fail(w, r, http.StatusBadRequest, errors.New("granted is required"))
		return
	}
	n := h.Prompter.Answer(*req.Granted)
	resp := h.permission()
	resp.Answered = n
	h.writeJSON(w, r, http.StatusOK, resp)
}
