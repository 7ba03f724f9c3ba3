package registration_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/confirmation"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/notifier"
	"ms-registration/internal/registration"
	"ms-registration/internal/utils"
)

// User-facing messages posted to the notifier.
const (
	MsgRegistrationCompleted = "Registration completed successfully!"
	MsgEventFullyBooked      = "This event is fully booked!"
	MsgEventUnavailable      = "Selected event is no longer available!"
	MsgAlreadyRegistered     = "You are already registered for this event!"
	MsgSaveFailed            = "Your registration could not be saved. Please try again."
	MsgNotReady              = "Event data is not available right now. Please try again later."
	MsgCodesUnavailable      = "Confirmation codes are not available."
)

type Handler struct {
	Store       *registration.Store
	Notifier    *notifier.Notifier
	QRGenerator *confirmation.QRGenerator
	Logger      *logger.Logger
}

func NewHandler(store *registration.Store, n *notifier.Notifier, qr *confirmation.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{
		Store:       store,
		Notifier:    n,
		QRGenerator: qr,
		Logger:      log,
	}
}

// RegisterRoutes mounts the API under /api on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/registrable", h.ListRegistrableEvents)
			r.Get("/{eventId}", h.GetEvent)
			r.Post("/{eventId}/register", h.PrepareRegistration)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Post("/", h.SubmitRegistration)
			r.Get("/", h.ListRegistrations)
			r.Get("/{registrationId}/qr", h.RegistrationQR)
		})

		r.Post("/checkin", h.Checkin)

		r.Get("/messages", h.ListMessages)
		r.Delete("/messages", h.ClearMessages)

		r.Post("/admin/reset", h.Reset)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", map[string]bool{
		"initialized": h.Store.Initialized(),
	}))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := h.Store.ListEvents()
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, NewEventView(e))
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events", views))
}

func (h *Handler) ListRegistrableEvents(w http.ResponseWriter, r *http.Request) {
	options := []EventOption{}
	for e := range h.Store.ListRegistrableEvents() {
		options = append(options, EventOption{Value: e.ID, Label: e.Name})
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("registrable events", options))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := h.Store.FindEvent(eventID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event", NewEventView(event)))
}

// PrepareRegistration handles the events table button. It never mutates
// the store.
func (h *Handler) PrepareRegistration(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := h.Store.PrepareRegistration(eventID)
	if err != nil {
		if errors.Is(err, registration.ErrEventFullyBooked) || errors.Is(err, registration.ErrEventNotFound) {
			h.Notifier.Error(MsgEventFullyBooked)
			utils.WriteJSON(w, statusFor(err), utils.ErrorResponse(MsgEventFullyBooked, err.Error()))
			return
		}
		h.writeStoreError(w, err)
		return
	}

	msg := fmt.Sprintf("Please complete the registration form for %q.", event.Name)
	h.Notifier.Success(msg)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(msg, PrefillView{
		SelectedEvent: event.ID,
		EventName:     event.Name,
	}))
}

func (h *Handler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitRegistration: failed to decode body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	// an unparsable selection is reported by the validator as "no event selected"
	eventID, _ := strconv.Atoi(strings.TrimSpace(string(req.SelectedEvent)))

	reg, err := h.Store.RegisterStudent(r.Context(), req.StudentName, req.StudentID, eventID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	conf := confirmation.FromRegistration(reg)
	result := RegistrationResult{
		Registration: reg,
		Confirmation: conf,
		DisplayDate:  utils.FormatLongDate(reg.RegistrationDate),
	}
	if h.QRGenerator != nil {
		code, err := h.QRGenerator.Encode(conf)
		if err != nil {
			h.Logger.Error("API", fmt.Sprintf("SubmitRegistration: failed to encode confirmation %d: %v", reg.ID, err))
		} else {
			result.ConfirmationCode = code
		}
	}

	h.Notifier.Confirmation(conf)
	h.Notifier.Success(MsgRegistrationCompleted)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse(MsgRegistrationCompleted, result))
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("registrations", h.Store.ListRegistrations()))
}

func (h *Handler) RegistrationQR(w http.ResponseWriter, r *http.Request) {
	if !h.codesEnabled(w) {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "registrationId"), 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid registration id", err.Error()))
		return
	}

	reg, ok := h.Store.FindRegistration(id)
	if !ok {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Registration not found", fmt.Sprintf("no registration with id %d", id)))
		return
	}

	png, err := h.QRGenerator.GenerateEncryptedQR(confirmation.FromRegistration(reg))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegistrationQR: failed to generate QR for %d: %v", id, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to generate QR code", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegistrationQR: failed to write response: %v", err))
	}
}

// Checkin decodes a confirmation code and matches it against the stored
// registration. Expected POST body: {"code": "..."}
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	if !h.codesEnabled(w) {
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "code is required"))
		return
	}

	conf, err := h.QRGenerator.Decode(strings.TrimSpace(body.Code))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid confirmation code", err.Error()))
		return
	}

	reg, ok := h.Store.FindRegistration(conf.RegistrationID)
	if !ok || reg.StudentID != conf.StudentID {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Registration not found", fmt.Sprintf("no registration %d for student %s", conf.RegistrationID, conf.StudentID)))
		return
	}

	h.Logger.LogRegistration("CHECKIN", reg.ID, fmt.Sprintf("%s checked in for %s", reg.StudentID, reg.EventName))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration verified", confirmation.FromRegistration(reg)))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("messages", h.Notifier.Active()))
}

func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	h.Notifier.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Reset wipes both records and reseeds the built-in events.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ResetAll(r.Context()); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.Store.Initialize(r.Context()); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.Notifier.Clear()

	h.Logger.Warn("API", "Reset: store wiped and reseeded")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event data reset", map[string]int{
		"events":        len(h.Store.ListEvents()),
		"registrations": len(h.Store.ListRegistrations()),
	}))
}

// codesEnabled writes a 503 when no QR generator is configured.
func (h *Handler) codesEnabled(w http.ResponseWriter) bool {
	if h.QRGenerator == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse(MsgCodesUnavailable, "no QR generator configured"))
		return false
	}
	return true
}

func (h *Handler) eventIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "eventId")
	id, err := strconv.Atoi(raw)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid event id", fmt.Sprintf("%q is not an event id", raw)))
		return 0, false
	}
	return id, true
}

// writeStoreError posts the user-facing message for err and writes the
// matching error envelope.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var validationErr *registration.ValidationError
	if errors.As(err, &validationErr) {
		for _, v := range validationErr.Violations {
			h.Notifier.Error(v)
		}
		resp := utils.ErrorResponse(strings.Join(validationErr.Violations, " "), err.Error())
		resp.Data = validationErr.Violations
		utils.WriteJSON(w, status, resp)
		return
	}

	var msg string
	switch {
	case errors.Is(err, registration.ErrEventNotFound), errors.Is(err, registration.ErrEventFullyBooked):
		msg = MsgEventUnavailable
	case errors.Is(err, registration.ErrDuplicateRegistration):
		msg = MsgAlreadyRegistered
	case errors.Is(err, registration.ErrNotInitialized):
		msg = MsgNotReady
	default:
		msg = MsgSaveFailed
		h.Logger.Error("API", fmt.Sprintf("store failure: %v", err))
	}

	h.Notifier.Error(msg)
	utils.WriteJSON(w, status, utils.ErrorResponse(msg, err.Error()))
}

func statusFor(err error) int {
	var validationErr *registration.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, registration.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, registration.ErrEventFullyBooked), errors.Is(err, registration.ErrDuplicateRegistration):
		return http.StatusConflict
	case errors.Is(err, registration.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
