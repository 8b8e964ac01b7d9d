// Package api is the HTTP gateway in front of the contact service:
// REST endpoints plus a websocket feed for browsers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"contact-lab/contract"
	"contact-lab/domain"
	"contact-lab/domain/event"
	"contact-lab/errors"
	"contact-lab/runtime"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	maxBodyBytes = 64 << 10
	writeWait    = 10 * time.Second
	Version      = "1.0.0"
)

type Handler struct {
	log            *slog.Logger
	contactService contract.IContactService
	feed           contract.IFeed
	bufferSize     int
	upgrader       websocket.Upgrader
}

func NewHandler(log *slog.Logger, contactService contract.IContactService, feed contract.IFeed,
	bufferSize int, allowedOrigin string) *Handler {
	return &Handler{
		log:            log,
		contactService: contactService,
		feed:           feed,
		bufferSize:     bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleInfo)
	r.Get("/healthz", h.handleHealth)
	r.Route("/api/contacts", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/ws", h.handleWatch)
	})
}

type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Count   *int         `json:"count,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

type wsMessage struct {
	Event string          `json:"event"`
	Data  *domain.Contact `json:"data,omitempty"`
}

func (h *Handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contact Management API",
		"version": Version,
		"endpoints": map[string]string{
			"getAllContacts": "GET /api/contacts",
			"createContact":  "POST /api/contacts",
			"liveUpdates":    "GET /api/contacts/ws",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactService.ListContacts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: lo.ToPtr(len(contacts)), Data: contacts})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload domain.ContactPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		h.log.WarnContext(ctx, "invalid create contact request", "error", err.Error())
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Invalid request body"})
		return
	}

	contact, err := h.contactService.CreateContact(ctx, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Contact created successfully",
		Data:    contact,
	})
}

// handleWatch streams every created contact to a browser until it goes away.
// The session lives exactly as long as the websocket.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	session := runtime.OpenSession(h.feed, h.bufferSize)
	defer session.Close()

	// Browsers never send anything; reading only detects the disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err = h.send(conn, wsMessage{Event: "ready"}); err != nil {
		return
	}
	for {
		select {
		case <-disconnected:
			h.log.Debug("Browser viewer disconnected", "subscription_id", session.ID)
			return
		case <-r.Context().Done():
			return
		case <-session.Done():
			h.log.Warn("Browser viewer evicted", "subscription_id", session.ID)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"),
				time.Now().Add(writeWait))
			return
		case evt := <-session.Events():
			if created, ok := evt.(event.ContactCreated); ok {
				if err = h.send(conn, wsMessage{Event: "newContact", Data: lo.ToPtr(created.Contact)}); err != nil {
					h.log.Error("failed to push event to websocket", "subscription_id", session.ID, "error", err)
					return
				}
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg wsMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *errors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, envelope{
			Message: "Validation failed",
			Errors: lo.Map(validationErr.FieldNames(), func(field string, _ int) fieldError {
				return fieldError{Path: field, Msg: validationErr.Fields[field]}
			}),
		})
	case errors.Is(err, errors.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, envelope{Message: "A contact with this email already exists"})
	case errors.Is(err, errors.ErrStoreUnavailable):
		h.log.ErrorContext(r.Context(), "store unavailable", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "Service temporarily unavailable"})
	default:
		h.log.ErrorContext(r.Context(), "unexpected error", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
