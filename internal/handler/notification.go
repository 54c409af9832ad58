package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/escrowauction/internal/service"
)

// NotificationHandler serves the notification log.
type NotificationHandler struct {
	notificationSvc *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationSvc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

type notificationListResponse struct {
	Notifications []service.Envelope `json:"notifications"`
	Next          uint64             `json:"next"`
}

// List handles GET /notifications?after=N&limit=M. next is the cursor to
// pass as after on the following call.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var after uint64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, codeValidation, "after must be a non-negative integer")
			return
		}
		after = v
	}
	limit, ok := queryInt(w, q.Get("limit"), "limit", 100)
	if !ok {
		return
	}

	envs, err := h.notificationSvc.After(after, limit)
	if err != nil {
		mapError(w, err)
		return
	}

	next := after
	if len(envs) > 0 {
		next = envs[len(envs)-1].Seq
	}
	WriteJSON(w, http.StatusOK, notificationListResponse{Notifications: envs, Next: next})
}
