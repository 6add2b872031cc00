package api

import (
	"net/http"

	"github.com/assetflow/backend/internal/auth"
	"github.com/assetflow/backend/internal/domain"
)

// --- auth ---

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.Auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// me echoes the verified claims, useful for session bootstrap.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, claims(r))
}

// --- notifications ---

// requireSelfOrAdmin guards per-user resources: only the owner or an
// admin-tier caller may touch another user's notifications.
func requireSelfOrAdmin(r *http.Request, userID string) error {
	c := claims(r)
	if c.UserID == userID || c.HasLevel(domain.RoleLevelAdmin) {
		return nil
	}
	return domain.ErrForbidden("cannot access another user's notifications")
}

func (s *Server) listNotifications(unreadOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := pathVar(r, "uid")
		if err := requireSelfOrAdmin(r, userID); err != nil {
			writeError(w, err)
			return
		}
		items, err := s.Notifications.List(r.Context(), userID, unreadOnly, queryPage(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID := pathVar(r, "uid")
	if err := requireSelfOrAdmin(r, userID); err != nil {
		writeError(w, err)
		return
	}
	count, err := s.Notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID := pathVar(r, "uid")
	if err := requireSelfOrAdmin(r, userID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Notifications.MarkAllRead(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.Notifications.MarkRead(r.Context(), pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.Notifications.Delete(r.Context(), pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
