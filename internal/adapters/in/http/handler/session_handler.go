// internal/adapters/in/http/handler/session_handler.go
package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"cartsync/internal/adapters/in/http/middleware"
	usecase "cartsync/internal/application/usecase"
)

// SessionHandler serves identity transitions.
//
// Routes:
// - POST /login  (Authorization: Bearer <ID_TOKEN>) -> guest cart merged
//   into the authenticated user's cart
// - POST /logout -> back to the guest identity
type SessionHandler struct {
	engine *usecase.CartEngine
}

func NewSessionHandler(engine *usecase.CartEngine) http.Handler {
	return &SessionHandler{engine: engine}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := strings.TrimRight(r.URL.Path, "/")

	if h.engine == nil {
		writeErr(w, http.StatusInternalServerError, "cart engine is not configured")
		return
	}
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch {
	case strings.HasSuffix(path, "/login"):
		h.handleLogin(w, r, start)
	case strings.HasSuffix(path, "/logout"):
		h.handleLogout(w, r, start)
	default:
		writeErr(w, http.StatusNotFound, "not found")
	}
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request, start time.Time) {
	uid := middleware.UIDFromContext(r.Context())
	if uid == "" {
		log.Printf("[session_handler] login exit status=401 reason=no verified uid elapsed=%s", time.Since(start))
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}

	res, err := h.engine.Login(r.Context(), uid)
	if err != nil {
		log.Printf("[session_handler] login exit status=500 uid=%q: %v elapsed=%s", uid, err, time.Since(start))
		writeErr(w, http.StatusInternalServerError, "login merge failed")
		return
	}

	log.Printf("[session_handler] login exit status=200 uid=%q lines=%d notices=%d elapsed=%s",
		uid, len(res.Lines), len(res.Notices), time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":   res.Lines,
		"notices": res.Notices,
	})
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request, start time.Time) {
	if err := h.engine.Logout(r.Context()); err != nil {
		log.Printf("[session_handler] logout exit status=500: %v elapsed=%s", err, time.Since(start))
		writeErr(w, http.StatusInternalServerError, "logout failed")
		return
	}
	log.Printf("[session_handler] logout exit status=200 elapsed=%s", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"lines": h.engine.Lines(),
	})
}
