package chat

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the chat REST surface under /api/chat behind the
// given auth middleware.
func RegisterRoutes(r *mux.Router, h *Handler, requireAuth mux.MiddlewareFunc, log *slog.Logger) {
	api := r.PathPrefix("/api/chat").Subrouter()
	api.Use(logRequests(log), requireAuth)

	api.HandleFunc("/conversations", h.StartConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations", h.ListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.GetMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/unread-count", h.UnreadCount).Methods(http.MethodGet)
}

func logRequests(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("chat request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
