package handler

import (
	"net/http"
	"strings"

	"github.com/webstore/store-api/internal/domain/auth"
)

const bearerPrefix = "Bearer "

// requireUser rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			unauthorized(w)
			return
		}
		id, err := h.tokens.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			unauthorized(w)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

// requireAdmin is requireUser plus a role check.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if id, _ := auth.FromContext(r.Context()); !id.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "forbidden", "")
			return
		}
		next(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="store"`)
	writeProblem(w, http.StatusUnauthorized, "unauthorized", "")
}

// caller returns the identity stored by requireUser.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
