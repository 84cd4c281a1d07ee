package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ListUsers serves GET /users?page=.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.users.List(r.Context(), page)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list users"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("users", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range res.Users {
					encodeUser(e, &res.Users[i])
				}
				e.ArrEnd()
			})
			encodeWindow(e, res.Window)
		})
	})
}

// GetUser serves GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeUser(e, u) })
}
