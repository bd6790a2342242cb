package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/auth"
)

// Handlers wraps the user Service with HTTP plumbing.
type Handlers struct {
	service   *Service
	responder *apperror.Responder
}

// NewHandlers creates the user Handlers.
func NewHandlers(service *Service, responder *apperror.Responder) *Handlers {
	return &Handlers{service: service, responder: responder}
}

func userID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NewBadRequestError(fmt.Sprintf("Invalid id: %s.", raw), err)
	}
	return id, nil
}

// HandleGetMe serves the authenticated caller's own account.
//
//	@Summary		Current account
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	auth.Envelope
//	@Failure		401	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/me [get]
func (h *Handlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			h.responder.Write(w, r, apperror.NewAuthError(
				"You are not logged in! Please log in to get access.", nil))
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"user": user})
	}
}

// HandleUpdateMe applies a profile change for the caller.
//
//	@Summary		Update own profile
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		UpdateMeRequest	true	"Profile fields"
//	@Success		200	{object}	auth.Envelope
//	@Failure		400	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/updateMe [patch]
func (h *Handlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			h.responder.Write(w, r, apperror.NewAuthError(
				"You are not logged in! Please log in to get access.", nil))
			return
		}
		var req UpdateMeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("Invalid request body", err))
			return
		}
		updated, err := h.service.UpdateMe(r.Context(), user.ID, &req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"user": updated})
	}
}

// HandleDeleteMe soft-deletes the caller's account.
//
//	@Summary		Deactivate own account
//	@Tags			users
//	@Success		204
//	@Failure		401	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/deleteMe [delete]
func (h *Handlers) HandleDeleteMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			h.responder.Write(w, r, apperror.NewAuthError(
				"You are not logged in! Please log in to get access.", nil))
			return
		}
		if err := h.service.DeactivateMe(r.Context(), user.ID); err != nil {
			h.responder.Write(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleList serves the shaped user listing for administrators.
//
//	@Summary		List users
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	auth.Envelope
//	@Failure		403	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users [get]
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := h.service.List(r.Context(), r.URL.Query())
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		n := len(results)
		auth.WriteJSON(w, http.StatusOK, auth.Envelope{
			Status:  "success",
			Results: &n,
			Data:    map[string]any{"users": results},
		})
	}
}

// HandleGet serves a single user for administrators.
//
//	@Summary		Get a user
//	@Tags			users
//	@Produce		json
//	@Param			id	path		int	true	"User ID"
//	@Success		200	{object}	auth.Envelope
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/{id} [get]
func (h *Handlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := userID(r)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		user, err := h.service.GetByID(r.Context(), id)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"user": user})
	}
}

// HandleCreate rejects direct user creation; accounts come from signup.
//
//	@Summary		Not implemented
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Failure		500	{object}	apperror.ErrorResponse
//	@Router			/users [post]
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusInternalServerError, auth.Envelope{
			Status:  "error",
			Message: "This route is not defined! Please use /signup instead",
		})
	}
}

// HandleUpdate applies an administrative account change.
//
//	@Summary		Update a user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"User ID"
//	@Param			user	body		UpdateUserRequest	true	"Fields to update"
//	@Success		200	{object}	auth.Envelope
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/{id} [patch]
func (h *Handlers) HandleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := userID(r)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		var req UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("Invalid request body", err))
			return
		}
		user, err := h.service.Update(r.Context(), id, &req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"user": user})
	}
}

// HandleDelete hard-deletes an account.
//
//	@Summary		Delete a user
//	@Tags			users
//	@Param			id	path	int	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/users/{id} [delete]
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := userID(r)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		if err := h.service.Delete(r.Context(), id); err != nil {
			h.responder.Write(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
