// HTTP handlers for the tour catalog. Handlers parse path and query inputs,
// delegate to the Service and shape the success envelope; every failure goes
// to the central Responder.
package tours

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/auth"
)

// Handlers wraps the tour Service with HTTP plumbing.
type Handlers struct {
	service   *Service
	responder *apperror.Responder
}

// NewHandlers creates the tour Handlers.
func NewHandlers(service *Service, responder *apperror.Responder) *Handlers {
	return &Handlers{service: service, responder: responder}
}

// tourID parses the {id} path parameter.
func tourID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NewBadRequestError(fmt.Sprintf("Invalid id: %s.", raw), err)
	}
	return id, nil
}

// HandleList serves the shaped tour listing.
//
//	@Summary		List tours
//	@Description	Lists tours with filter, sort, field projection and pagination controls.
//	@Tags			tours
//	@Produce		json
//	@Param			sort	query	string	false	"Comma-separated sort fields, '-' prefix for descending"
//	@Param			fields	query	string	false	"Comma-separated projection fields"
//	@Param			page	query	int		false	"Page number"
//	@Param			limit	query	int		false	"Page size"
//	@Success		200	{object}	auth.Envelope
//	@Failure		400	{object}	apperror.ErrorResponse
//	@Router			/tours [get]
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, r.URL.Query())
	}
}

// HandleTopTours presets the listing controls to the five cheapest
// top-rated tours. The alias is explicit request rewriting, not hidden
// query mutation.
//
//	@Summary		Top five cheap tours
//	@Tags			tours
//	@Produce		json
//	@Success		200	{object}	auth.Envelope
//	@Router			/tours/top-5-cheap [get]
func (h *Handlers) HandleTopTours() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := url.Values{
			"limit":  {"5"},
			"sort":   {"-ratingsAverage,price"},
			"fields": {"name,price,ratingsAverage,summary,difficulty"},
		}
		h.list(w, r, params)
	}
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, params url.Values) {
	results, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.Write(w, r, err)
		return
	}
	n := len(results)
	auth.WriteJSON(w, http.StatusOK, auth.Envelope{
		Status:  "success",
		Results: &n,
		Data:    map[string]any{"tours": results},
	})
}

// HandleGet serves a single tour.
//
//	@Summary		Get a tour
//	@Tags			tours
//	@Produce		json
//	@Param			id	path		int	true	"Tour ID"
//	@Success		200	{object}	auth.Envelope
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Router			/tours/{id} [get]
func (h *Handlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := tourID(r)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		tour, err := h.service.GetByID(r.Context(), id)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"tour": tour})
	}
}

// HandleCreate creates a tour.
//
//	@Summary		Create a tour
//	@Tags			tours
//	@Accept			json
//	@Produce		json
//	@Param			tour	body		Tour	true	"Tour payload"
//	@Success		201	{object}	auth.Envelope
//	@Failure		400	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tours [post]
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tour Tour
		if err := json.NewDecoder(r.Body).Decode(&tour); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("Invalid request body", err))
			return
		}
		created, err := h.service.Create(r.Context(), &tour)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusCreated, map[string]any{"tour": created})
	}
}

// HandleUpdate partially updates a tour.
//
//	@Summary		Update a tour
//	@Tags			tours
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Tour ID"
//	@Param			tour	body		UpdateTourRequest	true	"Fields to update"
//	@Success		200	{object}	auth.Envelope
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tours/{id} [patch]
func (h *Handlers) HandleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := tourID(r)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		var req UpdateTourRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.Write(w, r, apperror.NewBadRequestError("Invalid request body", err))
			return
		}
		tour, err := h.service.Update(r.Context(), id, &req)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"tour": tour})
	}
}

// HandleDelete removes a tour.
//
//	@Summary		Delete a tour
//	@Tags			tours
//	@Param			id	path	int	true	"Tour ID"
//	@Success		204
//	@Failure		404	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tours/{id} [delete]
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := tourID(r)
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

// HandleStats serves the per-difficulty aggregates.
//
//	@Summary		Tour statistics
//	@Tags			tours
//	@Produce		json
//	@Success		200	{object}	auth.Envelope
//	@Router			/tours/tour-stats [get]
func (h *Handlers) HandleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.service.Stats(r.Context())
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"stats": stats})
	}
}

// HandleMonthlyPlan serves the per-month start counts for a year.
//
//	@Summary		Monthly plan
//	@Tags			tours
//	@Produce		json
//	@Param			year	path		int	true	"Calendar year"
//	@Success		200	{object}	auth.Envelope
//	@Failure		400	{object}	apperror.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tours/monthly-plan/{year} [get]
func (h *Handlers) HandleMonthlyPlan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "year")
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			h.responder.Write(w, r, apperror.NewBadRequestError(
				fmt.Sprintf("Invalid year: %s.", raw), err))
			return
		}
		plan, err := h.service.MonthlyPlan(r.Context(), year)
		if err != nil {
			h.responder.Write(w, r, err)
			return
		}
		auth.WriteSuccess(w, http.StatusOK, map[string]any{"plan": plan})
	}
}
