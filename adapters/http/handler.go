package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/pkg/jsonapi"
)

// Handler exposes the tracker over JSON:API.
type Handler struct {
	tracker *app.Tracker
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(tracker *app.Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// RegisterRoutes adds item, rate and use endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Route("/items/{id}", func(r chi.Router) {
		r.Get("/", h.GetItem)
		r.Get("/stats", h.GetStats)
		r.Get("/rates", h.ListRates)
		r.Post("/rates", h.CreateRate)
		r.Get("/uses", h.ListUses)
		r.Post("/uses", h.RecordUse)
	})

	r.Get("/rates/{id}", h.GetRate)
	r.Put("/rates/{id}", h.UpdateRate)
	r.Patch("/rates/{id}", h.UpdateRate)
	r.Delete("/rates/{id}", h.DeleteRate)

	r.Put("/uses/{id}", h.UpdateUse)
	r.Patch("/uses/{id}", h.UpdateUse)
	r.Delete("/uses/{id}", h.DeleteUse)
}

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

type itemAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListItems returns one page of items with their balances.
//
//	@Summary	List items
//	@Tags		Items
//	@Produce	json
//	@Param		page		query		int	false	"Page number (default 1)"
//	@Param		pageSize	query		int	false	"Items per page (default 12, max 100)"
//	@Success	200			{object}	jsonapi.Document
//	@Failure	400			{object}	jsonapi.Document
//	@Router		/api/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, pageSize, bad := jsonapi.ParsePaginationParams(r.URL.Query())
	if bad != "" {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(bad, "must be an integer"))
		return
	}

	result, err := h.tracker.ListItems(r.Context(), page, pageSize)
	if err != nil {
		h.writeServiceError(w, r, err, "item", "")
		return
	}

	resources := make([]jsonapi.Resource, 0, len(result.Items))
	for _, v := range result.Items {
		resources = append(resources, itemResource(v).Build())
	}
	p := jsonapi.NewPagination(result.Total, result.Page, result.PageSize, r.URL.Path)
	jsonapi.WriteCollection(w, http.StatusOK, resources, p)
}

// CreateItem creates an item.
//
//	@Summary	Create item
//	@Tags		Items
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	jsonapi.Document
//	@Failure	422	{object}	jsonapi.Document
//	@Router		/api/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var attrs itemAttributes
	if e := jsonapi.DecodeResource(r, TypeItem, &attrs); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	it, err := h.tracker.CreateItem(r.Context(), attrs.Name, attrs.Description)
	if err != nil {
		h.writeServiceError(w, r, err, "item", "")
		return
	}
	res := itemResource(app.ItemView{Item: it}).Build()
	jsonapi.WriteCreated(w, res, "/api/items/"+it.ID)
}

// GetItem returns an item with its balance, rates and first use.
//
//	@Summary	Get item
//	@Tags		Items
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/items/{id} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.tracker.GetItem(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "item", id)
		return
	}
	if view == nil {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("item", id))
		return
	}

	ids := make([]string, 0, len(view.Rates))
	included := make([]jsonapi.Resource, 0, len(view.Rates))
	for _, rt := range view.Rates {
		ids = append(ids, rt.ID)
		included = append(included, rateResource(rt).Build())
	}

	res := itemResource(*view).
		Attr("firstUsageDate", formatTimePtr(view.FirstUsageDate)).
		HasMany("rates", TypeRate, ids).
		Build()
	jsonapi.WriteDocument(w, http.StatusOK, jsonapi.NewCompoundDocument(res, included))
}

// GetStats returns the analytics of an item.
//
//	@Summary	Item statistics
//	@Tags		Items
//	@Produce	json
//	@Param		id		path		string	true	"Item ID"
//	@Param		from	query		string	false	"Range start (RFC 3339 or YYYY-MM-DD)"
//	@Param		to		query		string	false	"Range end, inclusive day (RFC 3339 or YYYY-MM-DD)"
//	@Success	200		{object}	jsonapi.Document
//	@Failure	400		{object}	jsonapi.Document
//	@Failure	404		{object}	jsonapi.Document
//	@Router		/api/items/{id}/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	loc := h.tracker.Location()

	from, err := parseTimeParam(r.URL.Query().Get("from"), loc)
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("from", err.Error()))
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"), loc)
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("to", err.Error()))
		return
	}

	stats, err := h.tracker.Stats(r.Context(), id, from, to)
	if err != nil {
		h.writeServiceError(w, r, err, "item", id, "from", "to")
		return
	}
	if stats == nil {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("item", id))
		return
	}

	res := jsonapi.NewResource(TypeStats, id).
		Attr("daily", stats.Daily).
		Attr("usageByDayOfWeek", stats.UsageByDayOfWeek).
		Attr("usageByHour", stats.UsageByHour).
		Attr("totalUsage", stats.TotalUsage).
		Attr("totalAccumulated", stats.TotalAccumulated).
		Attr("avgUsagePerDay", stats.AvgUsagePerDay).
		Attr("currentRate", stats.CurrentRate).
		Attr("streakDays", stats.StreakDays).
		Attr("longestStreakDays", stats.LongestStreakDays).
		BelongsTo("item", TypeItem, id).
		Build()
	jsonapi.WriteResource(w, http.StatusOK, res)
}

// -----------------------------------------------------------------------------
// Rates
// -----------------------------------------------------------------------------

// rateAttributes is the request body of rate writes. On update, absent
// fields keep their stored value and "to": null reopens the rate.
type rateAttributes struct {
	Value *float64        `json:"value"`
	Unit  *string         `json:"unit"`
	From  *string         `json:"from"`
	To    json.RawMessage `json:"to"`
}

// ListRates returns an item's rates, newest first.
//
//	@Summary	List rates
//	@Tags		Rates
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/items/{id}/rates [get]
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rates, err := h.tracker.ListRates(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "item", id)
		return
	}
	resources := make([]jsonapi.Resource, 0, len(rates))
	for _, rt := range rates {
		resources = append(resources, rateResource(rt).Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, nil)
}

// CreateRate adds a rate to an item.
//
//	@Summary	Create rate
//	@Tags		Rates
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	201	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Failure	409	{object}	jsonapi.Document	"Interval overlaps an existing rate"
//	@Failure	422	{object}	jsonapi.Document
//	@Router		/api/items/{id}/rates [post]
func (h *Handler) CreateRate(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var attrs rateAttributes
	if e := jsonapi.DecodeResource(r, TypeRate, &attrs); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	in := app.RateInput{ItemID: itemID}
	if e := attrs.apply(&in, h.tracker.Location()); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	rt, err := h.tracker.SaveRate(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "item", itemID)
		return
	}
	jsonapi.WriteCreated(w, rateResource(rt).Build(), "/api/rates/"+rt.ID)
}

// GetRate returns one rate.
//
//	@Summary	Get rate
//	@Tags		Rates
//	@Produce	json
//	@Param		id	path		string	true	"Rate ID"
//	@Success	200	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/rates/{id} [get]
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rt, err := h.tracker.GetRate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "rate", id)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, rateResource(rt).Build())
}

// UpdateRate changes a rate. The result is checked against the item's
// other rates.
//
//	@Summary	Update rate
//	@Tags		Rates
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"Rate ID"
//	@Success	200	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Failure	409	{object}	jsonapi.Document
//	@Failure	422	{object}	jsonapi.Document
//	@Router		/api/rates/{id} [patch]
//	@Router		/api/rates/{id} [put]
func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var attrs rateAttributes
	if e := jsonapi.DecodeResource(r, TypeRate, &attrs); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	current, err := h.tracker.GetRate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "rate", id)
		return
	}

	in := app.RateInput{
		ID:     current.ID,
		ItemID: current.ItemID,
		Value:  current.Value,
		Unit:   current.Unit,
		From:   current.From,
		To:     current.To,
	}
	if e := attrs.apply(&in, h.tracker.Location()); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	rt, err := h.tracker.SaveRate(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "rate", id)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, rateResource(rt).Build())
}

// DeleteRate removes a rate.
//
//	@Summary	Delete rate
//	@Tags		Rates
//	@Param		id	path	string	true	"Rate ID"
//	@Success	204
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/rates/{id} [delete]
func (h *Handler) DeleteRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.tracker.DeleteRate(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "rate", id)
		return
	}
	jsonapi.WriteNoContent(w)
}

// apply copies the present attributes onto in.
func (a rateAttributes) apply(in *app.RateInput, loc *time.Location) *jsonapi.Error {
	if a.Value != nil {
		in.Value = *a.Value
	}
	if a.Unit != nil {
		u, err := rate.ParseUnit(*a.Unit)
		if err != nil {
			e := jsonapi.ErrValidation("unit", err.Error())
			return &e
		}
		in.Unit = u
	}
	if a.From != nil {
		from, err := parseTime(*a.From, loc)
		if err != nil {
			e := jsonapi.ErrValidation("from", err.Error())
			return &e
		}
		in.From = from
	}
	if len(a.To) > 0 {
		if string(a.To) == "null" {
			in.To = nil
			return nil
		}
		var s string
		if err := json.Unmarshal(a.To, &s); err != nil {
			e := jsonapi.ErrValidation("to", "must be a string or null")
			return &e
		}
		to, err := parseTime(s, loc)
		if err != nil {
			e := jsonapi.ErrValidation("to", err.Error())
			return &e
		}
		in.To = &to
	}
	return nil
}

// -----------------------------------------------------------------------------
// Uses
// -----------------------------------------------------------------------------

type useAttributes struct {
	CreatedAt string `json:"createdAt"`
}

// ListUses returns one page of an item's uses, newest first.
//
//	@Summary	List uses
//	@Tags		Uses
//	@Produce	json
//	@Param		id			path		string	true	"Item ID"
//	@Param		page		query		int		false	"Page number (default 1)"
//	@Param		pageSize	query		int		false	"Uses per page (default 10, max 100)"
//	@Success	200			{object}	jsonapi.Document
//	@Failure	404			{object}	jsonapi.Document
//	@Router		/api/items/{id}/uses [get]
func (h *Handler) ListUses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	page, pageSize, bad := jsonapi.ParsePaginationParams(r.URL.Query())
	if bad != "" {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(bad, "must be an integer"))
		return
	}

	result, err := h.tracker.ListUses(r.Context(), id, page, pageSize)
	if err != nil {
		h.writeServiceError(w, r, err, "item", id)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(result.Uses))
	for _, u := range result.Uses {
		resources = append(resources, useResource(u.ID, u.ItemID, u.CreatedAt).Build())
	}
	p := jsonapi.NewPagination(result.Total, result.Page, result.PageSize, r.URL.Path)
	jsonapi.WriteCollection(w, http.StatusOK, resources, p)
}

// RecordUse records a use of an item, now unless createdAt is given.
//
//	@Summary	Record use
//	@Tags		Uses
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	201	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/items/{id}/uses [post]
func (h *Handler) RecordUse(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var attrs useAttributes
	if e := jsonapi.DecodeOptionalResource(r, TypeUse, &attrs); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}

	var at *time.Time
	if attrs.CreatedAt != "" {
		t, err := parseTime(attrs.CreatedAt, h.tracker.Location())
		if err != nil {
			jsonapi.WriteError(w, jsonapi.ErrValidation("createdAt", err.Error()))
			return
		}
		at = &t
	}

	u, err := h.tracker.RecordUse(r.Context(), itemID, at)
	if err != nil {
		h.writeServiceError(w, r, err, "item", itemID)
		return
	}
	jsonapi.WriteCreated(w, useResource(u.ID, u.ItemID, u.CreatedAt).Build(), "")
}

// UpdateUse moves a use to another instant.
//
//	@Summary	Update use
//	@Tags		Uses
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"Use ID"
//	@Success	200	{object}	jsonapi.Document
//	@Failure	404	{object}	jsonapi.Document
//	@Failure	422	{object}	jsonapi.Document
//	@Router		/api/uses/{id} [patch]
//	@Router		/api/uses/{id} [put]
func (h *Handler) UpdateUse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var attrs useAttributes
	if e := jsonapi.DecodeResource(r, TypeUse, &attrs); e != nil {
		jsonapi.WriteError(w, *e)
		return
	}
	if attrs.CreatedAt == "" {
		jsonapi.WriteError(w, jsonapi.ErrValidation("createdAt", "is required"))
		return
	}
	at, err := parseTime(attrs.CreatedAt, h.tracker.Location())
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrValidation("createdAt", err.Error()))
		return
	}

	u, err := h.tracker.UpdateUse(r.Context(), id, at)
	if err != nil {
		h.writeServiceError(w, r, err, "use", id)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, useResource(u.ID, u.ItemID, u.CreatedAt).Build())
}

// DeleteUse removes a use.
//
//	@Summary	Delete use
//	@Tags		Uses
//	@Param		id	path	string	true	"Use ID"
//	@Success	204
//	@Failure	404	{object}	jsonapi.Document
//	@Router		/api/uses/{id} [delete]
func (h *Handler) DeleteUse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.tracker.DeleteUse(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "use", id)
		return
	}
	jsonapi.WriteNoContent(w)
}
