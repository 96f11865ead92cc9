package http

import (
	"time"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/pkg/jsonapi"
)

// JSON:API resource types.
const (
	TypeItem  = "items"
	TypeRate  = "rates"
	TypeUse   = "uses"
	TypeStats = "stats"
)

func itemResource(v app.ItemView) *jsonapi.ResourceBuilder {
	return jsonapi.NewResource(TypeItem, v.ID).
		Attr("name", v.Name).
		Attr("description", v.Description).
		Attr("createdAt", formatTime(v.CreatedAt)).
		Attr("accumulated", v.Accumulated).
		Attr("nextInSec", v.NextInSec).
		Attr("currentRatePerSec", v.CurrentRatePerSec).
		Attr("usageCount", v.UsageCount).
		Link("/api/items/" + v.ID)
}

func rateResource(r rate.Rate) *jsonapi.ResourceBuilder {
	return jsonapi.NewResource(TypeRate, r.ID).
		Attr("value", r.Value).
		Attr("unit", r.Unit.String()).
		Attr("perDay", r.PerDay()).
		Attr("from", formatTime(r.From)).
		Attr("to", formatTimePtr(r.To)).
		Attr("createdAt", formatTime(r.CreatedAt)).
		BelongsTo("item", TypeItem, r.ItemID).
		Link("/api/rates/" + r.ID)
}

func useResource(id, itemID string, createdAt time.Time) *jsonapi.ResourceBuilder {
	return jsonapi.NewResource(TypeUse, id).
		Attr("createdAt", formatTime(createdAt)).
		BelongsTo("item", TypeItem, itemID).
		Link("/api/uses/" + id)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime accepts RFC 3339 instants and calendar dates in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	return usage.ParseInstant(s, loc)
}

// parseTimeParam parses an optional query parameter; empty means absent.
func parseTimeParam(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
