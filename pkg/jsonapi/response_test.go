package jsonapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteDocument(t *testing.T) {
	t.Run("sets content type and status", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteResource(w, http.StatusOK, NewResource("items", "1").Attr("name", "tea").Build())

		if w.Header().Get("Content-Type") != ContentType {
			t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("writes resource with relationship", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := NewResource("rates", "r1").
			Attr("value", 1.5).
			BelongsTo("item", "items", "i1").
			Link("/api/rates/r1").
			Build()

		WriteResource(w, http.StatusOK, r)

		var doc struct {
			Data struct {
				Relationships map[string]struct {
					Data ResourceIdentifier `json:"data"`
				} `json:"relationships"`
				Links *ResourceLinks `json:"links"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if doc.Data.Relationships["item"].Data.ID != "i1" {
			t.Errorf("relationship = %+v", doc.Data.Relationships)
		}
		if doc.Data.Links == nil || doc.Data.Links.Self != "/api/rates/r1" {
			t.Errorf("links = %+v", doc.Data.Links)
		}
	})
}

func TestCompoundDocument(t *testing.T) {
	item := NewResource("items", "i1").HasMany("rates", "rates", []string{"r1", "r2"}).Build()
	included := []Resource{{Type: "rates", ID: "r1"}, {Type: "rates", ID: "r2"}}

	w := httptest.NewRecorder()
	WriteDocument(w, http.StatusOK, NewCompoundDocument(item, included))

	var doc struct {
		Data struct {
			Relationships map[string]struct {
				Data []ResourceIdentifier `json:"data"`
			} `json:"relationships"`
		} `json:"data"`
		Included []Resource `json:"included"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got := doc.Data.Relationships["rates"].Data; len(got) != 2 || got[1].ID != "r2" {
		t.Errorf("rates linkage = %+v", got)
	}
	if len(doc.Included) != 2 {
		t.Errorf("included = %d, want 2", len(doc.Included))
	}

	empty := NewResource("items", "i2").HasMany("rates", "rates", nil).Build()
	w = httptest.NewRecorder()
	WriteResource(w, http.StatusOK, empty)
	var raw struct {
		Data struct {
			Relationships map[string]map[string]json.RawMessage `json:"relationships"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if string(raw.Data.Relationships["rates"]["data"]) != "[]" {
		t.Errorf("empty linkage = %s", raw.Data.Relationships["rates"]["data"])
	}
}

func TestWriteCollection(t *testing.T) {
	t.Run("nil collection renders as empty array", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteCollection(w, http.StatusOK, nil, nil)

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if string(raw["data"]) != "[]" {
			t.Errorf("data = %s, want []", raw["data"])
		}
	})

	t.Run("with pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		resources := []Resource{{Type: "items", ID: "1"}, {Type: "items", ID: "2"}}

		WriteCollection(w, http.StatusOK, resources, NewPagination(25, 2, 10, "/api/items"))

		var doc Document
		if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if doc.Meta["total"] != float64(25) || doc.Meta["pages"] != float64(3) {
			t.Errorf("meta = %v", doc.Meta)
		}
		if doc.Links == nil || doc.Links.Next == "" || doc.Links.Prev == "" {
			t.Errorf("links = %+v", doc.Links)
		}
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    Error
		status int
		code   string
	}{
		{"validation", ErrValidation("unit", "rate unit is invalid"), 422, "validation_error"},
		{"conflict", ErrRateConflict("Overlaps with existing rate dates.", "r1"), 409, "rate_conflict"},
		{"not found", ErrNotFoundWithID("item", "x"), 404, "not_found"},
		{"bad parameter", ErrInvalidParameter("from", "bad date"), 400, "invalid_parameter"},
		{"unavailable", ErrServiceUnavailable(""), 503, "service_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}
			var doc Document
			if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if len(doc.Errors) != 1 || doc.Errors[0].Code != tt.code {
				t.Errorf("errors = %+v", doc.Errors)
			}
		})
	}

	t.Run("no errors falls back to 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want 500", w.Code)
		}
	})
}

func TestErrValidationPointer(t *testing.T) {
	e := ErrValidation("name", "item name is required")
	if e.Source == nil || e.Source.Pointer != "/data/attributes/name" {
		t.Errorf("Source = %+v", e.Source)
	}
	if ErrValidation("", "x").Source != nil {
		t.Error("empty field should not set a pointer")
	}
}

func TestWriteCreatedAndNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, Resource{Type: "uses", ID: "u1"}, "/api/uses/u1")
	if w.Code != http.StatusCreated || w.Header().Get("Location") != "/api/uses/u1" {
		t.Errorf("created: %d %q", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	WriteNoContent(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("no content: %d %q", w.Code, w.Body.String())
	}
}
