package item_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/accrue/domain/item"
)

func TestNew_TrimsFields(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	it := item.New("i1", "  Coffee ", "\tone a day\n", at)

	if it.Name != "Coffee" {
		t.Errorf("Name = %q, want %q", it.Name, "Coffee")
	}
	if it.Description != "one a day" {
		t.Errorf("Description = %q, want %q", it.Description, "one a day")
	}
	if !it.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", it.CreatedAt, at)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    item.Item
		wantErr error
	}{
		{"valid", item.Item{Name: "Coffee"}, nil},
		{"empty name", item.Item{Name: ""}, item.ErrNameRequired},
		{"blank name", item.Item{Name: "   "}, item.ErrNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := item.Validate(tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
