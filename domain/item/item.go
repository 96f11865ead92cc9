// Package item defines the tracked item value type.
package item

import (
	"errors"
	"strings"
	"time"
)

// ErrNameRequired is returned when an item has no usable name.
var ErrNameRequired = errors.New("item name is required")

// Item is a tracked resource whose accumulated balance is measured (value type).
type Item struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// New builds an item with trimmed fields.
func New(id, name, description string, createdAt time.Time) Item {
	return Item{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   createdAt,
	}
}

// Validate checks the item can be stored.
func Validate(it Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
