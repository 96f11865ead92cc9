package sqlite

import (
	"context"
	"fmt"

	"github.com/artpar/accrue/domain/item"
	"github.com/artpar/accrue/ports"
)

// ItemStore implements ports.ItemStore with SQLite.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new SQLite item store.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// Get retrieves an item by ID.
func (s *ItemStore) Get(ctx context.Context, id string) (item.Item, error) {
	var (
		it        item.Item
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM items WHERE id = ?
	`, id).Scan(&it.ID, &it.Name, &it.Description, &createdAt)
	if err != nil {
		return item.Item{}, notFound(err)
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return item.Item{}, fmt.Errorf("parse item created_at: %w", err)
	}
	return it, nil
}

// List returns items newest first.
func (s *ItemStore) List(ctx context.Context, limit, offset int) ([]item.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM items
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []item.Item
	for rows.Next() {
		var (
			it        item.Item
			createdAt string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if it.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse item created_at: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the total number of items.
func (s *ItemStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Create stores a new item.
func (s *ItemStore) Create(ctx context.Context, it item.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, created_at) VALUES (?, ?, ?, ?)
	`, it.ID, it.Name, it.Description, formatTime(it.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

var _ ports.ItemStore = (*ItemStore)(nil)
