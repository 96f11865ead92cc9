package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/accrue/domain/usage"
	"github.com/artpar/accrue/ports"
)

// UseStore implements ports.UseStore with SQLite.
type UseStore struct {
	db *DB
}

// NewUseStore creates a new SQLite use store.
func NewUseStore(db *DB) *UseStore {
	return &UseStore{db: db}
}

func scanUse(row rowScanner) (usage.Use, error) {
	var (
		u         usage.Use
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.ItemID, &createdAt); err != nil {
		return usage.Use{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return usage.Use{}, fmt.Errorf("parse use created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func (s *UseStore) query(ctx context.Context, q string, args ...any) ([]usage.Use, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query uses: %w", err)
	}
	defer rows.Close()

	var uses []usage.Use
	for rows.Next() {
		u, err := scanUse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan use: %w", err)
		}
		uses = append(uses, u)
	}
	return uses, rows.Err()
}

// ListByItem returns an item's uses newest first.
func (s *UseStore) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]usage.Use, error) {
	return s.query(ctx, `
		SELECT id, item_id, created_at FROM uses WHERE item_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, itemID, limit, offset)
}

// CountByItem returns the number of uses recorded for an item.
func (s *UseStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uses WHERE item_id = ?`, itemID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count uses: %w", err)
	}
	return n, nil
}

// ListRange returns uses with from <= CreatedAt <= to, oldest first.
func (s *UseStore) ListRange(ctx context.Context, itemID string, from, to *time.Time) ([]usage.Use, error) {
	var (
		where = []string{"item_id = ?"}
		args  = []any{itemID}
	)
	if from != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*from))
	}
	if to != nil {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(*to))
	}

	return s.query(ctx, `
		SELECT id, item_id, created_at FROM uses
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at ASC, rowid ASC
	`, args...)
}

// First returns the oldest use of an item.
func (s *UseStore) First(ctx context.Context, itemID string) (usage.Use, error) {
	u, err := scanUse(s.db.QueryRowContext(ctx, `
		SELECT id, item_id, created_at FROM uses WHERE item_id = ?
		ORDER BY created_at ASC, rowid ASC LIMIT 1
	`, itemID))
	if err != nil {
		return usage.Use{}, notFound(err)
	}
	return u, nil
}

// Get retrieves a use by ID.
func (s *UseStore) Get(ctx context.Context, id string) (usage.Use, error) {
	u, err := scanUse(s.db.QueryRowContext(ctx, `SELECT id, item_id, created_at FROM uses WHERE id = ?`, id))
	if err != nil {
		return usage.Use{}, notFound(err)
	}
	return u, nil
}

// Create stores a new use.
func (s *UseStore) Create(ctx context.Context, u usage.Use) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uses (id, item_id, created_at) VALUES (?, ?, ?)
	`, u.ID, u.ItemID, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert use: %w", err)
	}
	return nil
}

// Update changes the timestamp of a use.
func (s *UseStore) Update(ctx context.Context, id string, createdAt time.Time) (usage.Use, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE uses SET created_at = ? WHERE id = ?`, formatTime(createdAt), id)
	if err != nil {
		return usage.Use{}, fmt.Errorf("update use: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return usage.Use{}, ports.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a use and returns what was removed.
func (s *UseStore) Delete(ctx context.Context, id string) (usage.Use, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return usage.Use{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM uses WHERE id = ?`, id); err != nil {
		return usage.Use{}, fmt.Errorf("delete use: %w", err)
	}
	return u, nil
}

var _ ports.UseStore = (*UseStore)(nil)
