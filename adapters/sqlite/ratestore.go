package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/ports"
)

// RateStore implements ports.RateStore with SQLite.
type RateStore struct {
	db *DB
}

// NewRateStore creates a new SQLite rate store.
func NewRateStore(db *DB) *RateStore {
	return &RateStore{db: db}
}

const rateColumns = `id, item_id, value, unit, from_at, to_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (rate.Rate, error) {
	var (
		r                   rate.Rate
		unit, from, created string
		to                  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ItemID, &r.Value, &unit, &from, &to, &created); err != nil {
		return rate.Rate{}, err
	}
	r.Unit = rate.Unit(unit)

	var err error
	if r.From, err = parseTime(from); err != nil {
		return rate.Rate{}, fmt.Errorf("parse rate from_at: %w", err)
	}
	if to.Valid {
		t, err := parseTime(to.String)
		if err != nil {
			return rate.Rate{}, fmt.Errorf("parse rate to_at: %w", err)
		}
		r.To = &t
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return rate.Rate{}, fmt.Errorf("parse rate created_at: %w", err)
	}
	return r, nil
}

// ListByItem returns an item's rates ordered by From ascending.
func (s *RateStore) ListByItem(ctx context.Context, itemID string) ([]rate.Rate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rateColumns+` FROM rates WHERE item_id = ?
		ORDER BY from_at ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var rates []rate.Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// Get retrieves a rate by ID.
func (s *RateStore) Get(ctx context.Context, id string) (rate.Rate, error) {
	r, err := scanRate(s.db.QueryRowContext(ctx, `SELECT `+rateColumns+` FROM rates WHERE id = ?`, id))
	if err != nil {
		return rate.Rate{}, notFound(err)
	}
	return r, nil
}

// Create stores a new rate.
func (s *RateStore) Create(ctx context.Context, r rate.Rate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rates (`+rateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ItemID, r.Value, string(r.Unit), formatTime(r.From), nullTime(r.To), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

// Update replaces value, unit and interval of an existing rate.
func (s *RateStore) Update(ctx context.Context, r rate.Rate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rates SET value = ?, unit = ?, from_at = ?, to_at = ? WHERE id = ?
	`, r.Value, string(r.Unit), formatTime(r.From), nullTime(r.To), r.ID)
	if err != nil {
		return fmt.Errorf("update rate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Delete removes a rate and returns what was removed.
func (s *RateStore) Delete(ctx context.Context, id string) (rate.Rate, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return rate.Rate{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rates WHERE id = ?`, id); err != nil {
		return rate.Rate{}, fmt.Errorf("delete rate: %w", err)
	}
	return r, nil
}

var _ ports.RateStore = (*RateStore)(nil)
