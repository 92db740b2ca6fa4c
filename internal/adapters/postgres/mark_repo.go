package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// MarkRepo implements ports.MarkRepository with pgx.
type MarkRepo struct {
	db *DB
}

// NewMarkRepo creates a new MarkRepo.
func NewMarkRepo(db *DB) *MarkRepo {
	return &MarkRepo{db: db}
}

const markColumns = `id::text, latitude, longitude, message, created_at`

// Create inserts a mark. Key and CreatedAt must already be set.
func (r *MarkRepo) Create(ctx context.Context, m *domain.Mark) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO marks (id, latitude, longitude, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.Key, m.Coordinate.Latitude, m.Coordinate.Longitude, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mark: %w", err)
	}
	return nil
}

// GetByKey returns one mark or domain.ErrMarkNotFound.
func (r *MarkRepo) GetByKey(ctx context.Context, key string) (*domain.Mark, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+markColumns+` FROM marks WHERE id = $1`, key)
	m, err := scanMark(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMarkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every mark, oldest first.
func (r *MarkRepo) List(ctx context.Context) ([]domain.Mark, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+markColumns+` FROM marks ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectMarks(rows)
}

// FindInBounds returns up to limit marks inside the box, oldest first.
func (r *MarkRepo) FindInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.Mark, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+markColumns+`
		FROM marks
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at, id
		LIMIT $5
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, limit)
	if err != nil {
		return nil, err
	}
	return collectMarks(rows)
}

// FindNearest returns up to limit marks inside the box ordered by planar
// distance to center, with longitude scaled by cos(latitude). Callers needing
// exact distances re-rank the candidates.
func (r *MarkRepo) FindNearest(ctx context.Context, center domain.Coordinate, b domain.Bounds, limit int) ([]domain.Mark, error) {
	lonScale := math.Cos(center.Latitude * math.Pi / 180)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+markColumns+`
		FROM marks
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY (latitude - $5) * (latitude - $5)
		       + ((longitude - $6) * $7) * ((longitude - $6) * $7),
		         created_at, id
		LIMIT $8
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, center.Latitude, center.Longitude, lonScale, limit)
	if err != nil {
		return nil, err
	}
	return collectMarks(rows)
}

// Count returns the number of stored marks.
func (r *MarkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM marks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanMark(row pgx.Row) (domain.Mark, error) {
	var m domain.Mark
	err := row.Scan(&m.Key, &m.Coordinate.Latitude, &m.Coordinate.Longitude, &m.Message, &m.CreatedAt)
	return m, err
}

func collectMarks(rows pgx.Rows) ([]domain.Mark, error) {
	defer rows.Close()
	marks := make([]domain.Mark, 0)
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}
