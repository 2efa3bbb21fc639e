package repository

import (
	"context"
	"database/sql"
	"errors"
)

// VisualPassword is one entry of the icon picklist young students use instead
// of a typed password. The table is seeded by migration and read-only at
// runtime.
type VisualPassword struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type VisualPasswordRepo struct{ DB *sql.DB }

func NewVisualPasswordRepo(db *sql.DB) *VisualPasswordRepo {
	return &VisualPasswordRepo{DB: db}
}

// List returns the full picklist in display order.
func (r *VisualPasswordRepo) List(ctx context.Context) ([]VisualPassword, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, icon FROM visual_passwords ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vps := make([]VisualPassword, 0)
	for rows.Next() {
		var vp VisualPassword
		if err := rows.Scan(&vp.ID, &vp.Name, &vp.Icon); err != nil {
			return nil, err
		}
		vps = append(vps, vp)
	}
	return vps, rows.Err()
}

// Exists reports whether an id is part of the picklist.
func (r *VisualPasswordRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM visual_passwords WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
