package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrack/chaintrack/internal/fault"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, name, manufacturerID string, isSerialized bool, description string) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Validation("product name is empty")
	}
	p := &Product{
		ID:             uuid.NewString(),
		Name:           name,
		ManufacturerID: manufacturerID,
		IsSerialized:   isSerialized,
		Description:    description,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, manufacturer_id, is_serialized, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.ManufacturerID, p.IsSerialized, p.Description,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, manufacturer_id, is_serialized, description, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.ManufacturerID, &p.IsSerialized, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	return r.list(ctx, `SELECT id, name, manufacturer_id, is_serialized, description, created_at, updated_at
		FROM products ORDER BY name`)
}

func (r *Repo) ListByManufacturer(ctx context.Context, manufacturerID string) ([]Product, error) {
	return r.list(ctx, `SELECT id, name, manufacturer_id, is_serialized, description, created_at, updated_at
		FROM products WHERE manufacturer_id=$1 ORDER BY name`, manufacturerID)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ManufacturerID, &p.IsSerialized, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
