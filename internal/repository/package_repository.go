package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
)

type packageRepository struct {
	db sqlx.ExtContext
}

func NewPackageRepository(db sqlx.ExtContext) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	query := `INSERT INTO packages (id, name, price, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, pkg.ID, pkg.Name, pkg.Price, pkg.CreatedAt)
	return mapQueryError("create package", err)
}

func (r *packageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Package, error) {
	query := `SELECT id, name, price, created_at FROM packages WHERE id = $1`

	var pkg domain.Package
	if err := sqlx.GetContext(ctx, r.db, &pkg, query, id); err != nil {
		return nil, mapQueryError("get package", err)
	}
	return &pkg, nil
}
