package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shifter/internal/model"
)

// PostgresOfficeStatusRepo はPostgreSQLを使用したオフィス状態リポジトリ。
type PostgresOfficeStatusRepo struct {
	db *sql.DB
}

// NewPostgresOfficeStatusRepo はPostgresOfficeStatusRepoを生成する。
func NewPostgresOfficeStatusRepo(db *sql.DB) *PostgresOfficeStatusRepo {
	return &PostgresOfficeStatusRepo{db: db}
}

// Get は指定IDのオフィス状態を取得する。見つからない場合はnilを返す。
func (r *PostgresOfficeStatusRepo) Get(ctx context.Context, id string) (*model.OfficeStatus, error) {
	status := &model.OfficeStatus{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, is_active, activated_by, activated_at, updated_at
		 FROM office_status WHERE id = $1`,
		id,
	).Scan(&status.ID, &status.IsActive, &status.ActivatedBy, &status.ActivatedAt, &status.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get office status: %w", err)
	}

	return status, nil
}

// Upsert はオフィス状態を作成または更新する。
func (r *PostgresOfficeStatusRepo) Upsert(ctx context.Context, status *model.OfficeStatus) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO office_status (id, is_active, activated_by, activated_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   is_active = EXCLUDED.is_active,
		   activated_by = EXCLUDED.activated_by,
		   activated_at = EXCLUDED.activated_at,
		   updated_at = EXCLUDED.updated_at`,
		status.ID, status.IsActive, status.ActivatedBy, status.ActivatedAt, status.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert office status: %w", err)
	}
	return nil
}

// compile-time interface check
var _ OfficeStatusRepository = (*PostgresOfficeStatusRepo)(nil)
