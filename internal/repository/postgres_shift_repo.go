package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/shifter/internal/model"
)

// pqUniqueViolation はPostgreSQLのunique_violationエラーコード。
const pqUniqueViolation = "23505"

// PostgresShiftRepo はPostgreSQLを使用したシフトリポジトリ。
type PostgresShiftRepo struct {
	db *sql.DB
}

// NewPostgresShiftRepo はPostgresShiftRepoを生成する。
func NewPostgresShiftRepo(db *sql.DB) *PostgresShiftRepo {
	return &PostgresShiftRepo{db: db}
}

// Create は新規シフト（出勤打刻）を作成する。
// 部分ユニークインデックス shifts_one_open_per_user に弾かれた場合は
// ErrOpenShiftExistsを返す。read-then-writeの競合はここで吸収する。
func (r *PostgresShiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shifts (id, user_id, clock_in_at, clock_in_lat, clock_in_lng, clock_in_note)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		shift.ID, shift.UserID, shift.ClockInAt,
		shift.ClockInLat, shift.ClockInLng, shift.ClockInNote,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrOpenShiftExists
		}
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// FindOpenByUser は指定ユーザーの勤務中シフトのうち最新のものを返す。
// 無い場合はnilを返す。
func (r *PostgresShiftRepo) FindOpenByUser(ctx context.Context, userID string) (*model.Shift, error) {
	shift := &model.Shift{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, clock_in_at, clock_in_lat, clock_in_lng, clock_in_note,
		        clock_out_at, clock_out_lat, clock_out_lng, clock_out_note
		 FROM shifts
		 WHERE user_id = $1 AND clock_out_at IS NULL
		 ORDER BY clock_in_at DESC
		 LIMIT 1`,
		userID,
	).Scan(
		&shift.ID, &shift.UserID, &shift.ClockInAt,
		&shift.ClockInLat, &shift.ClockInLng, &shift.ClockInNote,
		&shift.ClockOutAt, &shift.ClockOutLat, &shift.ClockOutLng, &shift.ClockOutNote,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open shift: %w", err)
	}

	return shift, nil
}

// Close はシフトの退勤フィールドを書き込む。
func (r *PostgresShiftRepo) Close(ctx context.Context, shift *model.Shift) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shifts
		 SET clock_out_at = $2, clock_out_lat = $3, clock_out_lng = $4, clock_out_note = $5
		 WHERE id = $1`,
		shift.ID, shift.ClockOutAt, shift.ClockOutLat, shift.ClockOutLng, shift.ClockOutNote,
	)
	if err != nil {
		return fmt.Errorf("failed to close shift: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("shift not found: %s", shift.ID)
	}
	return nil
}

// ListAll は全シフトをユーザー情報付きでclockInAt降順で返す。
func (r *PostgresShiftRepo) ListAll(ctx context.Context) ([]model.ShiftWithUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.clock_in_at, s.clock_in_lat, s.clock_in_lng, s.clock_in_note,
		        s.clock_out_at, s.clock_out_lat, s.clock_out_lng, s.clock_out_note,
		        COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM shifts s
		 LEFT JOIN users u ON u.id = s.user_id
		 ORDER BY s.clock_in_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.ShiftWithUser
	for rows.Next() {
		var s model.ShiftWithUser
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ClockInAt,
			&s.ClockInLat, &s.ClockInLng, &s.ClockInNote,
			&s.ClockOutAt, &s.ClockOutLat, &s.ClockOutLng, &s.ClockOutNote,
			&s.UserName, &s.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift row: %w", err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shift rows: %w", err)
	}

	return shifts, nil
}

// ListByUser は指定ユーザーのシフトをclockInAt降順で返す。
func (r *PostgresShiftRepo) ListByUser(ctx context.Context, userID string) ([]model.Shift, error) {
	return r.queryShifts(ctx,
		`SELECT id, user_id, clock_in_at, clock_in_lat, clock_in_lng, clock_in_note,
		        clock_out_at, clock_out_lat, clock_out_lng, clock_out_note
		 FROM shifts
		 WHERE user_id = $1
		 ORDER BY clock_in_at DESC`,
		userID,
	)
}

// ListSince はclockInAtが指定エポックミリ秒以降のシフトを返す。
func (r *PostgresShiftRepo) ListSince(ctx context.Context, sinceMillis int64) ([]model.Shift, error) {
	return r.queryShifts(ctx,
		`SELECT id, user_id, clock_in_at, clock_in_lat, clock_in_lng, clock_in_note,
		        clock_out_at, clock_out_lat, clock_out_lng, clock_out_note
		 FROM shifts
		 WHERE clock_in_at >= $1
		 ORDER BY clock_in_at DESC`,
		sinceMillis,
	)
}

func (r *PostgresShiftRepo) queryShifts(ctx context.Context, query string, args ...any) ([]model.Shift, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		var s model.Shift
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ClockInAt,
			&s.ClockInLat, &s.ClockInLng, &s.ClockInNote,
			&s.ClockOutAt, &s.ClockOutLat, &s.ClockOutLng, &s.ClockOutNote,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift row: %w", err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shift rows: %w", err)
	}

	return shifts, nil
}

// compile-time interface check
var _ ShiftRepository = (*PostgresShiftRepo)(nil)
