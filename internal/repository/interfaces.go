// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/shifter/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert はユーザーを作成または上書き更新する（last-write-wins）。
	// OAuthコールバックおよび打刻のたびにクレームから呼ばれる。
	Upsert(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ShiftRepository はシフトデータの永続化インターフェース。
type ShiftRepository interface {
	// Create は新規シフト（出勤打刻）を作成する。
	// 同一ユーザーのオープンシフトが既に存在する場合は部分ユニーク
	// インデックスに弾かれ、ErrOpenShiftExistsを返す。
	Create(ctx context.Context, shift *model.Shift) error

	// FindOpenByUser は指定ユーザーの勤務中シフトのうち最新のものを返す。
	// 無い場合はnilを返す。
	FindOpenByUser(ctx context.Context, userID string) (*model.Shift, error)

	// Close はシフトの退勤フィールド（clockOutAt/Lat/Lng/Note）を書き込む。
	// シフトは生涯で一度だけCloseされる。
	Close(ctx context.Context, shift *model.Shift) error

	// ListAll は全シフトをユーザー情報付きでclockInAt降順で返す。
	ListAll(ctx context.Context) ([]model.ShiftWithUser, error)

	// ListByUser は指定ユーザーのシフトをclockInAt降順で返す。
	ListByUser(ctx context.Context, userID string) ([]model.Shift, error)

	// ListSince はclockInAtが指定エポックミリ秒以降のシフトを返す。
	// メトリクス集計用。
	ListSince(ctx context.Context, sinceMillis int64) ([]model.Shift, error)
}

// SettingRepository はキーバリュー設定の永続化インターフェース。
type SettingRepository interface {
	// Get は指定キーの設定値を返す。2番目の戻り値は存在したかどうか。
	Get(ctx context.Context, key string) (string, bool, error)

	// Upsert は設定値を作成または更新する。
	Upsert(ctx context.Context, key, value string) error
}

// OfficeStatusRepository はオフィス開閉状態の永続化インターフェース。
type OfficeStatusRepository interface {
	// Get は指定IDのオフィス状態を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (*model.OfficeStatus, error)

	// Upsert はオフィス状態を作成または更新する。
	Upsert(ctx context.Context, status *model.OfficeStatus) error
}
