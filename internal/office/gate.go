// Package office はオフィス開閉スイッチ（Office Gate）を提供する。
package office

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/repository"
)

// StatusID はオフィス状態シングルトンの固定ID。
const StatusID = "office"

// Gate はマネージャーが操作するオフィスの開閉スイッチ。
// 認可は呼び出し側の責務であり、Gate自身はロールを検査しない。
type Gate struct {
	repo repository.OfficeStatusRepository
}

// NewGate はGateを生成する。
func NewGate(repo repository.OfficeStatusRepository) *Gate {
	return &Gate{repo: repo}
}

// Read は現在のオフィス状態を返す。
// レコードが無い場合はisActive=falseで遅延作成する。
func (g *Gate) Read(ctx context.Context) (*model.OfficeStatus, error) {
	status, err := g.repo.Get(ctx, StatusID)
	if err != nil {
		return nil, fmt.Errorf("failed to read office status: %w", err)
	}
	if status != nil {
		return status, nil
	}

	status = &model.OfficeStatus{
		ID:        StatusID,
		IsActive:  false,
		UpdatedAt: time.Now().Unix(),
	}
	if err := g.repo.Upsert(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to create office status: %w", err)
	}
	return status, nil
}

// Set はオフィスの開閉状態を更新する。
// updatedAtは常に更新する。オープン時はactivatedBy/activatedAtを記録し、
// クローズ時はactivatedAtのみクリアする。activatedByは最後にオープンした
// 人の監査履歴として意図的に保持する。
func (g *Gate) Set(ctx context.Context, isActive bool, actingUserID string) (*model.OfficeStatus, error) {
	current, err := g.Read(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	updated := &model.OfficeStatus{
		ID:          StatusID,
		IsActive:    isActive,
		ActivatedBy: current.ActivatedBy,
		ActivatedAt: current.ActivatedAt,
		UpdatedAt:   now,
	}
	if isActive {
		updated.ActivatedBy = &actingUserID
		updated.ActivatedAt = &now
	} else {
		updated.ActivatedAt = nil
	}

	if err := g.repo.Upsert(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update office status: %w", err)
	}

	return updated, nil
}
