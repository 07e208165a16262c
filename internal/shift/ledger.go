// Package shift は打刻の状態機械（Shift Ledger）と勤務集計を提供する。
//
// ユーザーごとの状態遷移は Out →（出勤）→ In →（退勤）→ Out のみ。
// 勤務中の二重出勤、勤務外の退勤はいずれも拒否する。
package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/shifter/internal/geo"
	"github.com/hitoshi/shifter/internal/metrics"
	"github.com/hitoshi/shifter/internal/model"
	"github.com/hitoshi/shifter/internal/office"
	"github.com/hitoshi/shifter/internal/repository"
	"github.com/hitoshi/shifter/internal/roles"
)

// metricsWindowDays は集計の対象とする直近日数。
const metricsWindowDays = 7

// Actor は打刻・参照を行う認証済みユーザー。
// セッションのクレームからハンドラーが組み立てる。
type Actor struct {
	ID            string
	Name          string
	Email         string
	Roles         []string
	EmailVerified bool
}

// IsManager はActorがマネージャーロールを持つかを返す。
func (a Actor) IsManager() bool {
	return roles.Contains(a.Roles, roles.RoleManager)
}

// ClockRequest は打刻リクエストの座標とメモ。
// 座標は任意（位置情報が取れない端末もある）。
type ClockRequest struct {
	Latitude  *float64
	Longitude *float64
	Note      *string
}

// Ledger はシフトの状態機械を実装する。
type Ledger struct {
	shiftRepo   repository.ShiftRepository
	userRepo    repository.UserRepository
	settingRepo repository.SettingRepository
	gate        *office.Gate
	metrics     metrics.AppMetrics
}

// NewLedger はLedgerを生成する。
func NewLedger(
	shiftRepo repository.ShiftRepository,
	userRepo repository.UserRepository,
	settingRepo repository.SettingRepository,
	gate *office.Gate,
	m metrics.AppMetrics,
) *Ledger {
	return &Ledger{
		shiftRepo:   shiftRepo,
		userRepo:    userRepo,
		settingRepo: settingRepo,
		gate:        gate,
		metrics:     m,
	}
}

// ClockIn は出勤打刻を行う。
//
// 前提条件の検査順序:
//  1. オフィスがオープンしていること
//  2. ジオフェンスが設定されていれば、その内側にいること
//     （設定が壊れている場合は警告ログの上でスキップ＝フェイルオープン）
//  3. メールアドレスが検証済みであること
//  4. 勤務中のシフトが無いこと
//
// 条件4はストレージ側の部分ユニークインデックスでも強制され、
// 並行リクエストの競合はErrOpenShiftExists経由で同じ拒否に落ちる。
func (l *Ledger) ClockIn(ctx context.Context, actor Actor, req ClockRequest) (*model.Shift, error) {
	if actor.ID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if err := l.upsertActor(ctx, actor); err != nil {
		return nil, err
	}

	status, err := l.gate.Read(ctx)
	if err != nil {
		return nil, err
	}
	if !status.IsActive {
		l.metrics.RecordClockIn("office_closed")
		return nil, model.NewOfficeClosedError()
	}

	if err := l.checkPerimeter(ctx, req); err != nil {
		return nil, err
	}

	if !actor.EmailVerified {
		l.metrics.RecordClockIn("email_unverified")
		return nil, model.NewEmailUnverifiedError()
	}

	open, err := l.shiftRepo.FindOpenByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		l.metrics.RecordClockIn("already_clocked_in")
		return nil, model.NewAlreadyClockedInError()
	}

	shift := &model.Shift{
		ID:          uuid.New().String(),
		UserID:      actor.ID,
		ClockInAt:   time.Now().UnixMilli(),
		ClockInLat:  req.Latitude,
		ClockInLng:  req.Longitude,
		ClockInNote: req.Note,
	}
	if err := l.shiftRepo.Create(ctx, shift); err != nil {
		if errors.Is(err, repository.ErrOpenShiftExists) {
			// 並行する出勤打刻に先を越された
			l.metrics.RecordClockIn("already_clocked_in")
			return nil, model.NewAlreadyClockedInError()
		}
		return nil, err
	}

	l.metrics.RecordClockIn("accepted")
	slog.Info("clock in",
		slog.String("user_id", actor.ID),
		slog.String("shift_id", shift.ID),
	)

	return shift, nil
}

// ClockOut は退勤打刻を行う。
// オフィスがオープンしており、勤務中のシフトが存在することが前提条件。
func (l *Ledger) ClockOut(ctx context.Context, actor Actor, req ClockRequest) (*model.Shift, error) {
	if actor.ID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if err := l.upsertActor(ctx, actor); err != nil {
		return nil, err
	}

	status, err := l.gate.Read(ctx)
	if err != nil {
		return nil, err
	}
	if !status.IsActive {
		l.metrics.RecordClockOut("office_closed")
		return nil, model.NewOfficeClosedError()
	}

	open, err := l.shiftRepo.FindOpenByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		l.metrics.RecordClockOut("no_active_shift")
		return nil, model.NewNoActiveShiftError()
	}

	now := time.Now().UnixMilli()
	open.ClockOutAt = &now
	open.ClockOutLat = req.Latitude
	open.ClockOutLng = req.Longitude
	open.ClockOutNote = req.Note
	if err := l.shiftRepo.Close(ctx, open); err != nil {
		return nil, err
	}

	l.metrics.RecordClockOut("accepted")
	slog.Info("clock out",
		slog.String("user_id", actor.ID),
		slog.String("shift_id", open.ID),
	)

	return open, nil
}

// ListShifts はシフト一覧をclockInAt降順で返す。
// マネージャーは全員分（ユーザー情報付き）、それ以外は自分の分のみ。
func (l *Ledger) ListShifts(ctx context.Context, actor Actor) ([]model.ShiftWithUser, error) {
	if actor.ID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if actor.IsManager() {
		return l.shiftRepo.ListAll(ctx)
	}

	own, err := l.shiftRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	// 表示名はマネージャー一覧のJOINと同じく永続化済みレコードを
	// 正とする。未登録（打刻前の参照）の場合のみクレームで補う。
	name, email := actor.Name, actor.Email
	user, err := l.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		name, email = user.Name, user.Email
	}

	out := make([]model.ShiftWithUser, 0, len(own))
	for _, s := range own {
		out = append(out, model.ShiftWithUser{
			Shift:     s,
			UserName:  name,
			UserEmail: email,
		})
	}
	return out, nil
}

// ComputeMetrics は直近7日間の勤務集計を返す。マネージャー専用。
func (l *Ledger) ComputeMetrics(ctx context.Context, actor Actor) (*model.MetricsReport, error) {
	if actor.ID == "" {
		return nil, model.NewUnauthorizedError()
	}
	if !actor.IsManager() {
		return nil, model.NewManagerRequiredError()
	}

	now := time.Now()
	since := now.AddDate(0, 0, -metricsWindowDays).UnixMilli()
	shifts, err := l.shiftRepo.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := metricsFromShifts(shifts)
	return report, nil
}

// upsertActor はクレーム由来のユーザーレコードを打刻のたびに更新する。
func (l *Ledger) upsertActor(ctx context.Context, actor Actor) error {
	name := actor.Name
	if name == "" {
		name = "Unknown User"
	}
	role := roles.RoleEmployee
	if len(actor.Roles) > 0 {
		role = actor.Roles[0]
	}
	user := &model.User{
		ID:            actor.ID,
		Name:          name,
		Email:         actor.Email,
		Role:          role,
		EmailVerified: actor.EmailVerified,
	}
	if err := l.userRepo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to persist actor: %w", err)
	}
	return nil
}

// checkPerimeter はジオフェンス前提条件を検査する。
// 設定が存在しない、または壊れている場合は強制せずに通す（フェイルオープン）。
// データ破損で全従業員の打刻を止めるより可用性を優先する設計判断。
func (l *Ledger) checkPerimeter(ctx context.Context, req ClockRequest) error {
	value, found, err := l.settingRepo.Get(ctx, repository.PerimeterKey)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	perimeter, err := repository.NormalizePerimeter(value)
	if err != nil {
		slog.Warn("perimeter setting is malformed, skipping enforcement",
			slog.String("error", err.Error()),
		)
		return nil
	}

	lat, lng := math.NaN(), math.NaN()
	if req.Latitude != nil {
		lat = *req.Latitude
	}
	if req.Longitude != nil {
		lng = *req.Longitude
	}

	if !geo.InsidePerimeter(lat, lng, perimeter.Latitude, perimeter.Longitude, perimeter.Radius) {
		l.metrics.RecordClockIn("outside_perimeter")
		return model.NewOutsidePerimeterError()
	}
	return nil
}
