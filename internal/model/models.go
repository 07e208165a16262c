// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// 主キーはIdPのsubクレーム。OAuthコールバックおよび打刻時にクレームからupsertされる。
type User struct {
	ID            string
	Name          string
	Email         string
	Role          string // 解決済みロールの先頭をキャッシュする
	EmailVerified bool
}

// Shift は1回の勤務（出勤〜退勤）を表す。
// ClockOutAtがnilのレコードが「オープンシフト」（勤務中）。
// 不変条件: 同一ユーザーのオープンシフトは常に高々1件。
type Shift struct {
	ID           string
	UserID       string
	ClockInAt    int64 // エポックミリ秒
	ClockInLat   *float64
	ClockInLng   *float64
	ClockInNote  *string
	ClockOutAt   *int64 // エポックミリ秒。nilは勤務中
	ClockOutLat  *float64
	ClockOutLng  *float64
	ClockOutNote *string
}

// Open はシフトが勤務中（退勤未打刻）かどうかを返す。
func (s *Shift) Open() bool {
	return s.ClockOutAt == nil
}

// ShiftWithUser はシフトにユーザー情報を結合したもの。
// マネージャー向け一覧で使用する。
type ShiftWithUser struct {
	Shift
	UserName  string
	UserEmail string
}

// Perimeter は出勤打刻を許可する円形ジオフェンスを表す。
// 正規化済みの形式のみを保持する。過去のフィールド名のゆれは
// ストレージ境界（repository）で吸収する。
type Perimeter struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"` // メートル
}

// OfficeStatus はオフィスの開閉状態（シングルトン、id="office"）を表す。
// ActivatedByは非アクティブ化後も最後にオープンした人として保持する（監査履歴）。
type OfficeStatus struct {
	ID          string
	IsActive    bool
	ActivatedBy *string
	ActivatedAt *int64 // エポック秒。非アクティブ時はnil
	UpdatedAt   int64  // エポック秒
}

// DayCount は日別の出勤人数を表す。
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// StaffHours はスタッフ別の合計勤務時間を表す。
type StaffHours struct {
	UserID string  `json:"userId"`
	Hours  float64 `json:"hours"`
}

// MetricsReport は直近ウィンドウの集計結果を表す。
type MetricsReport struct {
	AvgHoursPerDay     float64      `json:"avgHoursPerDay"`
	PeoplePerDay       []DayCount   `json:"peoplePerDay"`
	TotalHoursPerStaff []StaffHours `json:"totalHoursPerStaff"`
}
