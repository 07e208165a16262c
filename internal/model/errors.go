package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, attendance, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeOfficeClosed        = "OFFICE_CLOSED"
	ErrCodeOutsidePerimeter    = "OUTSIDE_PERIMETER"
	ErrCodeEmailUnverified     = "EMAIL_UNVERIFIED"
	ErrCodeManagerRequired     = "MANAGER_REQUIRED"
	ErrCodeAlreadyClockedIn    = "ALREADY_CLOCKED_IN"
	ErrCodeNoActiveShift       = "NO_ACTIVE_SHIFT"
	ErrCodeInvalidCoordinates  = "INVALID_COORDINATES"
	ErrCodeInvalidAction       = "INVALID_ACTION"
	ErrCodeInvalidPayload      = "INVALID_PAYLOAD"
	ErrCodeMissingCode         = "MISSING_CODE"
	ErrCodeStateExpired        = "STATE_EXPIRED"
	ErrCodeTokenExchangeFailed = "TOKEN_EXCHANGE_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewOfficeClosedError はオフィスが閉まっている場合のエラーを生成する。
func NewOfficeClosedError() *APIError {
	return &APIError{
		Code:     ErrCodeOfficeClosed,
		Message:  "オフィスはクローズ中のため打刻できません。",
		Category: "attendance",
		Action:   "マネージャーにオフィスのオープンを依頼してください。",
	}
}

// NewOutsidePerimeterError はジオフェンス外からの出勤打刻エラーを生成する。
func NewOutsidePerimeterError() *APIError {
	return &APIError{
		Code:     ErrCodeOutsidePerimeter,
		Message:  "勤務エリアの外からは出勤打刻できません。",
		Category: "attendance",
		Action:   "勤務エリア内に移動してから再度打刻してください。",
	}
}

// NewEmailUnverifiedError はメール未検証ユーザーの打刻エラーを生成する。
func NewEmailUnverifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailUnverified,
		Message:  "メールアドレスが未検証です。",
		Category: "auth",
		Action:   "確認メールのリンクからメールアドレスを検証してください。",
	}
}

// NewManagerRequiredError はマネージャー権限が必要な操作のエラーを生成する。
func NewManagerRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeManagerRequired,
		Message:  "この操作にはマネージャー権限が必要です。",
		Category: "auth",
		Action:   "マネージャーアカウントでログインしてください。",
	}
}

// NewAlreadyClockedInError は勤務中ユーザーの二重出勤エラーを生成する。
func NewAlreadyClockedInError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyClockedIn,
		Message:  "すでに出勤打刻済みです。",
		Category: "attendance",
		Action:   "退勤打刻をしてから再度出勤してください。",
	}
}

// NewNoActiveShiftError は勤務中シフトが無い状態での退勤エラーを生成する。
func NewNoActiveShiftError() *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveShift,
		Message:  "勤務中のシフトがありません。",
		Category: "attendance",
		Action:   "先に出勤打刻をしてください。",
	}
}

// NewInvalidCoordinatesError は無効な座標エラーを生成する。
func NewInvalidCoordinatesError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCoordinates,
		Message:  "緯度・経度の値が不正です。",
		Category: "validation",
		Action:   "数値の緯度・経度を指定してください。",
	}
}

// NewInvalidActionError は未知の打刻アクションエラーを生成する。
func NewInvalidActionError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAction,
		Message:  fmt.Sprintf("無効なアクションです: %s", action),
		Category: "validation",
		Action:   "actionには clockIn または clockOut を指定してください。",
	}
}

// NewInvalidPayloadError は不正なリクエストボディのエラーを生成する。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPayload,
		Message:  fmt.Sprintf("リクエストボディが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}

// NewMissingCodeError は認可コード欠落エラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCode,
		Message:  "認可コードがありません。",
		Category: "auth",
		Action:   "ログインをやり直してください。",
	}
}

// NewStateExpiredError はOAuthフローの期限切れエラーを生成する。
// stateクッキーが見つからない場合に使う。単なる500ではなく、
// クライアントがログインをやり直せる明示的なエラーとして返す。
func NewStateExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeStateExpired,
		Message:  "認証フローの有効期限が切れました。",
		Category: "auth",
		Action:   "再度ログインしてください。Cookieが無効化されていないか確認してください。",
	}
}

// NewTokenExchangeError はIdPトークン交換失敗エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewTokenExchangeError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExchangeFailed,
		Message:  "認証サーバーとの通信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}
