// Package roles はIdPクレームからのロール解決を提供する。
//
// このシステムには専用のロール管理ストアが無く、ロールはIDトークンの
// クレームとメールアドレスのヒューリスティックから導出する。解決順序は
// 互換性のため固定であり、Resolverの背後に隔離してShift LedgerやOffice Gate
// からは見えないようにしている。
package roles

import (
	"strings"

	"github.com/hitoshi/shifter/internal/model"
)

// 既知のロール名。
const (
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// defaultRolesClaim はこのアプリで慣習的に使われるカスタムクレームのキー。
const defaultRolesClaim = "https://shifter.dev/roles"

// Config はResolverの設定。
type Config struct {
	Namespace      string // カスタムクレームの名前空間（空ならスキップ）
	DefaultRole    string // 最終フォールバックの手前で使うデフォルトロール（空ならスキップ）
	ManagerDomain  string // この接尾辞で終わるメールはmanager扱い（空ならスキップ）
	ManagerKeyword string // この部分文字列を含むメールはmanager扱い（空ならスキップ）
}

// Resolver はクレームからロール集合を導出する。
// 隠れたプロセス全域の状態を持たず、依存注入で各コンポーネントに渡す。
type Resolver struct {
	config Config
}

// NewResolver はResolverを生成する。
func NewResolver(config Config) *Resolver {
	return &Resolver{config: config}
}

// ExtractRoles はクレームからロールの順序付き集合を導出する。
// 全域関数であり、どんな入力（nil含む）に対しても必ず1つ以上のロールを返す。
//
// 解決順序（最初に一致したものが勝つ）:
//  1. rolesクレームの非空配列（手動設定が最優先）
//  2. メールアドレスのヒューリスティック
//  3. 設定されたカスタムクレーム名前空間
//  4. 既定のカスタムクレームキー
//  5. 汎用的なrole/permissionsクレーム
//  6. 設定されたデフォルトロール
//  7. employee（最終フォールバック）
func (r *Resolver) ExtractRoles(claims model.Claims) []string {
	if claims == nil {
		return []string{RoleEmployee}
	}

	// 1. 手動設定されたrolesが非空ならそのまま返す
	if manual := stringSlice(claims["roles"]); len(manual) > 0 {
		return manual
	}

	// 2. メールアドレスのヒューリスティック
	if email := strings.ToLower(claims.Email()); email != "" {
		if r.matchesManagerEmail(email) {
			return []string{RoleManager}
		}
		if strings.Contains(email, "employee") ||
			strings.Contains(email, "nurse") ||
			strings.Contains(email, "doctor") {
			return []string{RoleEmployee}
		}
	}

	// 3. 設定されたカスタムクレーム名前空間
	if r.config.Namespace != "" {
		if rs := stringSlice(claims[r.config.Namespace]); len(rs) > 0 {
			return rs
		}
	}

	// 4. 既定のカスタムクレームキー
	if rs := stringSlice(claims[defaultRolesClaim]); len(rs) > 0 {
		return rs
	}

	// 5. 汎用的なクレームフィールド
	if role := claims.StringClaim("role"); role != "" {
		return []string{role}
	}
	if perms := stringSlice(claims["permissions"]); len(perms) > 0 {
		return perms
	}

	// 6. 設定されたデフォルトロール
	if r.config.DefaultRole != "" {
		return []string{r.config.DefaultRole}
	}

	// 7. 最終フォールバック
	return []string{RoleEmployee}
}

// HasRole はクレームから解決したロールに指定ロールが含まれるかを返す。
func (r *Resolver) HasRole(claims model.Claims, role string) bool {
	for _, got := range r.ExtractRoles(claims) {
		if got == role {
			return true
		}
	}
	return false
}

// IsManager はユーザーがマネージャーかどうかを返す。
func (r *Resolver) IsManager(claims model.Claims) bool {
	return r.HasRole(claims, RoleManager)
}

// IsEmployee はユーザーが一般従業員かどうかを返す。
func (r *Resolver) IsEmployee(claims model.Claims) bool {
	return r.HasRole(claims, RoleEmployee)
}

// matchesManagerEmail はメールアドレスがマネージャーのパターンに該当するかを返す。
// emailは小文字化済みであること。
func (r *Resolver) matchesManagerEmail(email string) bool {
	if strings.Contains(email, "manager") || strings.Contains(email, "admin") {
		return true
	}
	if r.config.ManagerKeyword != "" && strings.Contains(email, strings.ToLower(r.config.ManagerKeyword)) {
		return true
	}
	if r.config.ManagerDomain != "" && strings.HasSuffix(email, strings.ToLower(r.config.ManagerDomain)) {
		return true
	}
	return false
}

// Contains はロール集合に指定ロールが含まれるかを返す。
// セッションから解決済みのロール列を受け取るハンドラー用。
func Contains(roleSet []string, role string) bool {
	for _, got := range roleSet {
		if got == role {
			return true
		}
	}
	return false
}

// stringSlice は配列または単一文字列のクレーム値を文字列スライスに正規化する。
// 文字列として解釈できない場合はnilを返す。
func stringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return nil
		}
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}
