package model

// Claims はIDトークンからデコードした生のユーザークレームを表す。
// ロール解決はクレーム全体を参照するため、既知フィールドに絞らず保持する。
type Claims map[string]any

// StringClaim は指定キーのクレームを文字列として返す。
// 存在しない、または文字列でない場合は空文字を返す。
func (c Claims) StringClaim(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Sub はIdPのsubject（ユーザーID）を返す。
func (c Claims) Sub() string { return c.StringClaim("sub") }

// Email はメールアドレスを返す。
func (c Claims) Email() string { return c.StringClaim("email") }

// Name は表示名を返す。nameが無い場合はnicknameにフォールバックする。
func (c Claims) Name() string {
	if name := c.StringClaim("name"); name != "" {
		return name
	}
	return c.StringClaim("nickname")
}

// EmailVerified はメールアドレスが検証済みかどうかを返す。
// クレームが無い場合はfalse。
func (c Claims) EmailVerified() bool {
	if c == nil {
		return false
	}
	v, ok := c["email_verified"].(bool)
	return ok && v
}

// Exp はIDトークンのexpクレーム（エポック秒）を返す。無い場合は0。
func (c Claims) Exp() int64 {
	if c == nil {
		return 0
	}
	// JSONデコード経由ではfloat64、jwtライブラリ経由でも数値はfloat64になる
	switch v := c["exp"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
