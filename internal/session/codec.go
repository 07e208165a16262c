// Package session は署名付きCookieによるセッションの符号化・復号を提供する。
//
// セッションはサーバー側に保存せず、HMAC署名したJSONペイロードを
// そのままCookie値として持ち回る。署名検証に失敗した値・期限切れの値は
// すべて「セッション無し」に縮退し、エラーにはならない。
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/hitoshi/shifter/internal/model"
)

// maxSecretBytes はHMAC鍵として使う秘密情報の有効長。
// 設定値がこれより長い場合は先頭64バイトに切り詰める。
const maxSecretBytes = 64

// Payload はセッションCookieに格納する内容を表す。
// OAuthコールバックで一度だけ生成され、以後は変更されない。
type Payload struct {
	User        model.Claims `json:"user"`
	AccessToken string       `json:"access_token"`
	IDToken     string       `json:"id_token"`
	Exp         int64        `json:"exp"` // エポック秒
}

// Codec はセッションペイロードの署名・検証・直列化を行う。
type Codec struct {
	secret []byte
}

// NewCodec はCodecを生成する。
func NewCodec(secret string) *Codec {
	b := []byte(secret)
	if len(b) > maxSecretBytes {
		b = b[:maxSecretBytes]
	}
	return &Codec{secret: b}
}

// Sign はUTF-8のJSONペイロードに対するHMAC-SHA256署名をURLセーフな
// base64で返す。
func (c *Codec) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode はペイロードをCookie値（base64url(JSON) + "." + 署名）に直列化する。
func (c *Codec) Encode(p *Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw) + "." + c.Sign(raw), nil
}

// Decode はCookie値を検証してペイロードを返す。
// 形式不正・署名不一致・JSONパース失敗・期限切れのいずれの場合もnilを返す。
// 復号は決して失敗を伝播しない。すべて「セッション無し」として扱う。
func (c *Codec) Decode(value string) *Payload {
	return c.decodeAt(value, time.Now())
}

// decodeAt は判定時刻を指定できるDecodeの内部実装。
func (c *Codec) decodeAt(value string, now time.Time) *Payload {
	b64, sig, ok := strings.Cut(value, ".")
	if !ok || b64 == "" || sig == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}

	// 署名はデコード済みペイロードに対して再計算し、定数時間で比較する
	expected := c.Sign(raw)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return nil
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}

	if p.Exp != 0 && now.Unix() > p.Exp {
		return nil
	}

	return &p
}
