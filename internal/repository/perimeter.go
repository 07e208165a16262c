package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/hitoshi/shifter/internal/model"
)

// PerimeterKey はジオフェンス設定を保持するsettingsのキー。
const PerimeterKey = "perimeter"

// ErrPerimeterMalformed は保存済みのジオフェンス設定が解釈できないことを示す。
// 呼び出し側（Shift Ledger）はこのエラーを警告ログに落として
// ジオフェンス強制をスキップする（フェイルオープン）。
var ErrPerimeterMalformed = errors.New("perimeter setting is malformed")

// rawPerimeter は歴代のフィールド名ゆれをすべて受けるデコード用構造体。
// 正規形 {latitude, longitude, radius} のほか、旧形式
// {lat, lng, radiusMeters} と {centerLat, centerLng, radius} を受け付ける。
type rawPerimeter struct {
	Latitude  *float64 `json:"latitude"`
	Lat       *float64 `json:"lat"`
	CenterLat *float64 `json:"centerLat"`

	Longitude *float64 `json:"longitude"`
	Lng       *float64 `json:"lng"`
	CenterLng *float64 `json:"centerLng"`

	Radius       *float64 `json:"radius"`
	RadiusMeters *float64 `json:"radiusMeters"`
}

// NormalizePerimeter は保存済みJSONを正規化済みのPerimeterに変換する。
// フィールド名のゆれはここで吸収し、ビジネスロジックへは正規形のみを渡す。
// 欠落・非数値・半径0以下の場合はErrPerimeterMalformedを返す。
func NormalizePerimeter(value string) (*model.Perimeter, error) {
	var raw rawPerimeter
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPerimeterMalformed, err)
	}

	lat := firstOf(raw.Latitude, raw.Lat, raw.CenterLat)
	lng := firstOf(raw.Longitude, raw.Lng, raw.CenterLng)
	radius := firstOf(raw.Radius, raw.RadiusMeters)

	if lat == nil || lng == nil || radius == nil {
		return nil, fmt.Errorf("%w: missing field", ErrPerimeterMalformed)
	}
	if math.IsNaN(*lat) || math.IsNaN(*lng) || math.IsNaN(*radius) {
		return nil, fmt.Errorf("%w: non-numeric field", ErrPerimeterMalformed)
	}
	if *radius <= 0 {
		return nil, fmt.Errorf("%w: non-positive radius", ErrPerimeterMalformed)
	}

	return &model.Perimeter{
		Latitude:  *lat,
		Longitude: *lng,
		Radius:    *radius,
	}, nil
}

// MarshalPerimeter はPerimeterを正規形JSONに直列化する。
// 書き込みは常に正規形で行い、旧形式は読み取り時のみ受け付ける。
func MarshalPerimeter(p model.Perimeter) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func firstOf(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
