// Package geo は球面上の距離計算とジオフェンス判定を提供する。
package geo

import "math"

// earthRadiusMeters は地球を球とみなしたときの半径（メートル）。
const earthRadiusMeters = 6371000

// DistanceMeters は2点間の大円距離（メートル）をハバーサイン公式で計算する。
// 純粋関数であり、対称（d(a,b)==d(b,a)）かつ同一点間では0を返す。
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// InsidePerimeter は指定座標が円形ジオフェンス内にあるかどうかを返す。
// いずれかの入力がNaNの場合はエラーではなくfalseを返す（決して失敗しない）。
func InsidePerimeter(userLat, userLng, centerLat, centerLng, radiusMeters float64) bool {
	for _, v := range []float64{userLat, userLng, centerLat, centerLng, radiusMeters} {
		if math.IsNaN(v) {
			return false
		}
	}
	return DistanceMeters(userLat, userLng, centerLat, centerLng) <= radiusMeters
}
