package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	d := DistanceMeters(35.6812, 139.7671, 35.6812, 139.7671)
	if d != 0 {
		t.Errorf("DistanceMeters(a, a) = %v, want 0", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"東京-大阪", 35.6812, 139.7671, 34.7025, 135.4959},
		{"赤道付近", 0.0, 0.0, 0.5, 0.5},
		{"南北半球またぎ", -33.8688, 151.2093, 51.5074, -0.1278},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			ba := DistanceMeters(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("d(a,b) = %v, d(b,a) = %v, want equal", ab, ba)
			}
		})
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// 東京駅から新宿駅までは約6.3km
	d := DistanceMeters(35.6812, 139.7671, 35.6896, 139.7006)
	if d < 5500 || d > 7000 {
		t.Errorf("DistanceMeters(東京駅, 新宿駅) = %v, want ~6300", d)
	}
}

func TestInsidePerimeter_CenterIsInside(t *testing.T) {
	if !InsidePerimeter(35.0, 139.0, 35.0, 139.0, 100) {
		t.Error("center point should be inside any positive radius")
	}
}

func TestInsidePerimeter_Boundary(t *testing.T) {
	// 中心から約111m北（緯度0.001度）
	inside := InsidePerimeter(35.001, 139.0, 35.0, 139.0, 50)
	if inside {
		t.Error("point ~111m away should be outside a 50m radius")
	}
	inside = InsidePerimeter(35.001, 139.0, 35.0, 139.0, 200)
	if !inside {
		t.Error("point ~111m away should be inside a 200m radius")
	}
}

func TestInsidePerimeter_NaNInputsReturnFalse(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name                                             string
		userLat, userLng, centerLat, centerLng, radiusMs float64
	}{
		{"userLatがNaN", nan, 139.0, 35.0, 139.0, 100},
		{"userLngがNaN", 35.0, nan, 35.0, 139.0, 100},
		{"centerLatがNaN", 35.0, 139.0, nan, 139.0, 100},
		{"centerLngがNaN", 35.0, 139.0, 35.0, nan, 100},
		{"radiusがNaN", 35.0, 139.0, 35.0, 139.0, nan},
		{"すべてNaN", nan, nan, nan, nan, nan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if InsidePerimeter(tt.userLat, tt.userLng, tt.centerLat, tt.centerLng, tt.radiusMs) {
				t.Error("InsidePerimeter with NaN input should return false")
			}
		})
	}
}
