package vmath

import (
	"math"
	"testing"
)

func TestV3FFromYawPitchCardinal(t *testing.T) {
	tests := []struct {
		name       string
		yaw, pitch float64
		want       Vec3F
	}{
		{"south", 0, 0, Vec3F{0, 0, 1}},
		{"west", 90, 0, Vec3F{-1, 0, 0}},
		{"north", 180, 0, Vec3F{0, 0, -1}},
		{"east", -90, 0, Vec3F{1, 0, 0}},
		{"straight up", 0, -90, Vec3F{0, 1, 0}},
		{"straight down", 0, 90, Vec3F{0, -1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := V3FFromYawPitch(tt.yaw, tt.pitch)
			if !V3FApproxEqual(got, tt.want, 1e-9) {
				t.Errorf("V3FFromYawPitch(%v, %v) = %v, want %v", tt.yaw, tt.pitch, got, tt.want)
			}
			if mag := V3FMag(got); math.Abs(mag-1) > 1e-9 {
				t.Errorf("magnitude %v, want 1", mag)
			}
		})
	}
}

func TestV3FNormalizeZero(t *testing.T) {
	if got := V3FNormalize(Vec3F{}); got != (Vec3F{}) {
		t.Errorf("V3FNormalize(zero) = %v, want zero", got)
	}
}

func TestV3FScaleAdd(t *testing.T) {
	v := V3FAdd(V3FScale(Vec3F{1, 2, 3}, 2), Up)
	want := Vec3F{2, 5, 6}
	if v != want {
		t.Errorf("got %v, want %v", v, want)
	}
}
