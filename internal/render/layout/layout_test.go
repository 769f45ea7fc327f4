package layout

import (
	"image"
	"testing"
)

func TestCornerSquare(t *testing.T) {
	tests := []struct {
		name     string
		canvas   image.Rectangle
		fraction float64
		padding  int
		want     image.Rectangle
	}{
		{"landscape", image.Rect(0, 0, 1920, 1080), 0.2, 24, image.Rect(1680, 840, 1896, 1056)},
		{"portrait", image.Rect(0, 0, 600, 1000), 0.5, 0, image.Rect(300, 700, 600, 1000)},
		{"clamped", image.Rect(0, 0, 100, 100), 2, 10, image.Rect(10, 10, 90, 90)},
		{"empty", image.Rect(0, 0, 0, 0), 0.2, 0, image.Rect(0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CornerSquare(tt.canvas, tt.fraction, tt.padding); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInsetNormalizes(t *testing.T) {
	got := Inset(image.Rect(0, 0, 10, 10), 8)
	if got.Min.X > got.Max.X || got.Min.Y > got.Max.Y {
		t.Fatalf("expected a normalized rect, got %v", got)
	}
}
