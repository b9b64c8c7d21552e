package geometry

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeGuideRectA4(t *testing.T) {
	sizes := []OverlayLayout{
		{Width: 360, Height: 640},
		{Width: 1080, Height: 1920},
		{Width: 411.42857, Height: 731.42857},
		{Width: 1, Height: 1},
		{Width: 800, Height: 600},
	}

	for _, overlay := range sizes {
		rect, ok := ComputeGuideRect(overlay, RectA4, nil)
		if !ok {
			t.Fatalf("expected guide rect for %+v", overlay)
		}

		wantW := 0.8 * overlay.Width
		wantH := 1.4142 * wantW
		if !almostEqual(rect.Width, wantW) {
			t.Errorf("%+v: width %f, want %f", overlay, rect.Width, wantW)
		}
		if !almostEqual(rect.Height, wantH) {
			t.Errorf("%+v: height %f, want %f", overlay, rect.Height, wantH)
		}
		if !almostEqual(rect.X, (overlay.Width-wantW)/2) {
			t.Errorf("%+v: x %f", overlay, rect.X)
		}
		if !almostEqual(rect.Y, (overlay.Height-wantH)/2) {
			t.Errorf("%+v: y %f", overlay, rect.Y)
		}
	}
}

func TestComputeGuideRectA5MatchesA4(t *testing.T) {
	overlay := OverlayLayout{Width: 360, Height: 640}
	a4, _ := ComputeGuideRect(overlay, RectA4, nil)
	a5, _ := ComputeGuideRect(overlay, RectA5, nil)
	if a4 != a5 {
		t.Errorf("A5 rect %+v differs from A4 rect %+v", a5, a4)
	}
}

func TestComputeGuideRectNone(t *testing.T) {
	overlay := OverlayLayout{Width: 360, Height: 640}

	if _, ok := ComputeGuideRect(overlay, RectNone, nil); ok {
		t.Error("expected no guide rect for RectNone")
	}
	if _, ok := ComputeGuideRect(overlay, "", nil); ok {
		t.Error("expected no guide rect for empty type")
	}
}

func TestComputeGuideRectCustomUsesISORatio(t *testing.T) {
	overlay := OverlayLayout{Width: 500, Height: 1000}
	custom := &Size{Width: 100, Height: 100}

	rect, ok := ComputeGuideRect(overlay, RectNone, custom)
	if !ok {
		t.Fatal("custom rect should enable the guide")
	}
	if !almostEqual(rect.Height/rect.Width, ISORatio) {
		t.Errorf("expected ratio %f, got %f", ISORatio, rect.Height/rect.Width)
	}
}

func TestComputeGuideRectIdempotent(t *testing.T) {
	overlay := OverlayLayout{Width: 393.33, Height: 851.17}
	first, _ := ComputeGuideRect(overlay, RectA4, nil)
	second, _ := ComputeGuideRect(overlay, RectA4, nil)

	if math.Float64bits(first.X) != math.Float64bits(second.X) ||
		math.Float64bits(first.Y) != math.Float64bits(second.Y) ||
		math.Float64bits(first.Width) != math.Float64bits(second.Width) ||
		math.Float64bits(first.Height) != math.Float64bits(second.Height) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestComputeCropRegionScaling(t *testing.T) {
	guide := GuideRect{X: 10, Y: 20, Width: 100, Height: 200}
	photo := PixelSize{Width: 480, Height: 960}

	region, err := ComputeCropRegion(guide, photo)
	if err != nil {
		t.Fatalf("ComputeCropRegion failed: %v", err)
	}

	want := CropRegion{OriginX: 40, OriginY: 80, Width: 400, Height: 800}
	if region != want {
		t.Errorf("expected %+v, got %+v", want, region)
	}
}

func TestComputeCropRegionIdentity(t *testing.T) {
	guide := GuideRect{X: 10, Y: 20, Width: 100, Height: 200}
	viewW, viewH := guide.ViewSize()
	photo := PixelSize{Width: int(viewW), Height: int(viewH)}

	region, err := ComputeCropRegion(guide, photo)
	if err != nil {
		t.Fatalf("ComputeCropRegion failed: %v", err)
	}

	if region.OriginX != guide.X || region.OriginY != guide.Y ||
		region.Width != guide.Width || region.Height != guide.Height {
		t.Errorf("expected unchanged rect %+v, got %+v", guide, region)
	}
}

func TestComputeCropRegionIndependentAxes(t *testing.T) {
	guide := GuideRect{X: 10, Y: 10, Width: 80, Height: 80}
	region, err := ComputeCropRegion(guide, PixelSize{Width: 200, Height: 400})
	if err != nil {
		t.Fatalf("ComputeCropRegion failed: %v", err)
	}

	if region.Width != 160 || region.Height != 320 {
		t.Errorf("expected 160x320, got %fx%f", region.Width, region.Height)
	}
}

func TestComputeCropRegionDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		guide GuideRect
		photo PixelSize
	}{
		{"zero overlay", GuideRect{}, PixelSize{Width: 100, Height: 100}},
		{"negative width", GuideRect{X: -60, Width: 100, Height: 10}, PixelSize{Width: 100, Height: 100}},
		{"empty photo", GuideRect{X: 1, Y: 1, Width: 10, Height: 10}, PixelSize{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeCropRegion(tt.guide, tt.photo)
			if !errors.Is(err, ErrDegenerateLayout) {
				t.Errorf("expected ErrDegenerateLayout, got %v", err)
			}
		})
	}
}

func TestTrackerUpdate(t *testing.T) {
	tracker := NewTracker(RectA4, nil)

	if _, ok := tracker.Current(); ok {
		t.Error("tracker should start empty")
	}

	overlay := OverlayLayout{Width: 360, Height: 640}
	rect, changed := tracker.Update(overlay)
	if !changed {
		t.Error("first update should report a change")
	}

	again, changed := tracker.Update(overlay)
	if changed {
		t.Error("identical layout should not report a change")
	}
	if again != rect {
		t.Errorf("expected %+v, got %+v", rect, again)
	}

	if _, changed := tracker.Update(OverlayLayout{Width: 640, Height: 360}); !changed {
		t.Error("rotated layout should report a change")
	}

	current, ok := tracker.Current()
	if !ok || current.Width != 0.8*640 {
		t.Errorf("unexpected current rect %+v", current)
	}
}

func TestTrackerDisabled(t *testing.T) {
	tracker := NewTracker(RectNone, nil)
	if _, changed := tracker.Update(OverlayLayout{Width: 360, Height: 640}); changed {
		t.Error("disabled tracker should never change")
	}
	if _, ok := tracker.Current(); ok {
		t.Error("disabled tracker should have no rect")
	}
}

func TestParseGuideRectType(t *testing.T) {
	tests := []struct {
		input   string
		want    GuideRectType
		wantErr bool
	}{
		{"A4", RectA4, false},
		{"a5", RectA5, false},
		{"", RectNone, false},
		{"none", RectNone, false},
		{"custom", RectCustom, false},
		{"letter", "", true},
	}

	for _, tt := range tests {
		got, err := ParseGuideRectType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGuideRectType(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseGuideRectType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func BenchmarkComputeCropRegion(b *testing.B) {
	guide, _ := ComputeGuideRect(OverlayLayout{Width: 360, Height: 640}, RectA4, nil)
	photo := PixelSize{Width: 3024, Height: 4032}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeCropRegion(guide, photo)
	}
}
