package rectcam

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/rectcam/pkg/capture"
	"github.com/menta2k/rectcam/pkg/config"
	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/types"
)

// createTestImage creates a dark frame with a bright sheet where an A4 guide sits
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/10 && x < 9*width/10 && y > height/5 && y < 4*height/5 {
				img.Set(x, y, color.RGBA{250, 250, 250, 255})
			} else {
				img.Set(x, y, color.RGBA{30, 30, 30, 255})
			}
		}
	}
	return img
}

func writeSource(t *testing.T, dir string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, "shot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, createTestImage(width, height)); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Log.Environment = "production"
	cfg.Log.Level = "error"
	return cfg
}

type outcomes struct {
	images []types.ProcessedImage
	errs   []error
}

func (o *outcomes) handlers() Handlers {
	return Handlers{
		OnSuccess: func(img types.ProcessedImage) { o.images = append(o.images, img) },
		OnError:   func(err error) { o.errs = append(o.errs, err) },
	}
}

func TestCropToA4Guide(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, 720, 1280)

	cfg := testConfig(dir)
	cfg.Guide.RectType = "A4"
	cfg.Capture.EnableCrop = true
	cfg.Capture.EnablePreviewConfirmation = false

	var got outcomes
	m, err := New(cfg, []string{src}, got.handlers())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Capture(ctx); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if len(got.images) != 1 {
		t.Fatalf("expected one image, got %d (errors: %v)", len(got.images), got.errs)
	}
	img := got.images[0]

	// 360x640 overlay scaled by 2 onto 720x1280: guide is 576 wide, 576*1.4142 tall
	if img.Width != 576 {
		t.Errorf("expected width 576, got %d", img.Width)
	}
	if img.Height < 813 || img.Height > 815 {
		t.Errorf("expected height about 814, got %d", img.Height)
	}
	if !img.Cropped || img.Quality != capture.DefaultQualityCrop {
		t.Errorf("unexpected result %+v", img)
	}
	if _, err := os.Stat(img.URI); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if m.State() != capture.LivePreview {
		t.Errorf("expected live preview, got %s", m.State())
	}
}

func TestPreviewConfirmationFlow(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, 200, 300)

	var got outcomes
	m, err := New(testConfig(dir), []string{src}, got.handlers())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := m.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	first, ok := m.Pending()
	if !ok || len(got.images) != 0 {
		t.Fatal("expected a pending image and no delivery")
	}

	if err := m.Retake(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(first.URI); !os.IsNotExist(err) {
		t.Error("retake should remove the rejected image")
	}

	if err := m.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Accept(); err != nil {
		t.Fatal(err)
	}
	if len(got.images) != 1 || got.images[0].Width != 200 || got.images[0].Cropped {
		t.Errorf("unexpected outcomes %+v", got.images)
	}
	if len(got.errs) != 0 {
		t.Errorf("unexpected errors %v", got.errs)
	}
}

func TestPermissionDenied(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Camera.Permission = "denied"

	var got outcomes
	m, err := New(cfg, []string{filepath.Join(dir, "none.png")}, got.handlers())
	if err != nil {
		t.Fatal(err)
	}

	err = m.Start(context.Background())
	if !errors.Is(err, capture.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if m.State() != capture.PermissionDenied {
		t.Errorf("expected permission denied, got %s", m.State())
	}
	if msg := m.PermissionState().Error; msg != "Camera permission is required." {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestCaptureErrorReported(t *testing.T) {
	dir := t.TempDir()

	var got outcomes
	m, err := New(testConfig(dir), []string{filepath.Join(dir, "missing.png")}, got.handlers())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := m.Capture(ctx); !errors.Is(err, capture.ErrCapture) {
		t.Errorf("expected capture error, got %v", err)
	}
	if len(got.errs) != 1 {
		t.Errorf("expected one reported error, got %d", len(got.errs))
	}
	if m.State() != capture.LivePreview {
		t.Errorf("expected live preview, got %s", m.State())
	}
}

func TestRenderGuide(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Guide.RectType = "A5"

	var got outcomes
	m, err := New(cfg, []string{writeSource(t, dir, 360, 640)}, got.handlers())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.RenderGuide(createTestImage(360, 640)); err == nil {
		t.Error("expected error before layout")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, changed := m.Layout(cfg.Overlay()); changed {
		t.Error("repeated layout should not change the guide")
	}

	frame, err := m.RenderGuide(createTestImage(360, 640))
	if err != nil {
		t.Fatalf("RenderGuide failed: %v", err)
	}
	guide, _ := geometry.ComputeGuideRect(cfg.Overlay(), geometry.RectA5, nil)
	c := color.NRGBAModel.Convert(frame.At(int(guide.X)+1, int(guide.Y)+1)).(color.NRGBA)
	if c != (color.NRGBA{0x4D, 0xD6, 0x37, 255}) {
		t.Errorf("expected border colour at guide corner, got %v", c)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Guide.BorderWidth = 0
	if _, err := New(cfg, []string{"a.png"}, Handlers{}); err == nil {
		t.Error("expected validation error")
	}

	cfg = testConfig(t.TempDir())
	if _, err := New(cfg, []string{"a.png"}, Handlers{}); err == nil {
		t.Error("expected error without callbacks")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version || Version == "" {
		t.Errorf("GetVersion() returned %s, expected %s", GetVersion(), Version)
	}
}

func BenchmarkCaptureCycle(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "shot.png")
	f, _ := os.Create(path)
	png.Encode(f, createTestImage(720, 1280))
	f.Close()

	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Log.Level = "error"
	cfg.Guide.RectType = "A4"
	cfg.Capture.EnableCrop = true
	cfg.Capture.EnablePreviewConfirmation = false

	m, err := New(cfg, []string{path}, Handlers{OnSuccess: func(types.ProcessedImage) {}, OnError: func(error) {}})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	m.Start(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Capture(ctx)
	}
}
