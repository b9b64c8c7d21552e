package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/rectcam/internal/utils"
	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/types"
)

// Config holds output settings for processed images
type Config struct {
	OutputDir string
	Prefix    string
	Suffix    string
	// MaxDimension caps the long side of the output, 0 keeps the size
	MaxDimension int
}

// Processor implements the transform primitive on top of imaging
type Processor struct {
	config Config
	client *http.Client
}

// NewProcessor creates a processor writing into outputDir
func NewProcessor(outputDir string) *Processor {
	return NewProcessorWithConfig(Config{OutputDir: outputDir})
}

// NewProcessorWithConfig creates a processor with custom output settings
func NewProcessorWithConfig(config Config) *Processor {
	if config.OutputDir == "" {
		config.OutputDir = os.TempDir()
	}
	config.Prefix = utils.SanitizeFilename(config.Prefix)
	config.Suffix = utils.SanitizeFilename(config.Suffix)
	return &Processor{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "rectcam/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}

	return decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// imaging.Open applies EXIF orientation for camera JPEGs
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format for %s", path)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(strings.TrimPrefix(source, "file://"))
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Transform loads the photo, crops it to the requested region if any and
// writes it as JPEG into the output directory.
func (p *Processor) Transform(ctx context.Context, req types.TransformRequest) (types.ProcessedImage, error) {
	if strings.ToLower(req.Format) != "jpeg" && strings.ToLower(req.Format) != "jpg" && req.Format != "" {
		return types.ProcessedImage{}, fmt.Errorf("unsupported output format: %s", req.Format)
	}

	img, err := p.LoadImageSmart(ctx, req.SourceURI)
	if err != nil {
		return types.ProcessedImage{}, fmt.Errorf("failed to load photo: %w", err)
	}

	if req.Crop != nil {
		img, err = CropImageToRegion(img, *req.Crop)
		if err != nil {
			return types.ProcessedImage{}, err
		}
	}

	if limit := p.config.MaxDimension; limit > 0 {
		b := img.Bounds()
		if b.Dx() > limit || b.Dy() > limit {
			if b.Dx() >= b.Dy() {
				img = imaging.Resize(img, limit, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, limit, imaging.Lanczos)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return types.ProcessedImage{}, err
	}

	if err := utils.EnsureDir(p.config.OutputDir); err != nil {
		return types.ProcessedImage{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	out := utils.GenerateOutputFilename(uuid.NewString(), p.config.OutputDir, p.config.Prefix, p.config.Suffix, "jpg")

	quality := JPEGQuality(req.Quality)
	if err := p.SaveImage(img, out, "jpg", quality, false); err != nil {
		return types.ProcessedImage{}, fmt.Errorf("failed to encode photo: %w", err)
	}

	b := img.Bounds()
	return types.ProcessedImage{
		URI:     out,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Format:  "jpeg",
		Quality: req.Quality,
		Cropped: req.Crop != nil,
	}, nil
}

// Discard removes a processed image written by this processor
func (p *Processor) Discard(img types.ProcessedImage) error {
	dir, err := filepath.Abs(p.config.OutputDir)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(img.URI)
	if err != nil {
		return err
	}
	if filepath.Dir(path) != dir {
		return fmt.Errorf("refusing to remove %s outside %s", img.URI, p.config.OutputDir)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// JPEGQuality converts a 0..1 quality into the 1..100 JPEG scale
func JPEGQuality(q float64) int {
	v := int(math.Round(clamp(q, 0, 1) * 100))
	if v < 1 {
		v = 1
	}
	return v
}

// CropImageToRegion crops an image to a pixel region, rounding to the nearest
// pixel and clipping to the image bounds
func CropImageToRegion(img image.Image, region geometry.CropRegion) (image.Image, error) {
	bounds := img.Bounds()

	x0 := bounds.Min.X + int(math.Round(region.OriginX))
	y0 := bounds.Min.Y + int(math.Round(region.OriginY))
	x1 := bounds.Min.X + int(math.Round(region.OriginX+region.Width))
	y1 := bounds.Min.Y + int(math.Round(region.OriginY+region.Height))

	rect := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}

	return imaging.Crop(img, rect), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return imaging.Encode(f, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// DrawGuideOverlay renders the guide rectangle onto a preview frame. The
// rectangle is given in overlay coordinates and scaled to the frame the same
// way a crop region is.
func DrawGuideOverlay(img image.Image, guide geometry.GuideRect, style types.RectStyle) (image.Image, error) {
	style = style.WithDefaults()

	c, err := colorful.Hex(style.BorderColor)
	if err != nil {
		return nil, fmt.Errorf("invalid border colour %q: %w", style.BorderColor, err)
	}
	r, g, b := c.RGB255()
	border := color.NRGBA{R: r, G: g, B: b, A: 255}

	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	region, err := geometry.ComputeCropRegion(guide, geometry.PixelSize{Width: w, Height: h})
	if err != nil {
		return nil, err
	}

	// border width is in overlay units, scale with the horizontal factor
	viewW, _ := guide.ViewSize()
	stroke := int(math.Max(1, math.Round(float64(style.BorderWidth)*float64(w)/viewW)))

	x0 := int(math.Round(region.OriginX))
	y0 := int(math.Round(region.OriginY))
	x1 := int(math.Round(region.OriginX + region.Width))
	y1 := int(math.Round(region.OriginY + region.Height))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	for s := 0; s < stroke; s++ {
		drawHLine(nrgba, y0+s, x0, x1, border)
		drawHLine(nrgba, y1-1-s, x0, x1, border)
		drawVLine(nrgba, x0+s, y0, y1, border)
		drawVLine(nrgba, x1-1-s, y0, y1, border)
	}

	return nrgba, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
