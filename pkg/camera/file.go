// Package camera provides capture and permission collaborators that work
// without a device: photos come from files or URLs and permission is fixed
// by configuration.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/menta2k/rectcam/internal/utils"
	"github.com/menta2k/rectcam/pkg/processing"
	"github.com/menta2k/rectcam/pkg/types"
)

// DefaultMinImageSize is the smallest accepted photo side in pixels
const DefaultMinImageSize = 16

// Config holds configuration for the file camera
type Config struct {
	// Sources are used in turn, one per shot, wrapping around
	Sources []string
	// SpoolDir receives downloaded photos
	SpoolDir     string
	MinImageSize int
}

// FileCamera takes "photos" by loading images from file paths or URLs
type FileCamera struct {
	processor *processing.Processor
	config    Config
	log       zerolog.Logger

	mu   sync.Mutex
	next int
}

// NewFileCamera creates a camera cycling through the given sources
func NewFileCamera(processor *processing.Processor, config Config, log *zerolog.Logger) (*FileCamera, error) {
	if len(config.Sources) == 0 {
		return nil, errors.New("camera: at least one photo source is required")
	}
	if config.MinImageSize <= 0 {
		config.MinImageSize = DefaultMinImageSize
	}
	l := zerolog.Nop()
	if log != nil {
		l = log.With().Str("component", "camera").Logger()
	}
	return &FileCamera{processor: processor, config: config, log: l}, nil
}

// TakePhoto implements capture.Camera
func (c *FileCamera) TakePhoto(ctx context.Context, settings types.CaptureSettings) (types.CapturedPhoto, error) {
	source := c.nextSource()
	remote := isRemote(source)
	if !remote && !utils.IsImageFile(source) {
		return types.CapturedPhoto{}, fmt.Errorf("not an image file: %s", source)
	}

	img, err := c.processor.LoadImageSmart(ctx, source)
	if err != nil {
		return types.CapturedPhoto{}, fmt.Errorf("failed to read photo source: %w", err)
	}
	if err := c.ValidateImage(img); err != nil {
		return types.CapturedPhoto{}, err
	}

	uri := source
	if remote {
		if c.config.SpoolDir == "" {
			return types.CapturedPhoto{}, errors.New("camera: spool directory required for remote sources")
		}
		if err := utils.EnsureDir(c.config.SpoolDir); err != nil {
			return types.CapturedPhoto{}, err
		}
		uri = utils.GenerateOutputFilename(uuid.NewString(), c.config.SpoolDir, "raw_", "", "png")
		if err := c.processor.SaveImage(img, uri, "png", 0, true); err != nil {
			return types.CapturedPhoto{}, fmt.Errorf("failed to spool photo: %w", err)
		}
	}

	info := GetImageInfo(img)
	c.log.Debug().
		Str("source", source).
		Str("facing", string(settings.Facing)).
		Str("flash", string(settings.Flash)).
		Int("width", info.Width).Int("height", info.Height).
		Msg("photo taken")

	return types.CapturedPhoto{URI: uri, PixelWidth: info.Width, PixelHeight: info.Height}, nil
}

func (c *FileCamera) nextSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.config.Sources[c.next%len(c.config.Sources)]
	c.next++
	return s
}

// ValidateImage checks that a photo meets the minimum size
func (c *FileCamera) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < c.config.MinImageSize || bounds.Dy() < c.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), c.config.MinImageSize)
	}
	return nil
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{Width: width, Height: height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
