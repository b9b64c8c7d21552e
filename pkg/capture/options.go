package capture

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/types"
)

// Default JPEG qualities in the 0..1 range
const (
	DefaultQualityCrop   = 0.95
	DefaultQualityNormal = 0.6
)

// OutputFormat is the single lossy format produced by the transform step
const OutputFormat = "jpeg"

var validate = validator.New()

// Options configures a Controller
type Options struct {
	Facing     types.CameraFacing     `validate:"omitempty,oneof=front back"`
	Flash      types.FlashMode        `validate:"omitempty,oneof=on off auto torch"`
	RectType   geometry.GuideRectType `validate:"omitempty,oneof=none A4 A5 custom"`
	CustomRect *geometry.Size         // overrides RectType when set
	RectStyle  types.RectStyle

	// EnableCrop has no effect unless RectType or CustomRect asks for a guide
	EnableCrop                bool
	EnablePreviewConfirmation bool
	// ImageQuality overrides both default qualities when set
	ImageQuality *float64 `validate:"omitempty,gte=0,lte=1"`

	OnCaptureSuccess func(types.ProcessedImage) `validate:"required"`
	OnCaptureError   func(error)                `validate:"required"`
	OnClosePress     func()
	OnStateChange    func(from, to State)
}

// DefaultOptions returns options with back camera, flash off, no guide and
// preview confirmation on
func DefaultOptions() Options {
	return Options{
		Facing:                    types.FacingBack,
		Flash:                     types.FlashOff,
		RectType:                  geometry.RectNone,
		RectStyle:                 types.RectStyle{}.WithDefaults(),
		EnablePreviewConfirmation: true,
	}
}

// Quality returns a pointer for Options.ImageQuality
func Quality(q float64) *float64 {
	return &q
}

// Validate checks the options
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid capture options: %w", err)
	}
	if o.CustomRect != nil && (o.CustomRect.Width <= 0 || o.CustomRect.Height <= 0) {
		return fmt.Errorf("invalid capture options: custom rect must be positive, got %gx%g",
			o.CustomRect.Width, o.CustomRect.Height)
	}
	return nil
}

// GuideEnabled reports whether a guide rectangle is shown
func (o Options) GuideEnabled() bool {
	return geometry.Enabled(o.RectType, o.CustomRect)
}

// ShouldCrop reports whether captured photos are cropped to the guide
func (o Options) ShouldCrop() bool {
	return o.GuideEnabled() && o.EnableCrop
}

func (o Options) quality(crop bool) float64 {
	if o.ImageQuality != nil {
		return *o.ImageQuality
	}
	if crop {
		return DefaultQualityCrop
	}
	return DefaultQualityNormal
}

func (o Options) settings() types.CaptureSettings {
	s := types.CaptureSettings{Facing: o.Facing, Flash: o.Flash}
	if s.Facing == "" {
		s.Facing = types.FacingBack
	}
	if s.Flash == "" {
		s.Flash = types.FlashOff
	}
	return s
}
