package types

import (
	"fmt"

	"github.com/menta2k/rectcam/pkg/geometry"
)

// CameraFacing selects which physical camera takes the photo
type CameraFacing string

const (
	FacingBack  CameraFacing = "back"
	FacingFront CameraFacing = "front"
)

// FlashMode controls the flash during capture
type FlashMode string

const (
	FlashOff   FlashMode = "off"
	FlashOn    FlashMode = "on"
	FlashAuto  FlashMode = "auto"
	FlashTorch FlashMode = "torch"
)

// ParseCameraFacing converts a config string into a CameraFacing. Empty means back.
func ParseCameraFacing(s string) (CameraFacing, error) {
	switch CameraFacing(s) {
	case "", FacingBack:
		return FacingBack, nil
	case FacingFront:
		return FacingFront, nil
	}
	return "", fmt.Errorf("unknown camera facing %q", s)
}

// ParseFlashMode converts a config string into a FlashMode. Empty means off.
func ParseFlashMode(s string) (FlashMode, error) {
	switch FlashMode(s) {
	case "", FlashOff:
		return FlashOff, nil
	case FlashOn, FlashAuto, FlashTorch:
		return FlashMode(s), nil
	}
	return "", fmt.Errorf("unknown flash mode %q", s)
}

// CaptureSettings is handed to the capture primitive on every shot
type CaptureSettings struct {
	Facing CameraFacing
	Flash  FlashMode
}

// CapturedPhoto is the raw result of one capture press
type CapturedPhoto struct {
	URI         string `json:"uri"`
	PixelWidth  int    `json:"pixel_width"`
	PixelHeight int    `json:"pixel_height"`
}

// ProcessedImage is the output of the transform primitive
type ProcessedImage struct {
	URI     string  `json:"uri"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Format  string  `json:"format"`
	Quality float64 `json:"quality"`
	Cropped bool    `json:"cropped"`
}

// PermissionStatus mirrors the platform permission states
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "GRANTED"
	PermissionDenied       PermissionStatus = "DENIED"
	PermissionUndetermined PermissionStatus = "UNDETERMINED"
)

// PermissionResult is the answer of a camera permission request
type PermissionResult struct {
	Granted      bool             `json:"granted"`
	Status       PermissionStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// RectStyle describes how the guide rectangle border is drawn
type RectStyle struct {
	BorderColor string `json:"border_color" validate:"omitempty,hexcolor"`
	BorderWidth int    `json:"border_width" validate:"gte=0"`
}

// Default guide border style
const (
	DefaultBorderColor = "#4DD637"
	DefaultBorderWidth = 5
)

// WithDefaults fills unset fields with the default style
func (s RectStyle) WithDefaults() RectStyle {
	if s.BorderColor == "" {
		s.BorderColor = DefaultBorderColor
	}
	if s.BorderWidth <= 0 {
		s.BorderWidth = DefaultBorderWidth
	}
	return s
}

// TransformRequest asks the transform primitive to re-encode a photo,
// optionally cropping it first
type TransformRequest struct {
	SourceURI string
	Crop      *geometry.CropRegion
	Quality   float64
	Format    string
}
