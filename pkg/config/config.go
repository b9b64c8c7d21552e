package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/menta2k/rectcam/pkg/capture"
	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/types"
)

// EnvPrefix is the prefix of environment overrides, e.g. RECTCAM_CAPTURE_ENABLE_CROP
const EnvPrefix = "RECTCAM"

// Config holds the application configuration
type Config struct {
	Camera  CameraConfig  `mapstructure:"camera" json:"camera"`
	Guide   GuideConfig   `mapstructure:"guide" json:"guide"`
	Capture CaptureConfig `mapstructure:"capture" json:"capture"`
	Output  OutputConfig  `mapstructure:"output" json:"output"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// CameraConfig holds configuration for the capture device
type CameraConfig struct {
	Facing       string `mapstructure:"facing" json:"facing" validate:"oneof=front back"`
	FlashMode    string `mapstructure:"flash_mode" json:"flash_mode" validate:"oneof=on off auto torch"`
	Permission   string `mapstructure:"permission" json:"permission" validate:"oneof=granted denied undetermined"`
	MinImageSize int    `mapstructure:"min_image_size" json:"min_image_size" validate:"gte=1"`
}

// GuideConfig holds configuration for the guide rectangle
type GuideConfig struct {
	RectType     string  `mapstructure:"rect_type" json:"rect_type" validate:"oneof=none A4 A5 custom"`
	CustomWidth  float64 `mapstructure:"custom_width" json:"custom_width" validate:"gte=0"`
	CustomHeight float64 `mapstructure:"custom_height" json:"custom_height" validate:"gte=0"`
	BorderColor  string  `mapstructure:"border_color" json:"border_color" validate:"hexcolor"`
	BorderWidth  int     `mapstructure:"border_width" json:"border_width" validate:"gte=1"`
	// ViewWidth and ViewHeight are the overlay size the preview is laid out in
	ViewWidth  float64 `mapstructure:"view_width" json:"view_width" validate:"gt=0"`
	ViewHeight float64 `mapstructure:"view_height" json:"view_height" validate:"gt=0"`
}

// CaptureConfig holds configuration for the capture pipeline
type CaptureConfig struct {
	EnableCrop                bool     `mapstructure:"enable_crop" json:"enable_crop"`
	EnablePreviewConfirmation bool     `mapstructure:"enable_preview_confirmation" json:"enable_preview_confirmation"`
	ImageQuality              *float64 `mapstructure:"image_quality" json:"image_quality,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir          string `mapstructure:"dir" json:"dir" validate:"required"`
	Prefix       string `mapstructure:"prefix" json:"prefix"`
	Suffix       string `mapstructure:"suffix" json:"suffix"`
	MaxDimension int    `mapstructure:"max_dimension" json:"max_dimension" validate:"gte=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level" json:"level" validate:"oneof=trace debug info warn error"`
	Environment string `mapstructure:"environment" json:"environment" validate:"oneof=development production"`
}

var validate = validator.New()

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Facing:       string(types.FacingBack),
			FlashMode:    string(types.FlashOff),
			Permission:   "granted",
			MinImageSize: 16,
		},
		Guide: GuideConfig{
			RectType:    string(geometry.RectNone),
			BorderColor: types.DefaultBorderColor,
			BorderWidth: types.DefaultBorderWidth,
			ViewWidth:   360,
			ViewHeight:  640,
		},
		Capture: CaptureConfig{
			EnableCrop:                false,
			EnablePreviewConfirmation: true,
		},
		Output: OutputConfig{
			Dir:    "./output",
			Suffix: "_capture",
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}

// Load reads the configuration from the default path if present, then
// applies environment overrides
func Load() (*Config, error) {
	path := GetConfigPath()
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return load(path)
}

// LoadFromFile loads configuration from a JSON or YAML file, then applies
// environment overrides
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, errors.New("config file name is empty")
	}
	return load(filename)
}

func load(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// no default, so bind explicitly for env lookup during Unmarshal
	if err := v.BindEnv("capture.image_quality"); err != nil {
		return nil, err
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("camera.facing", d.Camera.Facing)
	v.SetDefault("camera.flash_mode", d.Camera.FlashMode)
	v.SetDefault("camera.permission", d.Camera.Permission)
	v.SetDefault("camera.min_image_size", d.Camera.MinImageSize)

	v.SetDefault("guide.rect_type", d.Guide.RectType)
	v.SetDefault("guide.custom_width", d.Guide.CustomWidth)
	v.SetDefault("guide.custom_height", d.Guide.CustomHeight)
	v.SetDefault("guide.border_color", d.Guide.BorderColor)
	v.SetDefault("guide.border_width", d.Guide.BorderWidth)
	v.SetDefault("guide.view_width", d.Guide.ViewWidth)
	v.SetDefault("guide.view_height", d.Guide.ViewHeight)

	v.SetDefault("capture.enable_crop", d.Capture.EnableCrop)
	v.SetDefault("capture.enable_preview_confirmation", d.Capture.EnablePreviewConfirmation)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.prefix", d.Output.Prefix)
	v.SetDefault("output.suffix", d.Output.Suffix)
	v.SetDefault("output.max_dimension", d.Output.MaxDimension)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.environment", d.Log.Environment)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Guide.RectType == string(geometry.RectCustom) && (c.Guide.CustomWidth <= 0 || c.Guide.CustomHeight <= 0) {
		return fmt.Errorf("guide.custom_width and guide.custom_height must be positive for a custom rect")
	}

	return nil
}

// CustomRect returns the custom guide size, if both dimensions are set
func (c *Config) CustomRect() *geometry.Size {
	if c.Guide.CustomWidth > 0 && c.Guide.CustomHeight > 0 {
		return &geometry.Size{Width: c.Guide.CustomWidth, Height: c.Guide.CustomHeight}
	}
	return nil
}

// Overlay returns the configured overlay layout
func (c *Config) Overlay() geometry.OverlayLayout {
	return geometry.OverlayLayout{Width: c.Guide.ViewWidth, Height: c.Guide.ViewHeight}
}

// ToOptions converts the configuration into controller options. Callbacks
// are left for the caller to set.
func (c *Config) ToOptions() (capture.Options, error) {
	facing, err := types.ParseCameraFacing(c.Camera.Facing)
	if err != nil {
		return capture.Options{}, err
	}
	flash, err := types.ParseFlashMode(c.Camera.FlashMode)
	if err != nil {
		return capture.Options{}, err
	}
	rectType, err := geometry.ParseGuideRectType(c.Guide.RectType)
	if err != nil {
		return capture.Options{}, err
	}

	opts := capture.DefaultOptions()
	opts.Facing = facing
	opts.Flash = flash
	opts.RectType = rectType
	opts.CustomRect = c.CustomRect()
	opts.RectStyle = types.RectStyle{BorderColor: c.Guide.BorderColor, BorderWidth: c.Guide.BorderWidth}
	opts.EnableCrop = c.Capture.EnableCrop
	opts.EnablePreviewConfirmation = c.Capture.EnablePreviewConfirmation
	if c.Capture.ImageQuality != nil {
		opts.ImageQuality = capture.Quality(*c.Capture.ImageQuality)
	}
	return opts, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "rectcam", "config.json")
}
