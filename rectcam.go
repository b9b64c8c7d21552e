// Package rectcam captures photos with an optional fixed-aspect guide
// rectangle and crops them to what was inside the guide.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/menta2k/rectcam"
//		"github.com/menta2k/rectcam/pkg/config"
//		"github.com/menta2k/rectcam/pkg/types"
//	)
//
//	func main() {
//		cfg := config.Default()
//		cfg.Guide.RectType = "A4"
//		cfg.Capture.EnableCrop = true
//		cfg.Capture.EnablePreviewConfirmation = false
//
//		m, err := rectcam.New(cfg, []string{"scan.jpg"}, rectcam.Handlers{
//			OnSuccess: func(img types.ProcessedImage) { fmt.Println("saved", img.URI) },
//			OnError:   func(err error) { log.Println(err) },
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ctx := context.Background()
//		if err := m.Start(ctx); err != nil {
//			log.Fatal(err)
//		}
//		if err := m.Capture(ctx); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Geometry (pkg/geometry): guide rectangle layout and the mapping into photo pixels
// 2. Capture (pkg/capture): the capture lifecycle state machine
// 3. Processing (pkg/processing): crop and JPEG re-encode, guide overlay rendering
// 4. Camera (pkg/camera): file/URL backed capture and fixed permission providers
// 5. Match (pkg/match): fuzzy classification of crop labels
//
// The guide rectangle covers 80% of the overlay width with an ISO 216 aspect
// ratio and is centered. When cropping is enabled the rectangle is rescaled to
// the photo with independent horizontal and vertical factors, so photos whose
// aspect differs from the overlay still crop to the framed area.
package rectcam

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/menta2k/rectcam/pkg/config"
	"github.com/menta2k/rectcam/internal/logger"
	"github.com/menta2k/rectcam/pkg/camera"
	"github.com/menta2k/rectcam/pkg/capture"
	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/processing"
	"github.com/menta2k/rectcam/pkg/types"
)

// Version of the rectcam library
const Version = "1.0.0"

// Handlers receive the outcomes of a capture session
type Handlers struct {
	OnSuccess     func(types.ProcessedImage)
	OnError       func(error)
	OnClose       func()
	OnStateChange func(from, to capture.State)
}

// Module wires configuration, collaborators and the controller together
type Module struct {
	config     *config.Config
	controller *capture.Controller
	processor  *processing.Processor
	log        *logger.Logger
	sessionID  string
}

// New creates a Module whose photos come from the given files or URLs
func New(cfg *config.Config, sources []string, handlers Handlers) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New("rectcam", cfg.Log.Environment, cfg.Log.Level)
	processor := newProcessor(cfg)

	cam, err := camera.NewFileCamera(processor, camera.Config{
		Sources:      sources,
		SpoolDir:     cfg.Output.Dir,
		MinImageSize: cfg.Camera.MinImageSize,
	}, log.Zerolog())
	if err != nil {
		return nil, err
	}

	permission, err := camera.NewStaticPermission(cfg.Camera.Permission)
	if err != nil {
		return nil, err
	}

	return NewWithDependencies(cfg, capture.Dependencies{
		Permission:  permission,
		Camera:      cam,
		Transformer: processor,
	}, handlers, log.Zerolog())
}

// NewWithDependencies creates a Module with custom collaborators. A nil
// transformer uses the built-in processor and a nil logger discards output.
func NewWithDependencies(cfg *config.Config, deps capture.Dependencies, handlers Handlers, zl *zerolog.Logger) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.Nop()
	if zl != nil {
		log = &logger.Logger{Logger: *zl}
	}
	sessionID := uuid.NewString()
	log = log.WithSession(sessionID)

	processor, _ := deps.Transformer.(*processing.Processor)
	if processor == nil {
		processor = newProcessor(cfg)
		if deps.Transformer == nil {
			deps.Transformer = processor
		}
	}
	deps.Logger = log.Zerolog()

	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, err
	}
	opts.OnCaptureSuccess = handlers.OnSuccess
	opts.OnCaptureError = handlers.OnError
	opts.OnClosePress = handlers.OnClose
	opts.OnStateChange = handlers.OnStateChange

	controller, err := capture.NewController(deps, opts)
	if err != nil {
		return nil, err
	}

	return &Module{
		config:     cfg,
		controller: controller,
		processor:  processor,
		log:        log,
		sessionID:  sessionID,
	}, nil
}

func newProcessor(cfg *config.Config) *processing.Processor {
	return processing.NewProcessorWithConfig(processing.Config{
		OutputDir:    cfg.Output.Dir,
		Prefix:       cfg.Output.Prefix,
		Suffix:       cfg.Output.Suffix,
		MaxDimension: cfg.Output.MaxDimension,
	})
}

// Start requests permission and lays out the configured overlay
func (m *Module) Start(ctx context.Context) error {
	if err := m.controller.Initialize(ctx); err != nil {
		return err
	}
	m.controller.UpdateLayout(m.config.Overlay())
	return nil
}

// Layout forwards a layout event of the overlay view
func (m *Module) Layout(overlay geometry.OverlayLayout) (geometry.GuideRect, bool) {
	return m.controller.UpdateLayout(overlay)
}

// Capture runs one capture cycle
func (m *Module) Capture(ctx context.Context) error {
	return m.controller.Capture(ctx)
}

// Accept delivers the image awaiting confirmation
func (m *Module) Accept() error {
	return m.controller.AcceptPending()
}

// Retake drops the image awaiting confirmation
func (m *Module) Retake() error {
	return m.controller.RetakePending()
}

// Pending returns the image awaiting confirmation
func (m *Module) Pending() (types.ProcessedImage, bool) {
	return m.controller.Pending()
}

// State returns the lifecycle state
func (m *Module) State() capture.State {
	return m.controller.State()
}

// PermissionState returns the outcome of the permission request
func (m *Module) PermissionState() capture.PermissionState {
	return m.controller.PermissionState()
}

// Close ends the session
func (m *Module) Close() error {
	return m.controller.Close()
}

// SessionID identifies the session in logs
func (m *Module) SessionID() string {
	return m.sessionID
}

// Processor returns the image processor used for loading and saving
func (m *Module) Processor() *processing.Processor {
	return m.processor
}

// RenderGuide draws the current guide rectangle onto a preview frame
func (m *Module) RenderGuide(frame image.Image) (image.Image, error) {
	guide, ok := m.controller.GuideRect()
	if !ok {
		return nil, fmt.Errorf("no guide rectangle: rect type %q", m.config.Guide.RectType)
	}
	return processing.DrawGuideOverlay(frame, guide, m.controller.Options().RectStyle)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
