// Package capture drives the capture lifecycle: permission, live preview,
// capture, optional crop to the guide rectangle, optional accept/retake
// confirmation and delivery of the result.
package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/menta2k/rectcam/pkg/geometry"
	"github.com/menta2k/rectcam/pkg/types"
)

// PermissionProvider requests access to the camera
type PermissionProvider interface {
	RequestCameraPermission(ctx context.Context) (types.PermissionResult, error)
}

// Camera takes a photo
type Camera interface {
	TakePhoto(ctx context.Context, settings types.CaptureSettings) (types.CapturedPhoto, error)
}

// Transformer crops and re-encodes a photo
type Transformer interface {
	Transform(ctx context.Context, req types.TransformRequest) (types.ProcessedImage, error)
}

// Discarder is implemented by transformers that can release a processed
// image the user rejected
type Discarder interface {
	Discard(img types.ProcessedImage) error
}

// Dependencies are the external collaborators of a Controller
type Dependencies struct {
	Permission  PermissionProvider
	Camera      Camera
	Transformer Transformer
	Logger      *zerolog.Logger
}

// Controller owns the capture lifecycle state
type Controller struct {
	opts        Options
	permission  PermissionProvider
	camera      Camera
	transformer Transformer
	tracker     *geometry.Tracker
	log         zerolog.Logger

	mu         sync.Mutex
	state      State
	perm       PermissionState
	requesting bool
	pending    *types.ProcessedImage
}

// NewController validates the options and creates a controller in AwaitingPermission
func NewController(deps Dependencies, opts Options) (*Controller, error) {
	if deps.Permission == nil || deps.Camera == nil || deps.Transformer == nil {
		return nil, errors.New("capture: permission provider, camera and transformer are required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "capture").Logger()
	}

	return &Controller{
		opts:        opts,
		permission:  deps.Permission,
		camera:      deps.Camera,
		transformer: deps.Transformer,
		tracker:     geometry.NewTracker(opts.RectType, opts.CustomRect),
		log:         log,
		state:       AwaitingPermission,
	}, nil
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PermissionState returns the outcome of the last permission request
func (c *Controller) PermissionState() PermissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perm
}

// Pending returns the processed image awaiting confirmation
func (c *Controller) Pending() (types.ProcessedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return types.ProcessedImage{}, false
	}
	return *c.pending, true
}

// Options returns the controller options
func (c *Controller) Options() Options {
	return c.opts
}

// UpdateLayout feeds a layout event of the overlay view. It reports whether
// the guide rectangle changed.
func (c *Controller) UpdateLayout(overlay geometry.OverlayLayout) (geometry.GuideRect, bool) {
	rect, changed := c.tracker.Update(overlay)
	if changed {
		c.log.Debug().
			Float64("x", rect.X).Float64("y", rect.Y).
			Float64("width", rect.Width).Float64("height", rect.Height).
			Msg("guide rect updated")
	}
	return rect, changed
}

// GuideRect returns the current guide rectangle, if one is shown
func (c *Controller) GuideRect() (geometry.GuideRect, bool) {
	return c.tracker.Current()
}

// Initialize requests camera permission. It is valid from AwaitingPermission
// and, to retry, from PermissionDenied.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.requesting || (c.state != AwaitingPermission && c.state != PermissionDenied) {
		s := c.state
		c.mu.Unlock()
		return invalidState("initialize", s)
	}
	c.requesting = true
	c.mu.Unlock()

	result, err := c.permission.RequestCameraPermission(ctx)

	var perm PermissionState
	var failure *Error
	switch {
	case err != nil:
		msg := err.Error()
		if msg == "" {
			msg = PermissionFallbackMessage
		}
		perm = PermissionState{Error: msg}
		failure = newError(ErrPermission, msg, err)
	case result.Granted || result.Status == types.PermissionGranted:
		perm = PermissionState{Granted: true}
	default:
		perm = PermissionState{Error: PermissionRequiredMessage}
		failure = newError(ErrPermission, PermissionRequiredMessage, nil)
	}

	next := LivePreview
	if failure != nil {
		next = PermissionDenied
		c.log.Info().Str("status", string(result.Status)).Str("reason", perm.Error).Msg("camera permission not granted")
	}

	c.mu.Lock()
	c.requesting = false
	c.perm = perm
	from := c.setState(next)
	c.mu.Unlock()
	c.notify(from, next)

	if failure != nil {
		return failure
	}
	return nil
}

// Capture runs one capture cycle. It is valid only in LivePreview; while a
// cycle is outstanding further calls fail with ErrBusy. Failures are both
// returned and reported through OnCaptureError.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	if c.state != LivePreview {
		s := c.state
		c.mu.Unlock()
		if s == Busy {
			return newError(ErrBusy, "capture rejected", nil)
		}
		return invalidState("capture", s)
	}
	from := c.setState(Busy)
	c.mu.Unlock()
	c.notify(from, Busy)

	photo, err := c.camera.TakePhoto(ctx, c.opts.settings())
	if err != nil {
		return c.fail(newError(ErrCapture, "failed to take photo", err))
	}

	req := types.TransformRequest{
		SourceURI: photo.URI,
		Format:    OutputFormat,
	}

	// the guide rect is read after the photo arrives, layout may have changed meanwhile
	crop := false
	if c.opts.ShouldCrop() {
		if guide, ok := c.tracker.Current(); ok {
			region, err := geometry.ComputeCropRegion(guide, geometry.PixelSize{Width: photo.PixelWidth, Height: photo.PixelHeight})
			if err != nil {
				return c.fail(newError(ErrGeometry, "failed to map guide rect to photo", err))
			}
			req.Crop = &region
			crop = true
		} else {
			c.log.Warn().Msg("crop enabled but no layout received, transforming without crop")
		}
	}
	req.Quality = c.opts.quality(crop)

	img, err := c.transformer.Transform(ctx, req)
	if err != nil {
		return c.fail(newError(ErrTransform, "failed to process photo", err))
	}

	c.log.Debug().Str("uri", img.URI).Bool("cropped", crop).Float64("quality", req.Quality).Msg("photo processed")

	if c.opts.EnablePreviewConfirmation {
		c.mu.Lock()
		c.pending = &img
		from := c.setState(PendingConfirmation)
		c.mu.Unlock()
		c.notify(from, PendingConfirmation)
		return nil
	}

	c.finish(LivePreview)
	c.opts.OnCaptureSuccess(img)
	return nil
}

// AcceptPending delivers the image awaiting confirmation
func (c *Controller) AcceptPending() error {
	c.mu.Lock()
	if c.state != PendingConfirmation || c.pending == nil {
		s := c.state
		c.mu.Unlock()
		return invalidState("accept", s)
	}
	img := *c.pending
	c.pending = nil
	from := c.setState(LivePreview)
	c.mu.Unlock()
	c.notify(from, LivePreview)

	c.opts.OnCaptureSuccess(img)
	return nil
}

// RetakePending drops the image awaiting confirmation without delivering anything
func (c *Controller) RetakePending() error {
	c.mu.Lock()
	if c.state != PendingConfirmation || c.pending == nil {
		s := c.state
		c.mu.Unlock()
		return invalidState("retake", s)
	}
	img := *c.pending
	c.pending = nil
	from := c.setState(LivePreview)
	c.mu.Unlock()
	c.notify(from, LivePreview)

	if d, ok := c.transformer.(Discarder); ok {
		if err := d.Discard(img); err != nil {
			c.log.Warn().Err(err).Str("uri", img.URI).Msg("failed to discard rejected image")
		}
	}
	return nil
}

// Close ends the session and invokes OnClosePress
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == Busy || c.state == Done {
		s := c.state
		c.mu.Unlock()
		return invalidState("close", s)
	}
	c.pending = nil
	from := c.setState(Done)
	c.mu.Unlock()
	c.notify(from, Done)

	if c.opts.OnClosePress != nil {
		c.opts.OnClosePress()
	}
	return nil
}

func (c *Controller) fail(err *Error) error {
	c.log.Warn().Err(err).Msg("capture cycle failed")
	c.finish(LivePreview)
	c.opts.OnCaptureError(err)
	return err
}

func (c *Controller) finish(next State) {
	c.mu.Lock()
	from := c.setState(next)
	c.mu.Unlock()
	c.notify(from, next)
}

// setState must be called with mu held
func (c *Controller) setState(next State) State {
	from := c.state
	c.state = next
	return from
}

func (c *Controller) notify(from, to State) {
	if from == to {
		return
	}
	c.log.Debug().Stringer("from", from).Stringer("to", to).Msg("state transition")
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(from, to)
	}
}
