package camera

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/rectcam/pkg/types"
)

// StaticPermission answers every permission request with a fixed result
type StaticPermission struct {
	Result types.PermissionResult
	Err    error
}

// NewStaticPermission builds a provider from a config value:
// granted, denied or undetermined
func NewStaticPermission(status string) (*StaticPermission, error) {
	switch strings.ToLower(status) {
	case "", "granted":
		return &StaticPermission{Result: types.PermissionResult{Granted: true, Status: types.PermissionGranted}}, nil
	case "denied":
		return &StaticPermission{Result: types.PermissionResult{Status: types.PermissionDenied}}, nil
	case "undetermined":
		return &StaticPermission{Result: types.PermissionResult{Status: types.PermissionUndetermined}}, nil
	}
	return nil, fmt.Errorf("unknown permission status %q", status)
}

// RequestCameraPermission implements capture.PermissionProvider
func (p *StaticPermission) RequestCameraPermission(ctx context.Context) (types.PermissionResult, error) {
	if err := ctx.Err(); err != nil {
		return types.PermissionResult{}, err
	}
	return p.Result, p.Err
}
