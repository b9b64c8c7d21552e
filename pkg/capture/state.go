package capture

// State is the capture lifecycle state
type State int

const (
	AwaitingPermission State = iota
	PermissionDenied
	LivePreview
	// Busy means a capture cycle is outstanding
	Busy
	PendingConfirmation
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingPermission:
		return "awaiting_permission"
	case PermissionDenied:
		return "permission_denied"
	case LivePreview:
		return "live_preview"
	case Busy:
		return "busy"
	case PendingConfirmation:
		return "pending_confirmation"
	case Done:
		return "done"
	}
	return "unknown"
}

// PermissionState is the outcome of the last permission request
type PermissionState struct {
	Granted bool
	Error   string
}
