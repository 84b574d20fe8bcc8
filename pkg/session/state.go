package session

import "ar-session-core/pkg/geo"

// State is the coarse lifecycle state of a session.
type State string

const (
	StateCreated             State = "created"
	StateAwaitingPermissions State = "awaiting_permissions"
	StateReady               State = "ready"
	StateRunning             State = "running"
	StatePaused              State = "paused"
)

func allowedTransition(cur, next State) bool {
	if next == StateCreated {
		return true
	}
	switch cur {
	case StateCreated:
		return next == StateAwaitingPermissions || next == StateReady
	case StateAwaitingPermissions:
		return next == StateReady
	case StateReady:
		return next == StateRunning
	case StateRunning:
		return next == StatePaused
	case StatePaused:
		return next == StateRunning
	default:
		return false
	}
}

// Config is fixed at construction.
type Config struct {
	UsesLocation bool
}

// Mode names the two session variants.
func (c Config) Mode() string {
	if c.UsesLocation {
		return "gps"
	}
	return "simple"
}

// Snapshot is a read model of a machine. Pointer fields are nil when absent.
type Snapshot struct {
	ID           string      `json:"id"`
	Mode         string      `json:"mode"`
	State        State       `json:"state"`
	SurfaceBound bool        `json:"surface_bound"`
	SensorActive bool        `json:"sensor_active"`
	PendingJobs  int         `json:"pending_jobs"`
	PendingToken string      `json:"pending_token,omitempty"`
	Reference    *geo.Fix    `json:"reference,omitempty"`
	LastOffset   *geo.Offset `json:"last_offset,omitempty"`
}
