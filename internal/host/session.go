package host

import (
	"time"

	"ar-session-core/pkg/session"
)

// Session bundles a state machine with the simulated collaborators it drives and
// the looper every call must go through.
type Session struct {
	Machine     *session.Machine
	Looper      *Looper
	Surface     *SimSurface
	Sensor      *SimSensor
	Permissions *SimPermissions
	CreatedAt   time.Time
}

func (s *Session) ID() string {
	return s.Machine.ID()
}
