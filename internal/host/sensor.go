package host

import (
	"context"

	"ar-session-core/internal/pkg/logger"
	"ar-session-core/pkg/geo"
	"ar-session-core/pkg/session"
)

// SimSensor is a location sensor fed by the API or the NATS fix feed.
type SimSensor struct {
	sessionID string
	trace     logger.ILogger
	listener  session.FixListener
}

// NewSimSensor logs every delivered fix to trace, usually an isolated file logger.
func NewSimSensor(sessionID string, trace logger.ILogger) *SimSensor {
	return &SimSensor{sessionID: sessionID, trace: trace}
}

func (s *SimSensor) Start(listener session.FixListener) error {
	s.listener = listener
	return nil
}

func (s *SimSensor) Stop() {
	s.listener = nil
}

func (s *SimSensor) Active() bool {
	return s.listener != nil
}

// Deliver hands fix to the listener. It reports false when the sensor is stopped,
// in which case a real provider would not have produced the fix either.
func (s *SimSensor) Deliver(ctx context.Context, fix geo.Fix) bool {
	if s.listener == nil {
		return false
	}
	s.trace.Debug("GPS", "fix", map[string]interface{}{
		"session_id": s.sessionID,
		"lat":        fix.Latitude,
		"lon":        fix.Longitude,
		"alt":        fix.Altitude,
	})
	s.listener.OnGeoFix(ctx, fix)
	return true
}
