package session

import (
	"context"
	"errors"
	"time"

	"ar-session-core/internal/pkg/logger"
	"ar-session-core/pkg/capability"
	"ar-session-core/pkg/events"
	"ar-session-core/pkg/geo"
	"ar-session-core/pkg/jobqueue"

	"github.com/google/uuid"
)

const logModule = "Session"

// Surface is the external rendering surface. The session starts and stops it but
// never destroys it.
type Surface interface {
	jobqueue.Sink
	Start(ctx context.Context) error
	Stop()
	UpdateAnchorOffset(offset geo.Offset)
}

// FixListener receives fixes from a started location sensor.
type FixListener interface {
	OnGeoFix(ctx context.Context, fix geo.Fix)
}

// LocationSensor is the external GPS provider. The listener is handed over at
// Start and must not be called after Stop returns.
type LocationSensor interface {
	Start(listener FixListener) error
	Stop()
}

// Deps are the collaborators of a machine. Sensor is required only in GPS mode;
// ID, Logger, Publisher and Now fall back to defaults.
type Deps struct {
	ID        string
	Checker   capability.Checker
	Requester capability.Requester
	Sensor    LocationSensor
	Logger    logger.ILogger
	Publisher events.Publisher
	Now       func() time.Time
}

var (
	ErrSensorRequired      = errors.New("gps session requires a location sensor")
	ErrCapabilityHostUnset = errors.New("capability checker and requester are required")
)

// Machine is the session state machine. See the package doc for the lifecycle.
type Machine struct {
	id     string
	cfg    Config
	state  State
	gate   *capability.Gate
	queue  *jobqueue.Queue
	anchor *geo.Anchor

	surface      Surface
	sensor       LocationSensor
	sensorActive bool

	lastOffset geo.Offset
	hasOffset  bool

	logger    logger.ILogger
	publisher events.Publisher
	now       func() time.Time
}

// New builds a machine in the created state.
func New(cfg Config, deps Deps) (*Machine, error) {
	if deps.Checker == nil || deps.Requester == nil {
		return nil, ErrCapabilityHostUnset
	}
	if cfg.UsesLocation && deps.Sensor == nil {
		return nil, ErrSensorRequired
	}
	if deps.ID == "" {
		deps.ID = uuid.NewString()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Machine{
		id:        deps.ID,
		cfg:       cfg,
		state:     StateCreated,
		gate:      capability.NewGate(capability.Required(cfg.UsesLocation), deps.Checker, deps.Requester, deps.Logger),
		queue:     jobqueue.New(),
		anchor:    geo.NewAnchor(),
		sensor:    deps.Sensor,
		logger:    deps.Logger,
		publisher: deps.Publisher,
		now:       deps.Now,
	}, nil
}

// NewSimple builds a camera-only session.
func NewSimple(deps Deps) (*Machine, error) {
	return New(Config{UsesLocation: false}, deps)
}

// NewGPS builds a session that anchors content to GPS fixes.
func NewGPS(deps Deps) (*Machine, error) {
	return New(Config{UsesLocation: true}, deps)
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) Config() Config { return m.cfg }

func (m *Machine) State() State { return m.state }

// Snapshot returns a read model of the machine.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           m.id,
		Mode:         m.cfg.Mode(),
		State:        m.state,
		SurfaceBound: m.surface != nil,
		SensorActive: m.sensorActive,
		PendingJobs:  m.queue.Len(),
	}
	if token, ok := m.gate.Pending(); ok {
		snap.PendingToken = string(token)
	}
	if ref, ok := m.anchor.Reference(); ok {
		snap.Reference = &ref
	}
	if m.hasOffset {
		off := m.lastOffset
		snap.LastOffset = &off
	}
	return snap
}

// OnSurfaceCreate binds the rendering surface, flushes buffered jobs into it and
// evaluates the start conditions.
func (m *Machine) OnSurfaceCreate(ctx context.Context, surface Surface) {
	if m.surface != nil {
		m.logger.Warn(logModule, "Surface already bound, ignoring", map[string]interface{}{"session_id": m.id})
		return
	}
	m.surface = surface

	if n := m.queue.DrainInto(surface); n > 0 {
		m.logger.Info(logModule, "Flushed deferred jobs", map[string]interface{}{"session_id": m.id, "count": n})
		m.emit(ctx, events.TypeJobsFlushed, map[string]interface{}{"count": n})
	}

	m.show(ctx)
}

// OnResume is the host's "about to be shown" hook.
func (m *Machine) OnResume(ctx context.Context) {
	m.logger.Debug(logModule, "Resume", map[string]interface{}{"session_id": m.id, "state": m.state})
	m.show(ctx)
}

// OnPause is the host's "being hidden" hook. The reference fix survives.
func (m *Machine) OnPause(ctx context.Context) {
	m.logger.Debug(logModule, "Pause", map[string]interface{}{"session_id": m.id, "state": m.state})

	switch m.state {
	case StateRunning:
		m.stopSensor()
		m.surface.Stop()
		m.setState(ctx, StatePaused)
	case StateReady, StatePaused:
		// no GPS while hidden, including after a resume whose surface failed to start
		m.stopSensor()
	}
}

// OnDestroy tears the session down: sensor and surface are stopped, the surface is
// unbound so new jobs buffer again, and the reference fix is dropped.
func (m *Machine) OnDestroy(ctx context.Context) {
	m.stopSensor()
	if m.state == StateRunning {
		m.surface.Stop()
	}
	m.surface = nil
	m.queue.Reopen()
	m.gate.Cancel()
	m.anchor.Reset()
	m.hasOffset = false
	m.lastOffset = geo.Offset{}

	if m.state != StateCreated {
		m.setState(ctx, StateCreated)
	}
}

// SubmitJob forwards job to the surface, or buffers it until the surface exists.
func (m *Machine) SubmitJob(job jobqueue.Job) {
	if m.surface != nil {
		m.surface.SubmitJob(job)
		return
	}
	if err := m.queue.Push(job); err != nil {
		m.logger.Error(logModule, "Failed to buffer job", map[string]interface{}{"session_id": m.id, "job_id": job.JobID(), "error": err.Error()})
		return
	}
	m.logger.Debug(logModule, "Job deferred until surface exists", map[string]interface{}{"session_id": m.id, "job_id": job.JobID(), "queued": m.queue.Len()})
}

// OnPermissionResult consumes the host's answer to a grant request. Results for
// anything but the outstanding token are dropped.
func (m *Machine) OnPermissionResult(ctx context.Context, token capability.Token, granted []bool) {
	if m.state != StateAwaitingPermissions {
		m.stale(ctx, "permission_result", "permission result while not awaiting permissions", map[string]interface{}{"token": token})
		return
	}

	err := m.gate.Resolve(token, granted)
	var denied *capability.DeniedError
	switch {
	case errors.Is(err, capability.ErrStaleResult):
		m.stale(ctx, "permission_result", "permission result for unknown token", map[string]interface{}{"token": token})
		return
	case errors.As(err, &denied):
		m.logger.Warn(logModule, "Capabilities denied, session did not start", map[string]interface{}{
			"session_id": m.id,
			"missing":    denied.Missing.Strings(),
		})
		m.emit(ctx, events.TypeCapabilityDenied, map[string]interface{}{"missing": denied.Missing.Strings()})
		return
	case err != nil:
		m.logger.Error(logModule, "Unexpected capability result", map[string]interface{}{"session_id": m.id, "error": err.Error()})
		return
	}

	m.logger.Info(logModule, "Capabilities granted", map[string]interface{}{"session_id": m.id})
	m.setState(ctx, StateReady)
	m.tryStart(ctx)
}

// OnGeoFix implements FixListener. The fix that establishes the reference may
// complete a pending ready -> running transition; later fixes move the anchor.
func (m *Machine) OnGeoFix(ctx context.Context, fix geo.Fix) {
	if !m.cfg.UsesLocation || !m.sensorActive {
		m.stale(ctx, "geo_fix", "fix while sensor inactive", map[string]interface{}{"lat": fix.Latitude, "lon": fix.Longitude})
		return
	}

	offset, ok := m.anchor.Observe(fix)
	if !ok {
		m.logger.Info(logModule, "Reference fix established", map[string]interface{}{
			"session_id": m.id,
			"lat":        fix.Latitude,
			"lon":        fix.Longitude,
			"alt":        fix.Altitude,
		})
		m.emit(ctx, events.TypeReferenceEstablished, map[string]interface{}{
			"lat": fix.Latitude,
			"lon": fix.Longitude,
			"alt": fix.Altitude,
		})
		if m.state == StateReady {
			m.tryStart(ctx)
		}
		return
	}

	m.lastOffset = offset
	m.hasOffset = true
	if m.state == StateRunning {
		m.surface.UpdateAnchorOffset(offset)
	}
	m.logger.Debug(logModule, "Anchor offset", map[string]interface{}{"session_id": m.id, "x": offset.X, "y": offset.Y, "z": offset.Z})
	m.emit(ctx, events.TypeOffsetUpdated, map[string]interface{}{"x": offset.X, "y": offset.Y, "z": offset.Z})
}

// show handles both "about to be shown" hooks.
func (m *Machine) show(ctx context.Context) {
	switch m.state {
	case StateCreated:
		m.checkCapabilities(ctx)
	case StateAwaitingPermissions:
		if token, pending := m.gate.Pending(); pending {
			m.logger.Debug(logModule, "Still waiting on capability result", map[string]interface{}{"session_id": m.id, "token": token})
			return
		}
		m.checkCapabilities(ctx)
	case StateReady, StatePaused:
		m.tryStart(ctx)
	}
}

func (m *Machine) checkCapabilities(ctx context.Context) {
	if m.gate.AllGranted(ctx) {
		m.setState(ctx, StateReady)
		m.tryStart(ctx)
		return
	}

	if m.state != StateAwaitingPermissions {
		m.setState(ctx, StateAwaitingPermissions)
	}
	required := m.gate.Required().Strings()
	token := m.gate.RequestGrant(ctx)
	m.emit(ctx, events.TypeCapabilityRequested, map[string]interface{}{"token": string(token), "capabilities": required})
}

// tryStart moves ready or paused to running when the surface exists and, in GPS
// mode, a reference fix is known. In GPS mode it starts the sensor first.
func (m *Machine) tryStart(ctx context.Context) {
	if m.surface == nil {
		m.logger.Debug(logModule, "Waiting for surface", map[string]interface{}{"session_id": m.id})
		return
	}

	if m.cfg.UsesLocation {
		if !m.startSensor() {
			return
		}
		// a synchronous first fix may already have started the session
		if m.state == StateRunning {
			return
		}
		if !m.anchor.HasReference() {
			m.logger.Info(logModule, "Waiting for first fix", map[string]interface{}{"session_id": m.id})
			return
		}
	}

	if err := m.surface.Start(ctx); err != nil {
		m.logger.Error(logModule, "Failed to start surface", map[string]interface{}{"session_id": m.id, "error": err.Error()})
		if m.state == StatePaused {
			m.stopSensor()
		}
		return
	}
	m.setState(ctx, StateRunning)
}

func (m *Machine) startSensor() bool {
	if m.sensorActive {
		return true
	}
	m.sensorActive = true
	if err := m.sensor.Start(m); err != nil {
		m.sensorActive = false
		m.logger.Error(logModule, "Failed to start location sensor", map[string]interface{}{"session_id": m.id, "error": err.Error()})
		return false
	}
	m.logger.Debug(logModule, "Location sensor started", map[string]interface{}{"session_id": m.id})
	return true
}

func (m *Machine) stopSensor() {
	if !m.sensorActive {
		return
	}
	m.sensor.Stop()
	m.sensorActive = false
	m.logger.Debug(logModule, "Location sensor stopped", map[string]interface{}{"session_id": m.id})
}

func (m *Machine) setState(ctx context.Context, next State) {
	cur := m.state
	if cur == next {
		return
	}
	if !allowedTransition(cur, next) {
		m.logger.Error(logModule, "Refusing invalid transition", map[string]interface{}{"session_id": m.id, "from": cur, "to": next})
		return
	}
	m.state = next
	m.logger.Info(logModule, "State changed", map[string]interface{}{"session_id": m.id, "from": cur, "to": next})
	m.emit(ctx, events.TypeStateChanged, map[string]interface{}{"from": string(cur), "to": string(next)})
}

func (m *Machine) stale(ctx context.Context, kind, reason string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["session_id"] = m.id
	details["state"] = m.state
	details["reason"] = reason
	m.logger.Debug(logModule, "Dropped stale callback", details)
	m.emit(ctx, events.TypeStaleCallback, map[string]interface{}{"kind": kind, "reason": reason})
}

func (m *Machine) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	data["session_id"] = m.id
	data["mode"] = m.cfg.Mode()
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: m.now().UTC(),
	}
	if err := m.publisher.Publish(ctx, evt); err != nil {
		m.logger.Error(logModule, "Failed to publish session event", map[string]interface{}{"session_id": m.id, "type": eventType, "error": err.Error()})
	}
}
