package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ar-session-core/internal/config"
	"ar-session-core/internal/dto"
	"ar-session-core/internal/host"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/repository/memory"
	"ar-session-core/pkg/capability"
	"ar-session-core/pkg/events"
	"ar-session-core/pkg/geo"
	"ar-session-core/pkg/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrSessionNotFound = errors.New("session not found")

type ISessionService interface {
	Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	SurfaceCreate(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Resume(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Pause(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Destroy(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Dispose(ctx context.Context, sessionID string) error
	SubmitJob(ctx context.Context, sessionID string, req dto.SubmitJobRequest) (*dto.SubmitJobResponse, error)
	AnswerPermissions(ctx context.Context, sessionID string, req dto.PermissionAnswerRequest) (*dto.SessionResponse, error)
	PushFix(ctx context.Context, sessionID string, fix geo.Fix) (*dto.FixResponse, error)
	Count() int
	Close()
}

type sessionService struct {
	cfg       config.SessionConfig
	granted   capability.Set
	repo      *memory.SessionRepository
	publisher events.Publisher
	logger    logger.ILogger
	gpsTrace  logger.ILogger
	tracer    trace.Tracer
}

const sessionModule = "SessionService"

// NewSessionService wires the simulator. gpsTrace receives every delivered fix.
func NewSessionService(
	cfg config.SessionConfig,
	repo *memory.SessionRepository,
	publisher events.Publisher,
	log logger.ILogger,
	gpsTrace logger.ILogger,
) (ISessionService, error) {
	granted := make(capability.Set, 0, len(cfg.GrantedCapabilities))
	for _, name := range cfg.GrantedCapabilities {
		c, err := capability.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("invalid granted capability: %w", err)
		}
		granted = append(granted, c)
	}

	s := &sessionService{
		cfg:       cfg,
		granted:   granted,
		repo:      repo,
		publisher: publisher,
		logger:    log,
		gpsTrace:  gpsTrace,
		tracer:    otel.Tracer("ar-session-core/session"),
	}
	repo.OnEvicted(s.teardown)
	return s, nil
}

func (s *sessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Create")
	defer span.End()

	usesLocation := s.cfg.DefaultUsesLocation
	if req.UsesLocation != nil {
		usesLocation = *req.UsesLocation
	}

	id := uuid.NewString()
	perms := host.NewSimPermissions(s.granted)
	sensor := host.NewSimSensor(id, s.gpsTrace)
	machine, err := session.New(session.Config{UsesLocation: usesLocation}, session.Deps{
		ID:        id,
		Checker:   perms,
		Requester: perms,
		Sensor:    sensor,
		Logger:    s.logger,
		Publisher: s.publisher,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	hs := &host.Session{
		Machine:     machine,
		Looper:      host.NewLooper(s.cfg.LooperBuffer),
		Surface:     host.NewSimSurface(id, s.logger),
		Sensor:      sensor,
		Permissions: perms,
		CreatedAt:   time.Now().UTC(),
	}
	go hs.Looper.Run()
	s.repo.Save(hs)

	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.String("session.mode", machine.Config().Mode()),
	)
	s.logger.Info(sessionModule, "Session created", map[string]interface{}{
		"session_id": id,
		"mode":       machine.Config().Mode(),
	})

	return s.Get(ctx, id)
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	var res *dto.SessionResponse
	err := s.onLooper(ctx, "Get", sessionID, func(_ context.Context, hs *host.Session) error {
		res = snapshot(hs)
		return nil
	})
	return res, err
}

func (s *sessionService) SurfaceCreate(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.lifecycle(ctx, "SurfaceCreate", sessionID, func(ctx context.Context, hs *host.Session) {
		hs.Machine.OnSurfaceCreate(ctx, hs.Surface)
	})
}

func (s *sessionService) Resume(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.lifecycle(ctx, "Resume", sessionID, func(ctx context.Context, hs *host.Session) {
		hs.Machine.OnResume(ctx)
	})
}

func (s *sessionService) Pause(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.lifecycle(ctx, "Pause", sessionID, func(ctx context.Context, hs *host.Session) {
		hs.Machine.OnPause(ctx)
	})
}

func (s *sessionService) Destroy(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.lifecycle(ctx, "Destroy", sessionID, func(ctx context.Context, hs *host.Session) {
		hs.Machine.OnDestroy(ctx)
	})
}

// Dispose removes the session; the eviction hook tears it down.
func (s *sessionService) Dispose(ctx context.Context, sessionID string) error {
	_, span := s.tracer.Start(ctx, "SessionService.Dispose", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if _, ok := s.repo.Get(sessionID); !ok {
		span.SetStatus(codes.Error, ErrSessionNotFound.Error())
		return ErrSessionNotFound
	}
	s.repo.Delete(sessionID)
	return nil
}

func (s *sessionService) SubmitJob(ctx context.Context, sessionID string, req dto.SubmitJobRequest) (*dto.SubmitJobResponse, error) {
	job := &host.RenderJob{ID: req.ID, Kind: req.Kind, Payload: req.Payload}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	err := s.onLooper(ctx, "SubmitJob", sessionID, func(_ context.Context, hs *host.Session) error {
		hs.Machine.SubmitJob(job)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.SubmitJobResponse{JobID: job.ID}, nil
}

func (s *sessionService) AnswerPermissions(ctx context.Context, sessionID string, req dto.PermissionAnswerRequest) (*dto.SessionResponse, error) {
	var res *dto.SessionResponse
	err := s.onLooper(ctx, "AnswerPermissions", sessionID, func(ctx context.Context, hs *host.Session) error {
		token, err := hs.Permissions.Answer(req.Granted)
		if err != nil {
			return err
		}
		hs.Machine.OnPermissionResult(ctx, token, req.Granted)
		res = snapshot(hs)
		return nil
	})
	return res, err
}

func (s *sessionService) PushFix(ctx context.Context, sessionID string, fix geo.Fix) (*dto.FixResponse, error) {
	var res dto.FixResponse
	err := s.onLooper(ctx, "PushFix", sessionID, func(ctx context.Context, hs *host.Session) error {
		res.Delivered = hs.Sensor.Deliver(ctx, fix)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *sessionService) Count() int {
	return s.repo.Count()
}

// Close tears down every live session.
func (s *sessionService) Close() {
	s.repo.Flush()
}

func (s *sessionService) lifecycle(ctx context.Context, op, sessionID string, hook func(context.Context, *host.Session)) (*dto.SessionResponse, error) {
	var res *dto.SessionResponse
	err := s.onLooper(ctx, op, sessionID, func(ctx context.Context, hs *host.Session) error {
		hook(ctx, hs)
		res = snapshot(hs)
		return nil
	})
	return res, err
}

// onLooper runs fn on the session's looper and waits for it. The task gets a
// context that outlives the call timeout so a late task still publishes its
// events.
func (s *sessionService) onLooper(ctx context.Context, op, sessionID string, fn func(context.Context, *host.Session) error) error {
	ctx, span := s.tracer.Start(ctx, "SessionService."+op, trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	hs, ok := s.repo.Get(sessionID)
	if !ok {
		span.SetStatus(codes.Error, ErrSessionNotFound.Error())
		return ErrSessionNotFound
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	taskCtx := context.WithoutCancel(ctx)
	var (
		taskErr error
		state   session.State
	)
	// the machine is only read on its looper
	task := func() {
		taskErr = fn(taskCtx, hs)
		state = hs.Machine.State()
	}
	if err := hs.Looper.Call(callCtx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(sessionModule, "Session call failed", map[string]interface{}{
			"session_id": sessionID,
			"op":         op,
			"error":      err.Error(),
		})
		return err
	}
	if taskErr != nil {
		span.RecordError(taskErr)
		span.SetStatus(codes.Error, taskErr.Error())
		return taskErr
	}

	span.SetAttributes(attribute.String("session.state", string(state)))
	return nil
}

func (s *sessionService) teardown(id string, hs *host.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
	defer cancel()

	if err := hs.Looper.Call(ctx, func() { hs.Machine.OnDestroy(context.Background()) }); err != nil {
		s.logger.Warn(sessionModule, "Teardown did not run", map[string]interface{}{"session_id": id, "error": err.Error()})
	}
	hs.Looper.Stop()
	s.logger.Info(sessionModule, "Session disposed", map[string]interface{}{"session_id": id})
}

// snapshot must run on the session's looper.
func snapshot(hs *host.Session) *dto.SessionResponse {
	return &dto.SessionResponse{
		Session:        hs.Machine.Snapshot(),
		Surface:        hs.Surface.Status(),
		PendingRequest: hs.Permissions.Pending(),
		CreatedAt:      hs.CreatedAt,
	}
}
