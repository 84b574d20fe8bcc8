package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ar-session-core/internal/config"
	"ar-session-core/internal/dto"
	"ar-session-core/internal/host"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/repository/memory"
	"ar-session-core/pkg/events"
	"ar-session-core/pkg/geo"
	"ar-session-core/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newService(t *testing.T, granted ...string) ISessionService {
	t.Helper()
	repo := memory.NewSessionRepository(time.Minute, time.Minute)
	svc, err := NewSessionService(config.SessionConfig{
		GrantedCapabilities: granted,
		LooperBuffer:        8,
		CallTimeout:         time.Second,
	}, repo, events.NopPublisher{}, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func gps() *bool {
	v := true
	return &v
}

func TestNewSessionServiceRejectsUnknownCapability(t *testing.T) {
	repo := memory.NewSessionRepository(time.Minute, time.Minute)
	_, err := NewSessionService(config.SessionConfig{GrantedCapabilities: []string{"microphone"}},
		repo, events.NopPublisher{}, logger.NewNopLogger(), logger.NewNopLogger())
	assert.Error(t, err)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.PushFix(ctx, "missing", geo.Fix{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Dispose(ctx, "missing"), ErrSessionNotFound)
}

func TestSimpleSessionRunsWhenAlreadyGranted(t *testing.T) {
	svc := newService(t, "camera")

	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, session.StateCreated, created.Session.State)
	assert.Equal(t, "simple", created.Session.Mode)

	res, err := svc.SurfaceCreate(ctx, created.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateRunning, res.Session.State)
	assert.True(t, res.Surface.Running)
	assert.Equal(t, 1, res.Surface.Starts)
	assert.Nil(t, res.PendingRequest)
}

func TestPermissionRoundTrip(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.ID

	res, err := svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingPermissions, res.Session.State)
	require.NotNil(t, res.PendingRequest)
	assert.Equal(t, []string{"camera"}, res.PendingRequest.Capabilities)

	res, err = svc.AnswerPermissions(ctx, id, dto.PermissionAnswerRequest{Granted: []bool{true}})
	require.NoError(t, err)
	assert.Equal(t, session.StateRunning, res.Session.State)
	assert.Nil(t, res.PendingRequest)

	_, err = svc.AnswerPermissions(ctx, id, dto.PermissionAnswerRequest{Granted: []bool{true}})
	assert.ErrorIs(t, err, host.ErrNoPendingRequest)
}

func TestDeniedSessionAsksAgainOnResume(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.ID

	first, err := svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.PendingRequest)

	res, err := svc.AnswerPermissions(ctx, id, dto.PermissionAnswerRequest{Granted: []bool{false}})
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingPermissions, res.Session.State)
	assert.Nil(t, res.PendingRequest)

	res, err = svc.Resume(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res.PendingRequest)
	assert.NotEqual(t, first.PendingRequest.Token, res.PendingRequest.Token)
}

func TestGPSSessionFollowsFixes(t *testing.T) {
	svc := newService(t, "camera", "fine_location")
	created, err := svc.Create(ctx, dto.CreateSessionRequest{UsesLocation: gps()})
	require.NoError(t, err)
	id := created.Session.ID
	assert.Equal(t, "gps", created.Session.Mode)

	fix, err := svc.PushFix(ctx, id, geo.Fix{Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	assert.False(t, fix.Delivered, "sensor is not running before the surface exists")

	res, err := svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateReady, res.Session.State)
	assert.True(t, res.Session.SensorActive)

	ref := geo.Fix{Latitude: 37.4219999, Longitude: -122.0840575, Altitude: 10}
	fix, err = svc.PushFix(ctx, id, ref)
	require.NoError(t, err)
	assert.True(t, fix.Delivered)

	north := geo.Fix{Latitude: ref.Latitude + 100.0/111195.0, Longitude: ref.Longitude, Altitude: 15}
	_, err = svc.PushFix(ctx, id, north)
	require.NoError(t, err)

	res, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateRunning, res.Session.State)
	require.NotNil(t, res.Session.Reference)
	assert.Equal(t, ref, *res.Session.Reference)
	require.NotNil(t, res.Surface.LastOffset)
	assert.InDelta(t, 100, res.Surface.LastOffset.Y, 0.5)
	assert.InDelta(t, 5, res.Surface.LastOffset.Z, 1e-4)
}

func TestJobsBufferedUntilSurface(t *testing.T) {
	svc := newService(t, "camera")
	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.ID

	job, err := svc.SubmitJob(ctx, id, dto.SubmitJobRequest{ID: "j1", Kind: "place"})
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
	generated, err := svc.SubmitJob(ctx, id, dto.SubmitJobRequest{Kind: "place"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.JobID)

	res, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Session.PendingJobs)

	res, err = svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"j1", generated.JobID}, res.Surface.Jobs)
	assert.Zero(t, res.Session.PendingJobs)
}

func TestPauseResumeDestroy(t *testing.T) {
	svc := newService(t, "camera")
	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	id := created.Session.ID

	_, err = svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)

	res, err := svc.Pause(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StatePaused, res.Session.State)
	assert.False(t, res.Surface.Running)

	res, err = svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateRunning, res.Session.State)
	assert.Equal(t, 2, res.Surface.Starts)

	res, err = svc.Destroy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StateCreated, res.Session.State)
	assert.False(t, res.Session.SurfaceBound)
}

func TestDisposeRemovesSession(t *testing.T) {
	svc := newService(t, "camera")
	created, err := svc.Create(ctx, dto.CreateSessionRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, svc.Count())

	require.NoError(t, svc.Dispose(ctx, created.Session.ID))
	assert.Zero(t, svc.Count())
	_, err = svc.Get(ctx, created.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentPauseResumeOnOneSession(t *testing.T) {
	svc := newService(t, "camera", "fine_location")
	created, err := svc.Create(ctx, dto.CreateSessionRequest{UsesLocation: gps()})
	require.NoError(t, err)
	id := created.Session.ID

	_, err = svc.SurfaceCreate(ctx, id)
	require.NoError(t, err)
	res, err := svc.PushFix(ctx, id, geo.Fix{Latitude: 34.0, Longitude: -118.0})
	require.NoError(t, err)
	require.True(t, res.Delivered)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, pauseErr := svc.Pause(ctx, id)
				assert.NoError(t, pauseErr)
				_, resumeErr := svc.Resume(ctx, id)
				assert.NoError(t, resumeErr)
			}
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, []session.State{session.StateRunning, session.StatePaused}, got.Session.State)
	assert.Equal(t, got.Session.State == session.StateRunning, got.Session.SensorActive)
}
