package host

import (
	"context"

	"ar-session-core/internal/pkg/logger"
	"ar-session-core/pkg/geo"
	"ar-session-core/pkg/jobqueue"
)

// RenderJob is the job type the simulator accepts over the API.
type RenderJob struct {
	ID      string                 `json:"id"`
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func (j *RenderJob) JobID() string { return j.ID }

// SurfaceStatus is what the simulator reports about its fake surface.
type SurfaceStatus struct {
	Running    bool        `json:"running"`
	Starts     int         `json:"starts"`
	Jobs       []string    `json:"jobs"`
	Offsets    int         `json:"offsets"`
	LastOffset *geo.Offset `json:"last_offset,omitempty"`
}

// SimSurface stands in for the camera/GL view. It only records what it is told.
type SimSurface struct {
	sessionID string
	logger    logger.ILogger

	running    bool
	starts     int
	jobs       []string
	offsets    int
	lastOffset geo.Offset
}

func NewSimSurface(sessionID string, log logger.ILogger) *SimSurface {
	return &SimSurface{sessionID: sessionID, logger: log}
}

func (s *SimSurface) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.running = true
	s.starts++
	s.logger.Info("SimSurface", "Surface started", map[string]interface{}{"session_id": s.sessionID, "starts": s.starts})
	return nil
}

func (s *SimSurface) Stop() {
	s.running = false
	s.logger.Info("SimSurface", "Surface stopped", map[string]interface{}{"session_id": s.sessionID})
}

func (s *SimSurface) SubmitJob(job jobqueue.Job) {
	s.jobs = append(s.jobs, job.JobID())
}

func (s *SimSurface) UpdateAnchorOffset(offset geo.Offset) {
	s.offsets++
	s.lastOffset = offset
}

func (s *SimSurface) Status() SurfaceStatus {
	st := SurfaceStatus{
		Running: s.running,
		Starts:  s.starts,
		Jobs:    append([]string(nil), s.jobs...),
		Offsets: s.offsets,
	}
	if s.offsets > 0 {
		off := s.lastOffset
		st.LastOffset = &off
	}
	return st
}
