package service

import (
	"context"

	"ar-session-core/internal/pkg/logger"
	"ar-session-core/pkg/geo"
	pktNats "ar-session-core/pkg/nats"
)

// FixSource subscribes to an external stream of fixes.
type FixSource interface {
	SubscribeFixes(subject string, handler pktNats.FixHandler) error
}

type IFixFeedService interface {
	Start(ctx context.Context) error
}

type fixFeedService struct {
	source   FixSource
	subject  string
	sessions ISessionService
	logger   logger.ILogger
}

// NewFixFeedService routes fixes published on subject (e.g. "geofix.<id>") to
// the session named by the last subject token.
func NewFixFeedService(source FixSource, subject string, sessions ISessionService, log logger.ILogger) IFixFeedService {
	return &fixFeedService{
		source:   source,
		subject:  subject,
		sessions: sessions,
		logger:   log,
	}
}

func (f *fixFeedService) Start(ctx context.Context) error {
	return f.source.SubscribeFixes(f.subject, func(sessionID string, fix geo.Fix) {
		res, err := f.sessions.PushFix(ctx, sessionID, fix)
		if err != nil {
			f.logger.Warn("FixFeed", "Fix not delivered", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
			return
		}
		if !res.Delivered {
			f.logger.Debug("FixFeed", "Sensor inactive, fix dropped", map[string]interface{}{"session_id": sessionID})
		}
	})
}
