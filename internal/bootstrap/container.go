package bootstrap

import (
	"context"
	"log"

	"ar-session-core/internal/config"
	"ar-session-core/internal/controller"
	"ar-session-core/internal/eventbus"
	"ar-session-core/internal/handler"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/repository/memory"
	"ar-session-core/internal/service"
	"ar-session-core/internal/websocket"
	"ar-session-core/pkg/events"

	pktNats "ar-session-core/pkg/nats"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	WatchHandler      *handler.WatchHandler

	// Services
	SessionService service.ISessionService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	FixFeedService  service.IFixFeedService // nil without NATS

	WebSocketHub *websocket.Hub
	Logger       logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	gpsTrace := logger.NewIsolatedLogger(cfg.App.GPSTraceFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := eventbus.NewGoChannel(!cfg.IsProduction())
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	rdb := newRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/watch.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 4. Services
	sessionRepo := memory.NewSessionRepository(cfg.Session.IdleTTL, cfg.Session.CleanupInterval)
	sessionService, err := service.NewSessionService(
		cfg.Session,
		sessionRepo,
		eventbus.NewPublisher(pubSub),
		sysLogger,
		gpsTrace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize session service: %v", err)
	}
	c.SessionService = sessionService

	c.ConsumerService = service.NewConsumerService(pubSub, c.WebSocketHub, forwarder(natsPub), sysLogger)
	if natsSub != nil {
		c.FixFeedService = service.NewFixFeedService(natsSub, cfg.Session.FixSubject, sessionService, sysLogger)
	}

	// 5. Controllers
	c.SessionController = controller.NewSessionController(sessionService)
	c.WatchHandler = handler.NewWatchHandler(sessionService, c.WebSocketHub, wsLogger)

	return c
}

// Start runs the hub and the background consumers until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.FixFeedService != nil {
		if err := c.FixFeedService.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down sessions first so their final events still reach the bus.
func (c *Container) Close() {
	c.SessionService.Close()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func forwarder(pub *pktNats.Publisher) events.Publisher {
	if pub == nil {
		return nil
	}
	return pub
}

func newRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	return rdb
}
