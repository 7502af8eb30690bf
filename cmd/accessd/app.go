package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-access/internal/admission"
	"github.com/mind-engage/mindengage-access/internal/config"
	"github.com/mind-engage/mindengage-access/internal/db"
	"github.com/mind-engage/mindengage-access/internal/gradebook"
	"github.com/mind-engage/mindengage-access/internal/quiz"
	syncx "github.com/mind-engage/mindengage-access/internal/sync"
)

// app holds the wired collaborators shared by the commands.
type app struct {
	db      *sql.DB
	store   quiz.Store
	service *admission.Service
	events  *syncx.EventRepo
	redis   *redis.Client
	pub     syncx.Publisher
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a := &app{db: dbh, logger: logger, pub: syncx.NoopPublisher{}}

	var store quiz.Store = quiz.NewSQLStore(dbh, cfg.DBDriver)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(openCtx).Err(); err != nil {
			logger.Warn("redis unreachable, quiz cache degraded", "error", err)
		}
		store = quiz.NewCachedStore(store, a.redis, cfg.QuizCacheTTL, logger)
	}
	store = quiz.NewGuardedStore(store, quiz.BreakerConfig{
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
	}, logger)
	a.store = store

	if cfg.AMQPURL != "" {
		pub, err := syncx.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Warn("event bus unavailable, view events stay local", "error", err)
		} else {
			a.pub = pub
		}
	}
	a.events = syncx.NewEventRepo(dbh, cfg.SiteID)
	notify := syncx.Fanout{a.events, syncx.NewBusNotifier(a.pub, cfg.SiteID)}

	grades := gradebook.Layered{Local: store}
	if cfg.AGSLineItemsURL != "" {
		client := gradebook.NewClient(gradebook.Config{
			TokenURL:     cfg.AGSTokenURL,
			ClientID:     cfg.AGSClientID,
			ClientSecret: cfg.AGSClientSecret,
			Timeout:      cfg.AGSTimeout,
		})
		grades.Remote = gradebook.NewSource(client, cfg.AGSLineItemsURL, cfg.AGSAuthoritative)
	}

	a.service = admission.NewService(
		admission.StoreRepository{Store: store},
		store,
		grades,
		admission.WithLogger(logger),
		admission.WithAudit(notify),
		admission.WithCompletion(notify),
		admission.WithLocation(loc),
	)
	return a, nil
}

func (a *app) Close() {
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.logger.Warn("close publisher", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
