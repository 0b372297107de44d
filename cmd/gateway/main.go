package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wavechat/messaging-gateway/internal/config"
	"github.com/wavechat/messaging-gateway/internal/firehose"
	"github.com/wavechat/messaging-gateway/internal/handler"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/metrics"
	"github.com/wavechat/messaging-gateway/internal/presence"
	"github.com/wavechat/messaging-gateway/internal/registry"
	"github.com/wavechat/messaging-gateway/internal/service"
	"github.com/wavechat/messaging-gateway/internal/store"
	"github.com/wavechat/messaging-gateway/internal/token"
	"github.com/wavechat/messaging-gateway/pkg/log"
	"github.com/wavechat/messaging-gateway/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "messaging-gateway",
	})
	logger := log.L()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret is required (set JWT_SECRET)")
	}

	instanceID := uuid.New().String()
	logger.Info().Str("instance_id", instanceID).Msg("starting messaging gateway")

	// Message store
	var messageStore store.MessageStore
	switch cfg.Store.Driver {
	case "memory":
		messageStore, err = store.NewMemoryStore(cfg.Store.FilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open memory store")
		}
		logger.Warn().Msg("running with in-memory store, message edit/delete/react/read disabled")
	default:
		cfg.Store.Database.Driver = cfg.Store.Driver
		gs, gerr := store.NewGormStore(&cfg.Store.Database)
		if gerr != nil {
			logger.Fatal().Err(gerr).Str("driver", cfg.Store.Database.Driver).Msg("failed to open database store")
		}
		messageStore = gs
	}
	defer messageStore.Close()

	presenceReg := presence.NewRegistry(cfg.Presence.GracePeriod)
	defer presenceReg.Close()

	h := hub.NewHub(cfg.WebSocket)

	// Optional firehose producer
	var producer firehose.Producer = firehose.NewNoopProducer()
	if cfg.Firehose.Enabled {
		cp, ferr := firehose.NewConfluentProducer(cfg.Firehose.Brokers, cfg.Firehose.Topic, cfg.Firehose.Partitions)
		if ferr != nil {
			logger.Error().Err(ferr).Msg("failed to create kafka producer, messages will not be forwarded")
		} else {
			producer = cp
			defer cp.Close()
		}
	}

	// Optional redis instance registry and cross-instance presence mirror
	var instanceReg registry.InstanceRegistry = registry.NewNoopRegistry()
	var ps pubsub.PubSub
	if cfg.Redis.Enabled {
		rr, rerr := registry.NewRedisRegistry(cfg.Redis, instanceID, cfg.Redis.AdvertiseAddress)
		if rerr != nil {
			logger.Error().Err(rerr).Msg("failed to connect instance registry, continuing standalone")
		} else {
			instanceReg = rr
		}

		psCfg := pubsub.DefaultConfig()
		psCfg.Redis.Address = cfg.Redis.Address
		psCfg.Redis.Password = cfg.Redis.Password
		psCfg.Redis.DB = cfg.Redis.DB
		ps, err = pubsub.NewPubSub(psCfg)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect pubsub, presence will not be mirrored")
			ps = nil
		} else {
			defer ps.Close()
		}
	}

	collector := metrics.NewCollector()
	broadcaster := metrics.NewBroadcaster(h, presenceReg, messageStore, collector, cfg.Metrics.Interval)

	var publisher pubsub.Publisher
	if ps != nil {
		publisher = ps
	}
	svc := service.NewSessionService(h, messageStore, presenceReg, service.Options{
		Producer:     producer,
		Publisher:    publisher,
		Collector:    collector,
		InstanceID:   instanceID,
		BacklogLimit: cfg.Channels.BacklogLimit,
	})

	verifier := token.NewVerifier(cfg.Auth.JWTSecret)
	wsHandler := handler.NewWSHandler(h, svc, verifier, collector, cfg.WebSocket)
	metricsHandler := handler.NewMetricsHandler(h, broadcaster, cfg.WebSocket)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	metricsHandler.RegisterRoutes(mux)
	handler.NewHealthHandler(instanceReg, instanceID).RegisterRoutes(mux)
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: log.HTTPMiddleware(logger)(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := instanceReg.Register(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to register instance")
	} else if err := instanceReg.StartHeartbeat(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start registry heartbeat")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.Run(gctx)
	})
	g.Go(func() error {
		return broadcaster.Run(gctx)
	})
	if ps != nil {
		mirror := service.NewPresenceMirror(h, ps, instanceID)
		g.Go(func() error {
			return mirror.Run(gctx)
		})
	}
	g.Go(func() error {
		logger.Info().Str("address", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		instanceReg.StopHeartbeat()
		if err := instanceReg.Deregister(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to deregister instance")
		}
		instanceReg.Close()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("gateway stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("gateway stopped")
}
