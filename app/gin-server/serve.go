package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/labourline/config"
	"github.com/yoockh/labourline/internal/api/handlers"
	"github.com/yoockh/labourline/internal/api/middleware"
	"github.com/yoockh/labourline/internal/api/routes"
	"github.com/yoockh/labourline/internal/logger"
	mongorepo "github.com/yoockh/labourline/internal/repositories/mongo"
	pgrepo "github.com/yoockh/labourline/internal/repositories/postgres"
	"github.com/yoockh/labourline/internal/providers/sms"
	"github.com/yoockh/labourline/internal/providers/stt"
	"github.com/yoockh/labourline/internal/providers/voice"
	"github.com/yoockh/labourline/internal/services"
	"github.com/yoockh/labourline/internal/sessions"
	"github.com/yoockh/labourline/internal/storage"
	"github.com/yoockh/labourline/internal/workers"
)

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return err
	}

	if err := config.InitPostgres(cfg.PostgresURI, log); err != nil {
		log.WithError(err).Error("PostgreSQL init error")
		return err
	}
	log.Info("PostgreSQL connected")

	var events mongorepo.CallEventRepository
	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg); err != nil {
			log.WithError(err).Error("MongoDB init error")
			return err
		}
		if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
			log.WithError(err).Warn("MongoDB index setup failed")
		}
		events = mongorepo.NewCallEventRepo(config.MongoClient.Database(cfg.MongoDB))
		log.Info("MongoDB connected")
	}

	if cfg.RedisAddr != "" {
		if err := config.InitRedis(cfg.RedisAddr); err != nil {
			log.WithError(err).Error("Redis init error")
			return err
		}
		log.Info("Redis connected")
	}

	// Repositories
	workerRepo := pgrepo.NewWorkerRepo(config.PostgresDB)
	jobRepo := pgrepo.NewJobRepo(config.PostgresDB)
	callLogRepo := pgrepo.NewCallLogRepo(config.PostgresDB)
	failureRepo := pgrepo.NewPipelineFailureRepo(config.PostgresDB)

	// Session store
	var store sessions.Store
	switch cfg.SessionBackend {
	case "redis":
		store = sessions.NewRedisStore(config.RedisClient, cfg.SessionTTL)
	default:
		store = sessions.NewMemoryStore(cfg.SessionTTL)
	}

	// Providers
	transcriber, closeSTT := newTranscriber(ctx, cfg, log)
	defer closeSTT()

	var sender sms.Sender = &sms.LogSender{Logger: log}
	if cfg.TwilioAccountSID != "" && cfg.TwilioFromNumber != "" {
		ts, err := sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		if err != nil {
			log.WithError(err).Error("SMS sender init error")
			return err
		}
		sender = ts
	} else {
		log.Warn("TWILIO_ACCOUNT_SID/TWILIO_FROM_NUMBER not set; SMS are only logged")
	}

	// Services
	telemetry := services.NewTelemetryService(config.RedisClient, events, log)
	callLogs := services.NewCallLogService(callLogRepo)
	matching := services.NewMatchingService(workerRepo, jobRepo, services.MatchWeights{
		Location:   cfg.MatchWeightLocation,
		Experience: cfg.MatchWeightExperience,
		Skill:      cfg.MatchWeightSkill,
	}, cfg.MatchMaxResults, log)
	notifications := services.NewNotificationService(sender, cfg.MatchMaxResults, log)

	finalize := services.NewFinalizeService(
		store, transcriber, workerRepo, jobRepo, matching, notifications, callLogs, telemetry, failureRepo,
		services.FinalizeConfig{TranscriptionLocale: cfg.STTLanguage, StepTimeout: cfg.FinalizeStepTimeout},
		log,
	)

	// Finalization workers
	var dispatcher services.FinalizeDispatcher
	var drain func()
	switch cfg.FinalizeQueue {
	case "redis":
		pool := &workers.FinalizeStreamPool{
			Redis:      config.RedisClient,
			Runner:     finalize,
			NumWorkers: cfg.FinalizeWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
		dispatcher, drain = pool, pool.Stop
	default:
		pool := &workers.FinalizePool{
			Runner:     finalize,
			NumWorkers: cfg.FinalizeWorkers,
			QueueSize:  cfg.FinalizeQueueSize,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
		dispatcher, drain = pool, pool.Stop
	}

	flow := services.NewCallFlowService(store, dispatcher, finalize, callLogs, telemetry, log)
	failures := services.NewFailureService(failureRepo, store, dispatcher, log)

	// HTTP
	if cfg.GoEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	if cfg.TwilioAuthToken == "" {
		log.Warn("TWILIO_AUTH_TOKEN not set; /ivr webhook signatures are not checked")
	}

	renderer := voice.NewRenderer(cfg.PublicBaseURL, cfg.GatherTimeoutSeconds, cfg.MaxRecordingSeconds)
	deps := routes.Deps{
		IVR:      handlers.NewIVRHandler(flow, renderer, log),
		Ops:      handlers.NewOpsHandler(failures, log),
		JWT:      middleware.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience},
		AudioDir: cfg.AudioDir,

		WebhookAuthToken: cfg.TwilioAuthToken,
		PublicBaseURL:    cfg.PublicBaseURL,
	}
	if config.RedisClient != nil {
		deps.WS = handlers.NewWSHandler(config.RedisClient)
	}
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server error")
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	drain()
	return nil
}

// newTranscriber wires Google Speech-to-Text behind the recording fetcher.
// Without credentials every answer is stored as unknown.
func newTranscriber(ctx context.Context, cfg *config.Settings, log *logrus.Logger) (services.Transcriber, func()) {
	var provider stt.Provider = stt.Disabled{}
	gs, err := stt.NewGoogleSpeech(ctx, cfg.GoogleCredentials, int32(cfg.STTSampleRateHz))
	if err != nil {
		log.WithError(err).Warn("speech recognition unavailable")
	} else {
		provider = gs
	}

	t := &stt.RecordingTranscriber{
		Fetcher:  stt.NewRecordingFetcher(cfg.TwilioAccountSID, cfg.TwilioAuthToken),
		Provider: provider,
		Logger:   log,
	}

	closers := []func() error{provider.Close}
	if cfg.RecordingsBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.RecordingsBucket)
		if err != nil {
			log.WithError(err).Warn("recording archive unavailable")
		} else {
			t.Archive = up
			closers = append(closers, up.Close)
		}
	}

	return t, func() {
		for _, c := range closers {
			_ = c()
		}
	}
}
