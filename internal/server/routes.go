package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/broadcast"
	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/config"
	"scavengerhunt/internal/db"
	"scavengerhunt/internal/leaderboard"
	"scavengerhunt/internal/metrics"
	"scavengerhunt/internal/round"
	"scavengerhunt/internal/session"
)

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/join", s.handleJoin)
	mux.HandleFunc("POST /api/player-ready", s.handlePlayerReady)
	mux.HandleFunc("POST /api/item-found", s.handleItemFound)
	mux.HandleFunc("POST /api/start-game", s.handleStartGame)
	mux.HandleFunc("POST /api/stop-game", s.handleStopGame)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/leaderboard", s.handleSubmitLeaderboard)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/detections", s.handleDetections)
	mux.HandleFunc("GET /api/archive", s.handleArchive)
	mux.HandleFunc("GET /api/events", s.Sessions.ServeSSE)
	mux.HandleFunc("GET /ws", s.Sessions.WebSocketHandler(s.Origins))
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func loadCatalog(path string, log logrus.FieldLogger) *catalog.Catalog {
	if path == "" {
		return catalog.Default()
	}
	c, err := catalog.Load(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("using built-in catalog")
		return catalog.Default()
	}
	log.WithFields(logrus.Fields{"path": path, "items": len(c.All())}).Info("catalog loaded")
	return c
}

func Run() error {
	appCfg := config.Load()
	logger := newLogger(appCfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPrometheus(reg)

	var seed []leaderboard.Entry
	if appCfg.SeedLeaderboard {
		seed = leaderboard.Seed()
	}
	board := leaderboard.NewStore(seed...)
	clock := clockwork.NewRealClock()
	hub := broadcast.NewHub(logger, m)

	deps := round.Deps{
		Catalog:     loadCatalog(appCfg.CatalogPath, logger),
		Leaderboard: board,
		Publisher:   hub,
		Clock:       clock,
		Logger:      logger,
		Metrics:     m,
	}

	// Optional database connection
	var archiving sync.WaitGroup
	var database *db.DB
	if appCfg.DatabaseURL != "" {
		d, err := db.Connect(appCfg.DatabaseURL, logger)
		if err != nil {
			logger.WithError(err).Warn("running without database")
		} else {
			if err := d.Migrate(); err != nil {
				logger.WithError(err).Error("migration failed")
			}
			database = d
			defer database.Close()
			archiver := db.NewArchiver(database, clock, logger)
			archiving.Add(1)
			go func() {
				defer archiving.Done()
				archiver.Run(ctx)
			}()
			deps.Archiver = archiver
		}
	} else {
		logger.Info("DATABASE_URL not set, running without database")
	}

	engine := round.NewEngine(round.Config{
		CountdownSecs: appCfg.CountdownSecs,
		ItemsPerRound: appCfg.ItemsPerRound,
	}, deps)
	hub.SetLeaveFunc(engine.Leave)

	sessions := session.NewManager(engine, hub, clock, logger, session.Config{
		Heartbeat: time.Duration(appCfg.HeartbeatSecs) * time.Second,
	})

	srv := &Server{
		Engine:   engine,
		Sessions: sessions,
		Catalog:  deps.Catalog,
		DB:       database,
		Gatherer: reg,
		Log:      logger,
		Origins:  appCfg.AllowedOrigins,
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: appCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(LogMiddleware(logger, m.HTTPRequests)(srv.Routes()))

	// Request contexts derive from ctx so open streams end on shutdown.
	httpServer := &http.Server{
		Addr:        "0.0.0.0:" + appCfg.Port,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on http://localhost:%s", appCfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	engine.Reset()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	archiving.Wait()
	return err
}
