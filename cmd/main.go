package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saeidalz13/battleship-session/api"
	"github.com/saeidalz13/battleship-session/db"
	"github.com/saeidalz13/battleship-session/db/sqlc"
	"github.com/saeidalz13/battleship-session/internal"
	"github.com/saeidalz13/battleship-session/internal/config"
	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

const shutdownTimeout = time.Second * 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	managerOpts := []mb.ManagerOption{mb.WithRules(cfg.Rules), mb.WithLogger(logger)}

	var store mb.Store
	switch cfg.DatabaseURL {
	case "":
		store = mb.NewMemoryStore()
		logger.Info(ctx, "using the in-memory session store")

	default:
		conn := db.MustConnectToDb(cfg.DatabaseURL, logger)
		defer conn.Close()

		ipNet, err := internal.ServerIpNet()
		if err != nil {
			logger.Warn(ctx, "no server ip found, counting analytics under loopback", "error", err.Error())
			if ipNet, err = internal.IpNetFromAddr("127.0.0.1:" + strconv.Itoa(cfg.Port)); err != nil {
				panic(err)
			}
		}

		dbm := sqlc.NewDbManager(sqlc.New(conn), ipNet)
		store = db.NewBreakerStore(dbm.Sessions, db.BreakerSettings{
			MaxRequests:      cfg.BreakerMaxRequests,
			Interval:         cfg.BreakerInterval,
			Timeout:          cfg.BreakerTimeout,
			ConsecutiveFails: cfg.BreakerConsecutiveFails,
		}, logger)
		managerOpts = append(managerOpts, mb.WithAnalytics(dbm.Analytics))
		logger.Info(ctx, "using the postgres session store", "server_ip", ipNet.IP.String())
	}

	sessions := mb.NewManager(store, managerOpts...)

	// the grace callback needs the server, which needs the connection manager
	var server *api.Server
	conns := mc.NewManager(
		mc.WithRateLimit(cfg.MsgRate, cfg.MsgBurst),
		mc.WithWriteTimeout(cfg.WriteTimeout),
		mc.WithGracePeriod(cfg.DisconnectGrace, func(sessionId, playerId string) {
			server.OnGraceExpired(sessionId, playerId)
		}),
		mc.WithLogger(logger),
	)
	server = api.NewServer(sessions, conns,
		api.WithPort(cfg.Port),
		api.WithStage(cfg.Stage),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithSessionSecret(cfg.SessionSecret),
		api.WithLogger(logger),
	)

	if lister, ok := store.(mb.ExpiredLister); ok && cfg.SessionTTL > 0 {
		go sweepPeriodically(ctx, sessions, lister, conns, cfg.SessionTTL, logger)
	}

	httpServer := server.HttpServer()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "shutdown failed", err)
		}
	}()

	logger.Info(ctx, "listening", "addr", httpServer.Addr, "stage", cfg.Stage)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "server stopped", err)
		os.Exit(1)
	}
}

// Checking every ttl/4 keeps an idle session alive for at most 1.25 ttl.
func sweepPeriodically(ctx context.Context, sessions *mb.Manager, lister mb.ExpiredLister, conns *mc.Manager, ttl time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.Sweep(ctx, lister, ttl)
			if err != nil {
				logger.Warn(ctx, "session sweep failed", "error", err.Error())
				continue
			}
			for _, sessionId := range removed {
				conns.CloseSession(sessionId, websocket.CloseGoingAway, "session expired")
			}
			if len(removed) > 0 {
				logger.Info(ctx, "expired sessions removed", "count", len(removed))
			}
		}
	}
}
