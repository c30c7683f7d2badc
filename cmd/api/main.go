package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/ami"
	"dialer-platform/internal/audit"
	"dialer-platform/internal/callerid"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/config"
	"dialer-platform/internal/contacts"
	"dialer-platform/internal/dialer"
	"dialer-platform/internal/events"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/reporting"
	"dialer-platform/pkg/logger"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	campaignRepo := campaigns.NewPostgresRepo(db)
	queue := contacts.NewQueue(contacts.NewPostgresRepo(db))
	pool := agents.NewPool(agents.NewPostgresRepo(db), logger.Component(log, "agents"))
	picker := callerid.NewPicker(callerid.NewPostgresRepo(db), nil)
	ledger := calls.NewPostgresRepo(db)

	trackerCfg := calls.TrackerConfig{
		TrunkPrefix:      cfg.Dialer.TrunkPrefix,
		Context:          cfg.Dialer.Context,
		OriginateTimeout: cfg.Dialer.OriginateTimeout,
		CallerIDName:     cfg.Dialer.CallerIDName,
		PollInterval:     cfg.Dialer.PollInterval,
		MaxPolls:         cfg.Dialer.MaxPolls,
	}
	trackerLog := logger.Component(log, "calls")
	trackers := func(pbx calls.PBXClient) dialer.Dispatcher {
		t := calls.NewTracker(ledger, pbx, pool, picker, trackerCfg, trackerLog)
		if cfg.Dialer.MaxActiveCalls > 0 {
			t.SetLimiter(calls.NewRedisLimiter(rdb, cfg.Dialer.MaxActiveCalls, 0))
		}
		return t
	}

	amiCfg := ami.Config{
		Addr:        cfg.AMIAddr(),
		Username:    cfg.AMI.Username,
		Secret:      cfg.AMI.Secret,
		ReadTimeout: cfg.AMI.ReadTimeout,
	}
	connect := func(ctx context.Context) (dialer.PBX, error) {
		c, err := ami.Dial(ctx, amiCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	mgr := dialer.NewManager(dialer.Deps{
		Campaigns: campaignRepo,
		Contacts:  queue,
		Agents:    pool,
		Ledger:    ledger,
		Connect:   connect,
		Trackers:  trackers,
		Events:    events.NewRedisPublisher(rdb),
	}, dialer.Config{
		PacingRatio:    cfg.Dialer.PacingRatio,
		IterationSleep: cfg.Dialer.IterationSleep,
		MaxIterations:  cfg.Dialer.MaxIterations,
	}, logger.Component(log, "dialer"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	httpapi.Handlers{
		Manager:     mgr,
		Campaigns:   campaignRepo,
		Queue:       queue,
		Reports:     reporting.NewService(campaignRepo, queue, ledger),
		Audit:       audit.NewService(audit.NewPostgresRepo(db)),
		CountryCode: cfg.Dialer.CountryCode,
	}.Register(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Campaign loops wind down before the process exits; detached call
	// monitors are cut off here, their calls resolve on the next run.
	mgr.StopAll()
}
