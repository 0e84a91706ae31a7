package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/service"
	"Gin_postgres_redis_tool_tracker/session"
)

// Short aliases for handlers.
type Ctx = gin.Context
type H = gin.H

// App aggregates the process-wide dependencies.
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	WA       *webauthn.WebAuthn
	Config   *config.Config
	Logger   *zap.Logger
	Repo     *db.Repo
	Services *service.Services

	adminSess  *session.AdminSessionStore
	ceremonies *session.CeremonyStore
}

func (a *App) AdminSessions() *session.AdminSessionStore { return a.adminSess }
func (a *App) Ceremonies() *session.CeremonyStore        { return a.ceremonies }

// New connects PostgreSQL and Redis, applies migrations and wires the
// services. The router has middleware installed but no routes.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	conn, err := db.Connect(&cfg.Database, cfg.Log.Level, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, log); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthn.DisplayName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     cfg.WebAuthn.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	repo := db.NewRepo(conn)
	svc := service.New(repo, service.Options{
		LoanPeriod:             cfg.Checkout.LoanPeriod,
		AutoRegister:           cfg.Kiosk.AutoRegister,
		AutoRegisterDepartment: cfg.Kiosk.AutoRegisterDepartment,
		BaseURL:                cfg.Server.BaseURL,
		Location:               cfg.Checkout.Location(),
	}, log)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(RequestLogger(log), gin.Recovery())
	useCORS(r, cfg.Server.CORS.AllowOrigins)

	return &App{
		Router:     r,
		DB:         conn,
		RDB:        rdb,
		WA:         wa,
		Config:     cfg,
		Logger:     log,
		Repo:       repo,
		Services:   svc,
		adminSess:  session.NewAdminSessionStore(rdb, cfg.Session.TTL),
		ceremonies: session.NewCeremonyStore(rdb, cfg.Session.CeremonyTTL),
	}, nil
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
