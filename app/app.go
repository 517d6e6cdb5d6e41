package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router  *gin.Engine
	DB      *gorm.DB
	RDB     *redis.Client
	Config  config.Config
	Repo    *db.Repo
	Reports *db.Reporter
	Tokens  *TokenIssuer

	appSess *session.AppSessionStore
	closers []func() error
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

// New 连库、连 Redis、组装路由引擎
func New(ctx context.Context, cfg config.Config) (*App, error) {
	// --- DB ---
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- Reports：有只读副本就走副本，否则复用主库连接池 ---
	var reports *db.Reporter
	if cfg.ReportsDatabaseURL != "" {
		reports, err = db.OpenReportsDB(ctx, cfg.ReportsDatabaseURL, db.Pool{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	} else {
		reports, err = db.ReporterFor(gdb)
	}
	if err != nil {
		_ = rdb.Close()
		_ = db.Close(gdb)
		return nil, err
	}

	a := NewWith(cfg, gdb, rdb, reports)
	a.closers = append(a.closers, rdb.Close, func() error { return db.Close(gdb) })
	if cfg.ReportsDatabaseURL != "" {
		a.closers = append(a.closers, reports.Close)
	}
	if err := BootstrapFirstAdmin(ctx, cfg, a.Repo); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	return a, nil
}

func MustNew(ctx context.Context, cfg config.Config) *App {
	a, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	return a
}

// NewWith 用现成的连接组装（测试也走这里）
func NewWith(cfg config.Config, gdb *gorm.DB, rdb *redis.Client, reports *db.Reporter) *App {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	repo := db.NewRepo(gdb)
	repo.FinePerDay = cfg.FinePerDay

	r := gin.New()
	// 只信任配置里的代理，否则客户端自带的 X-Forwarded-For 会改写 ClientIP
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		slog.Warn("invalid TRUSTED_PROXIES, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(RequestID(), RequestLogger(), Recovery(!cfg.Production()))
	useCORS(r, cfg.WebOrigin)
	r.NoRoute(func(c *Ctx) {
		c.JSON(http.StatusNotFound, H{"success": false, "message": "route not found", "path": c.Request.URL.Path})
	})

	return &App{
		Router:  r,
		DB:      gdb,
		RDB:     rdb,
		Config:  cfg,
		Repo:    repo,
		Reports: reports,
		Tokens:  NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		appSess: session.NewAppSessionStore(rdb, cfg.TokenTTL),
	}
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}
