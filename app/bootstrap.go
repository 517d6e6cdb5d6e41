// app/bootstrap.go
package app

import (
	"context"
	"log/slog"
	"strings"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/db"
)

// BootstrapFirstAdmin 库里没有管理员时，用 BOOTSTRAP_ADMIN_* 建第一个
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo *db.Repo) error {
	if cfg.BootstrapAdminEmail == "" {
		return nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil // 已经有管理员，跳过
	}

	reg := cfg.BootstrapAdminRegistration
	created, err := repo.BootstrapAdmin(ctx, db.RegisterUserInput{
		Registration: reg,
		Name:         "Administrator",
		NationalID:   "bootstrap-" + reg,
		Email:        cfg.BootstrapAdminEmail,
		Password:     cfg.BootstrapAdminPassword,
	})
	if err != nil {
		return err
	}
	if created {
		slog.Info("[BOOTSTRAP] no admin found, created first admin",
			"registration", reg, "email", strings.ToLower(cfg.BootstrapAdminEmail))
	}
	return nil
}
