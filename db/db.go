package db

import (
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_library/config"
	"Gin_postgres_redis_library/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Pool 所有操作共用的连接池
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open 按配置连库并迁移
func Open(cfg config.Config) (*gorm.DB, error) {
	pool := Pool{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite 没有行锁，单连接串行写
		pool.MaxOpenConns, pool.MaxIdleConns = 1, 1
		return Connect(sqlite.Open(SQLiteDSN(cfg.SQLitePath)), pool)
	}
	return Connect(postgres.Open(cfg.DatabaseURL), pool)
}

func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
}

func Connect(dialector gorm.Dialector, pool Pool) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(slog.Default()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := Migrate(gdb); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("database connected", "driver", gdb.Dialector.Name())
	return gdb, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Book{}, &models.User{}, &models.Loan{}); err != nil {
		return err
	}

	// 未还借阅的部分索引：删除校验、逾期报表都按它查
	stmts := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_open_by_book ON %s (book_isbn) WHERE status = 'open'`,
			models.LoanTable, models.LoanTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_open_by_user ON %s (user_registration) WHERE status = 'open'`,
			models.LoanTable, models.LoanTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_open_by_due ON %s (due_date) WHERE status = 'open'`,
			models.LoanTable, models.LoanTable),
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}

func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
