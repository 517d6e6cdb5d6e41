package db

import (
	"time"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

// Repo 所有写操作的入口；每个写操作各自开一个事务
type Repo struct {
	DB         *gorm.DB
	Now        func() time.Time
	FinePerDay float64
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db, Now: time.Now, FinePerDay: DefaultFinePerDay}
}

func (r *Repo) today() models.Date { return models.NewDate(r.Now()) }

func requireAdmin(p models.Principal) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
