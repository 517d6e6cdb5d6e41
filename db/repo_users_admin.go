// db/repo_users_admin.go
package db

import (
	"context"
	"errors"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrLastAdmin = errors.New("cannot remove the last admin")

// SetUserRole 改角色；不能把最后一个管理员降级
func (r *Repo) SetUserRole(ctx context.Context, p models.Principal, registration, role string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "registration = ?", registration).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if u.Role == role {
			return nil
		}
		if u.Role == models.RoleAdmin {
			n, err := countAdmins(tx)
			if err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}
		return tx.Model(&models.User{}).
			Where("registration = ?", u.Registration).
			Update("role", role).Error
	})
}

// BootstrapAdmin 库里还没有管理员时建第一个；已有则什么都不做
func (r *Repo) BootstrapAdmin(ctx context.Context, in RegisterUserInput) (bool, error) {
	u, err := newUser(in, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	created := false
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countAdmins(tx)
		if err != nil || n > 0 {
			return err
		}
		if err := tx.Create(u).Error; err != nil {
			return translate(err)
		}
		created = true
		return nil
	})
	return created, err
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	return countAdmins(r.DB.WithContext(ctx))
}

func countAdmins(tx *gorm.DB) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&n).Error
	return n, err
}
