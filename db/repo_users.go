package db

import (
	"context"
	"errors"
	"strings"

	"Gin_postgres_redis_library/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===== 用户 =====

type RegisterUserInput struct {
	Registration string
	Name         string
	NationalID   string
	Email        string
	Address      string
	Phone        string
	Role         string
	Password     string
}

// RegisterUser 注册（密码 bcrypt 存储）；只有管理员能注册管理员
func (r *Repo) RegisterUser(ctx context.Context, p models.Principal, in RegisterUserInput) (*models.User, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if role == models.RoleAdmin && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	u, err := newUser(in, role)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func newUser(in RegisterUserInput, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Registration: strings.TrimSpace(in.Registration),
		Name:         strings.TrimSpace(in.Name),
		NationalID:   strings.TrimSpace(in.NationalID),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Address:      in.Address,
		Phone:        in.Phone,
		Role:         role,
		PasswordHash: string(hash),
	}, nil
}

// Authenticate 邮箱 + 密码登录
func (r *Repo) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &u, nil
}

func (r *Repo) FindUser(ctx context.Context, registration string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "registration = ?", registration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// 列表（分页 + 关键词，匹配姓名/邮箱/学号）
type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (ListUsersResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		l := like(q)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(registration) LIKE ?", l, l, l)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	users := []models.User{}
	if err := tx.
		Order("registration ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// DeleteUser 有未还借阅时拒绝；已还的借阅记录随用户一起删
func (r *Repo) DeleteUser(ctx context.Context, p models.Principal, registration string) error {
	if err := requireAdmin(p); err != nil {
		return err
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
		if err := guardOpenLoans(tx, "user_registration = ?", u.Registration); err != nil {
			return err
		}
		if err := tx.Where("user_registration = ?", u.Registration).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "registration = ?", u.Registration).Error
	})
}
