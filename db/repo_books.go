package db

import (
	"context"
	"errors"
	"strings"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===== 图书目录 =====

// CreateBook 上架：available 从 total_copies 起步
func (r *Repo) CreateBook(ctx context.Context, p models.Principal, b *models.Book) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if b.TotalCopies < 0 {
		return ErrInvalidCopies
	}
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Available = b.TotalCopies
	return translate(r.DB.WithContext(ctx).Create(b).Error)
}

func (r *Repo) GetBook(ctx context.Context, isbn string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, "isbn = ?", isbn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

type BookFilter struct {
	Title     string
	Author    string
	Category  string
	ISBN      string
	Q         string // 同时匹配书名/作者/ISBN
	Available *bool
}

func (r *Repo) ListBooks(ctx context.Context, f BookFilter) ([]models.Book, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Book{})
	if s := strings.TrimSpace(f.Title); s != "" {
		tx = tx.Where("LOWER(title) LIKE ?", like(s))
	}
	if s := strings.TrimSpace(f.Author); s != "" {
		tx = tx.Where("LOWER(authors) LIKE ?", like(s))
	}
	if s := strings.TrimSpace(f.Category); s != "" {
		tx = tx.Where("LOWER(category) LIKE ?", like(s))
	}
	if s := strings.TrimSpace(f.ISBN); s != "" {
		tx = tx.Where("isbn = ?", s)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		l := like(s)
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(authors) LIKE ? OR LOWER(isbn) LIKE ?", l, l, l)
	}
	if f.Available != nil {
		if *f.Available {
			tx = tx.Where("available > 0")
		} else {
			tx = tx.Where("available = 0")
		}
	}

	books := []models.Book{}
	if err := tx.Order("title ASC, isbn ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// DeleteBook 有未还借阅时拒绝；否则连同已还的借阅记录一起删
func (r *Repo) DeleteBook(ctx context.Context, p models.Principal, isbn string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "isbn = ?", isbn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if err := guardOpenLoans(tx, "book_isbn = ?", b.ISBN); err != nil {
			return err
		}
		if err := tx.Where("book_isbn = ?", b.ISBN).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Book{}, "isbn = ?", b.ISBN).Error
	})
}

// guardOpenLoans 在同一事务里数未还借阅，有则 ErrHasOpenLoans
func guardOpenLoans(tx *gorm.DB, cond string, arg any) error {
	var open int64
	if err := tx.Model(&models.Loan{}).
		Where(cond, arg).
		Where("status = ?", models.LoanStatusOpen).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return ErrHasOpenLoans
	}
	return nil
}

func like(s string) string { return "%" + strings.ToLower(s) + "%" }
