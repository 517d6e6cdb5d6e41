package db

import (
	"context"
	"errors"
	"strings"

	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OpenLoanInput struct {
	ISBN         string
	Registration string
	LoanDate     models.Date
	DueDate      models.Date
}

type ReturnResult struct {
	LoanID     int64       `json:"loan_id"`
	ReturnDate models.Date `json:"return_date"`
	Fine       float64     `json:"fine"`
}

// 借出：锁书行 → 检查库存 → 检查用户 → 建借阅 → 库存 -1，全部在一个事务里
func (r *Repo) OpenLoan(ctx context.Context, p models.Principal, in OpenLoanInput) (int64, error) {
	if err := requireAdmin(p); err != nil {
		return 0, err
	}
	if in.DueDate.Before(in.LoanDate.Time) {
		return 0, ErrInvalidDueDate
	}

	var loanID int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住这本书，并发借同一本书会在这里排队
		var book models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&book, "isbn = ?", in.ISBN).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.Available <= 0 {
			return ErrBookUnavailable
		}

		// 2) 借阅人必须存在；共享锁挡住并发的 DeleteUser
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("registration").
			First(&user, "registration = ?", in.Registration).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// 3) 新建借阅
		loan := models.Loan{
			BookISBN:         book.ISBN,
			UserRegistration: user.Registration,
			LoanDate:         in.LoanDate,
			DueDate:          in.DueDate,
			Status:           models.LoanStatusOpen,
		}
		if err := tx.Create(&loan).Error; err != nil {
			return translateLoanInsert(err)
		}

		// 4) 库存 -1
		if err := decrementAvailability(tx, book.ISBN); err != nil {
			return err
		}
		loanID = loan.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// 归还：锁借阅行 → 计算罚金 → 关闭借阅 → 库存 +1
func (r *Repo) ReturnLoan(ctx context.Context, p models.Principal, loanID int64) (ReturnResult, error) {
	if err := requireAdmin(p); err != nil {
		return ReturnResult{}, err
	}

	var out ReturnResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&loan, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if !loan.IsOpen() {
			return ErrAlreadyReturned
		}

		returned := r.today()
		fine := ComputeFine(loan.DueDate, returned, r.FinePerDay)

		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", loan.ID, models.LoanStatusOpen).
			Updates(map[string]any{
				"return_date": returned,
				"status":      models.LoanStatusReturned,
				"fine":        fine,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		if err := incrementAvailability(tx, loan.BookISBN); err != nil {
			return err
		}
		out = ReturnResult{LoanID: loan.ID, ReturnDate: returned, Fine: fine}
		return nil
	})
	if err != nil {
		return ReturnResult{}, err
	}
	return out, nil
}

type LoanFilter struct {
	Status       string
	Registration string
	ISBN         string
}

func (r *Repo) ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Loan{})
	if s := strings.TrimSpace(f.Status); s != "" {
		tx = tx.Where("status = ?", s)
	}
	if s := strings.TrimSpace(f.Registration); s != "" {
		tx = tx.Where("user_registration = ?", s)
	}
	if s := strings.TrimSpace(f.ISBN); s != "" {
		tx = tx.Where("book_isbn = ?", s)
	}

	loans := []models.Loan{}
	if err := tx.Order("loan_date DESC, id DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// 某个用户的全部借阅（含已还），一条都没有时返回 ErrNoLoansForUser
func (r *Repo) ListLoansByUser(ctx context.Context, registration string) ([]models.Loan, error) {
	loans, err := r.ListLoans(ctx, LoanFilter{Registration: registration})
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, ErrNoLoansForUser
	}
	return loans, nil
}

func (r *Repo) GetLoan(ctx context.Context, id int64) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &l, nil
}
