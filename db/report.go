package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_library/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

const reportLimit = 10

type BookLoanCount struct {
	ISBN      string `db:"isbn" json:"isbn"`
	Title     string `db:"title" json:"title"`
	Authors   string `db:"authors" json:"authors"`
	LoanCount int64  `db:"loan_count" json:"loan_count"`
}

type UserLoanCount struct {
	Registration string `db:"registration" json:"registration"`
	Name         string `db:"name" json:"name"`
	LoanCount    int64  `db:"loan_count" json:"loan_count"`
}

type OverdueLoan struct {
	LoanID           int64       `db:"id" json:"id"`
	ISBN             string      `db:"isbn" json:"isbn"`
	Title            string      `db:"title" json:"title"`
	UserRegistration string      `db:"registration" json:"user_registration"`
	Name             string      `db:"name" json:"name"`
	DueDate          models.Date `db:"due_date" json:"due_date"`
}

type LoanHistoryRow struct {
	LoanID       int64             `db:"id" json:"id"`
	ISBN         string            `db:"isbn" json:"isbn"`
	Title        string            `db:"title" json:"title"`
	Registration string            `db:"registration" json:"registration"`
	Name         string            `db:"name" json:"name"`
	LoanDate     models.Date       `db:"loan_date" json:"loan_date"`
	DueDate      models.Date       `db:"due_date" json:"due_date"`
	ReturnDate   *models.Date      `db:"return_date" json:"return_date"`
	Status       models.LoanStatus `db:"status" json:"status"`
	Fine         float64           `db:"fine" json:"fine"`
}

// Reporter 只读，不加锁，接受读已提交的快照
type Reporter struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	Now     func() time.Time
}

// NewReporter dialect 取 goqu 的方言名："postgres" 或 "sqlite3"
func NewReporter(x *sqlx.DB, dialect string) *Reporter {
	return &Reporter{db: x, dialect: goqu.Dialect(dialect), Now: time.Now}
}

// ReporterFor 复用主库连接池
func ReporterFor(gdb *gorm.DB) (*Reporter, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if gdb.Dialector.Name() == "sqlite" {
		return NewReporter(sqlx.NewDb(sqlDB, "sqlite3"), "sqlite3"), nil
	}
	return NewReporter(sqlx.NewDb(sqlDB, "pgx"), "postgres"), nil
}

// OpenReportsDB 报表走单独的只读连接（lib/pq）
func OpenReportsDB(ctx context.Context, url string, pool Pool) (*Reporter, error) {
	x, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open reports db: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		x.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		x.SetMaxIdleConns(pool.MaxIdleConns)
	}
	x.SetConnMaxLifetime(pool.ConnMaxLifetime)
	if err := x.PingContext(ctx); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("ping reports db: %w", err)
	}
	return NewReporter(x, "postgres"), nil
}

func (r *Reporter) Close() error { return r.db.Close() }

func (r *Reporter) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	return r.db.SelectContext(ctx, dest, q, args...)
}

// MostLoanedBooks 借阅次数最多的前 10 本（没借过的也算，计 0）
func (r *Reporter) MostLoanedBooks(ctx context.Context) ([]BookLoanCount, error) {
	ds := r.dialect.From(goqu.T(models.BookTable).As("b")).
		LeftJoin(goqu.T(models.LoanTable).As("l"), goqu.On(goqu.I("l.book_isbn").Eq(goqu.I("b.isbn")))).
		Select(
			goqu.I("b.isbn"),
			goqu.I("b.title"),
			goqu.I("b.authors"),
			goqu.COUNT(goqu.I("l.id")).As("loan_count"),
		).
		GroupBy(goqu.I("b.isbn"), goqu.I("b.title"), goqu.I("b.authors")).
		Order(goqu.C("loan_count").Desc(), goqu.I("b.isbn").Asc()).
		Limit(reportLimit)

	rows := []BookLoanCount{}
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Reporter) MostLoanedUsers(ctx context.Context) ([]UserLoanCount, error) {
	ds := r.dialect.From(goqu.T(models.UserTable).As("u")).
		LeftJoin(goqu.T(models.LoanTable).As("l"), goqu.On(goqu.I("l.user_registration").Eq(goqu.I("u.registration")))).
		Select(
			goqu.I("u.registration"),
			goqu.I("u.name"),
			goqu.COUNT(goqu.I("l.id")).As("loan_count"),
		).
		GroupBy(goqu.I("u.registration"), goqu.I("u.name")).
		Order(goqu.C("loan_count").Desc(), goqu.I("u.registration").Asc()).
		Limit(reportLimit)

	rows := []UserLoanCount{}
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	return rows, nil
}

// OverdueBooks 未还且 due_date 早于今天（今天到期不算逾期）
func (r *Reporter) OverdueBooks(ctx context.Context) ([]OverdueLoan, error) {
	today := models.NewDate(r.Now())
	ds := loanJoin(r.dialect).
		Select(
			goqu.I("l.id"),
			goqu.I("b.isbn"),
			goqu.I("b.title"),
			goqu.I("u.registration"),
			goqu.I("u.name"),
			goqu.I("l.due_date"),
		).
		Where(
			goqu.I("l.status").Eq(string(models.LoanStatusOpen)),
			goqu.I("l.due_date").Lt(today.Time),
		).
		Order(goqu.I("l.due_date").Asc(), goqu.I("l.id").Asc())

	rows := []OverdueLoan{}
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	return rows, nil
}

// ParseRange 两端都必须是 YYYY-MM-DD；start > end 不报错，结果为空
func ParseRange(start, end string) (models.Date, models.Date, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return models.Date{}, models.Date{}, ErrInvalidRange
	}
	s, err := models.ParseDate(start)
	if err != nil {
		return models.Date{}, models.Date{}, ErrInvalidRange
	}
	e, err := models.ParseDate(end)
	if err != nil {
		return models.Date{}, models.Date{}, ErrInvalidRange
	}
	return s, e, nil
}

// LoansHistory 借出日期落在 [start, end] 内的借阅，不论状态
func (r *Reporter) LoansHistory(ctx context.Context, start, end string) ([]LoanHistoryRow, error) {
	s, e, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	ds := loanJoin(r.dialect).
		Select(
			goqu.I("l.id"),
			goqu.I("b.isbn"),
			goqu.I("b.title"),
			goqu.I("u.registration"),
			goqu.I("u.name"),
			goqu.I("l.loan_date"),
			goqu.I("l.due_date"),
			goqu.I("l.return_date"),
			goqu.I("l.status"),
			goqu.I("l.fine"),
		).
		Where(goqu.I("l.loan_date").Between(goqu.Range(s.Time, e.Time))).
		Order(goqu.I("l.loan_date").Asc(), goqu.I("l.id").Asc())

	rows := []LoanHistoryRow{}
	if err := r.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	return rows, nil
}

func loanJoin(d goqu.DialectWrapper) *goqu.SelectDataset {
	return d.From(goqu.T(models.LoanTable).As("l")).
		InnerJoin(goqu.T(models.BookTable).As("b"), goqu.On(goqu.I("b.isbn").Eq(goqu.I("l.book_isbn")))).
		InnerJoin(goqu.T(models.UserTable).As("u"), goqu.On(goqu.I("u.registration").Eq(goqu.I("l.user_registration"))))
}
