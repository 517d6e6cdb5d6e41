package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Gin_postgres_redis_library/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	admin  = models.Principal{Registration: "A001", Role: models.RoleAdmin}
	member = models.Principal{Registration: "U001", Role: models.RoleUser}
)

// 每个测试一个独立的内存库
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=1", uuid.NewString())
	gdb, err := Connect(sqlite.Open(dsn), Pool{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })
	return gdb
}

func fixedClock(day string) func() time.Time {
	d, err := models.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return d.Add(15 * time.Hour) }
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r := NewRepo(openTestDB(t))
	r.Now = fixedClock("2025-09-30")
	return r
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedBook(t *testing.T, r *Repo, isbn string, copies int) *models.Book {
	t.Helper()
	b := &models.Book{ISBN: isbn, Title: "Book " + isbn, Authors: "Author " + isbn, TotalCopies: copies}
	require.NoError(t, r.CreateBook(context.Background(), admin, b))
	return b
}

func seedUser(t *testing.T, r *Repo, reg string) *models.User {
	t.Helper()
	u, err := r.RegisterUser(context.Background(), models.Principal{}, RegisterUserInput{
		Registration: reg,
		Name:         "User " + reg,
		NationalID:   "NID-" + reg,
		Email:        reg + "@library.test",
		Password:     "secret-" + reg,
	})
	require.NoError(t, err)
	return u
}

func openLoan(t *testing.T, r *Repo, isbn, reg, loanDay, dueDay string) int64 {
	t.Helper()
	id, err := r.OpenLoan(context.Background(), admin, OpenLoanInput{
		ISBN:         isbn,
		Registration: reg,
		LoanDate:     date(t, loanDay),
		DueDate:      date(t, dueDay),
	})
	require.NoError(t, err)
	return id
}

func available(t *testing.T, r *Repo, isbn string) int {
	t.Helper()
	b, err := r.GetBook(context.Background(), isbn)
	require.NoError(t, err)
	require.GreaterOrEqual(t, b.Available, 0)
	require.LessOrEqual(t, b.Available, b.TotalCopies)
	return b.Available
}
