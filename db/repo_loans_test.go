package db

import (
	"context"
	"sync"
	"testing"

	"Gin_postgres_redis_library/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLoan_DecrementsAvailability(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 2)
	seedUser(t, r, "U001")

	id := openLoan(t, r, "978-1", "U001", "2025-09-20", "2025-09-28")
	assert.NotZero(t, id)
	assert.Equal(t, 1, available(t, r, "978-1"))

	loan, err := r.GetLoan(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusOpen, loan.Status)
	assert.Nil(t, loan.ReturnDate)
	assert.Zero(t, loan.Fine)
	assert.Equal(t, "2025-09-28", loan.DueDate.String())
}

func TestOpenLoan_Unavailable(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)
	seedUser(t, r, "U001")
	openLoan(t, r, "978-1", "U001", "2025-09-20", "2025-09-28")

	_, err := r.OpenLoan(context.Background(), admin, OpenLoanInput{
		ISBN: "978-1", Registration: "U001",
		LoanDate: date(t, "2025-09-21"), DueDate: date(t, "2025-09-29"),
	})
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.Equal(t, 0, available(t, r, "978-1"))
}

func TestOpenLoan_Rejections(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)
	seedUser(t, r, "U001")
	ctx := context.Background()

	in := OpenLoanInput{ISBN: "978-1", Registration: "U001", LoanDate: date(t, "2025-09-20"), DueDate: date(t, "2025-09-28")}

	_, err := r.OpenLoan(ctx, member, in)
	assert.ErrorIs(t, err, ErrForbidden)

	missingBook := in
	missingBook.ISBN = "nope"
	_, err = r.OpenLoan(ctx, admin, missingBook)
	assert.ErrorIs(t, err, ErrBookNotFound)

	missingUser := in
	missingUser.Registration = "ghost"
	_, err = r.OpenLoan(ctx, admin, missingUser)
	assert.ErrorIs(t, err, ErrUserNotFound)

	backwards := in
	backwards.DueDate = date(t, "2025-09-19")
	_, err = r.OpenLoan(ctx, admin, backwards)
	assert.ErrorIs(t, err, ErrInvalidDueDate)

	// 失败的借出不能留下任何痕迹
	assert.Equal(t, 1, available(t, r, "978-1"))
	loans, err := r.ListLoans(ctx, LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

// 借阅人在查询之后被删掉时，外键冲突也要落到 ErrUserNotFound
func TestLoanInsert_MissingUserForeignKey(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)

	err := r.DB.Create(&models.Loan{
		BookISBN:         "978-1",
		UserRegistration: "ghost",
		LoanDate:         date(t, "2025-09-20"),
		DueDate:          date(t, "2025-09-28"),
		Status:           models.LoanStatusOpen,
	}).Error
	require.Error(t, err)
	assert.ErrorIs(t, translateLoanInsert(err), ErrUserNotFound)
}

func TestOpenLoan_SameDayDueIsAllowed(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)
	seedUser(t, r, "U001")
	openLoan(t, r, "978-1", "U001", "2025-09-20", "2025-09-20")
}

func TestReturnLoan_RestoresAvailabilityAndFines(t *testing.T) {
	cases := []struct {
		today string
		fine  float64
	}{
		{"2025-09-28", 0},
		{"2025-09-29", 2},
		{"2025-09-30", 4},
	}
	for _, c := range cases {
		t.Run(c.today, func(t *testing.T) {
			r := newTestRepo(t)
			seedBook(t, r, "978-1", 3)
			seedUser(t, r, "U001")
			id := openLoan(t, r, "978-1", "U001", "2025-09-20", "2025-09-28")
			require.Equal(t, 2, available(t, r, "978-1"))

			r.Now = fixedClock(c.today)
			res, err := r.ReturnLoan(context.Background(), admin, id)
			require.NoError(t, err)
			assert.Equal(t, id, res.LoanID)
			assert.Equal(t, c.today, res.ReturnDate.String())
			assert.Equal(t, c.fine, res.Fine)
			assert.Equal(t, 3, available(t, r, "978-1"))

			loan, err := r.GetLoan(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, models.LoanStatusReturned, loan.Status)
			require.NotNil(t, loan.ReturnDate)
			assert.Equal(t, c.today, loan.ReturnDate.String())
			assert.Equal(t, c.fine, loan.Fine)
		})
	}
}

func TestReturnLoan_Twice(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)
	seedUser(t, r, "U001")
	id := openLoan(t, r, "978-1", "U001", "2025-09-20", "2025-09-28")

	first, err := r.ReturnLoan(context.Background(), admin, id)
	require.NoError(t, err)

	r.Now = fixedClock("2025-10-30")
	_, err = r.ReturnLoan(context.Background(), admin, id)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	loan, err := r.GetLoan(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first.Fine, loan.Fine)
	assert.Equal(t, 1, available(t, r, "978-1"))
}

func TestReturnLoan_Rejections(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.ReturnLoan(context.Background(), admin, 999)
	assert.ErrorIs(t, err, ErrLoanNotFound)

	_, err = r.ReturnLoan(context.Background(), member, 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestIncrementAvailability_OverCapacity(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)

	err := incrementAvailability(r.DB, "978-1")
	assert.ErrorIs(t, err, ErrOverCapacity)
	assert.ErrorIs(t, incrementAvailability(r.DB, "nope"), ErrBookNotFound)
	assert.Equal(t, 1, available(t, r, "978-1"))
}

func TestDecrementAvailability_Floor(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 0)

	assert.ErrorIs(t, decrementAvailability(r.DB, "978-1"), ErrBookUnavailable)
	assert.ErrorIs(t, decrementAvailability(r.DB, "nope"), ErrBookNotFound)
	assert.Equal(t, 0, available(t, r, "978-1"))
}

func TestOpenLoan_ConcurrentLastCopy(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 1)
	seedUser(t, r, "U001")

	in := OpenLoanInput{
		ISBN: "978-1", Registration: "U001",
		LoanDate: date(t, "2025-09-20"), DueDate: date(t, "2025-09-28"),
	}
	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.OpenLoan(context.Background(), admin, in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrBookUnavailable):
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, refused)
	assert.Equal(t, 0, available(t, r, "978-1"))
}

func TestListLoans_Filters(t *testing.T) {
	r := newTestRepo(t)
	seedBook(t, r, "978-1", 2)
	seedBook(t, r, "978-2", 2)
	seedUser(t, r, "U001")
	seedUser(t, r, "U002")
	a := openLoan(t, r, "978-1", "U001", "2025-09-01", "2025-09-10")
	openLoan(t, r, "978-2", "U001", "2025-09-02", "2025-09-10")
	openLoan(t, r, "978-1", "U002", "2025-09-03", "2025-09-10")
	_, err := r.ReturnLoan(context.Background(), admin, a)
	require.NoError(t, err)
	ctx := context.Background()

	all, err := r.ListLoans(ctx, LoanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "2025-09-03", all[0].LoanDate.String())

	open, err := r.ListLoans(ctx, LoanFilter{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	byBook, err := r.ListLoans(ctx, LoanFilter{ISBN: "978-1"})
	require.NoError(t, err)
	assert.Len(t, byBook, 2)

	mine, err := r.ListLoansByUser(ctx, "U001")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = r.ListLoansByUser(ctx, "U404")
	assert.ErrorIs(t, err, ErrNoLoansForUser)
}
