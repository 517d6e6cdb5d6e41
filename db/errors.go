package db

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrNoLoansForUser  = errors.New("no loans found for this user")
	ErrBookUnavailable = errors.New("book unavailable")
	ErrAlreadyReturned = errors.New("loan already returned")
	ErrHasOpenLoans    = errors.New("there are open loans")
	ErrOverCapacity    = errors.New("available copies would exceed total copies")
	ErrDuplicate       = errors.New("record already exists")
	ErrInvalidDueDate  = errors.New("due date is before loan date")
	ErrInvalidRange    = errors.New("start and end dates are required (YYYY-MM-DD)")
	ErrInvalidRole     = errors.New("role must be admin or user")
	ErrInvalidCopies   = errors.New("total copies must be >= 0")
	ErrBadCredentials  = errors.New("incorrect password")
	ErrForbidden       = errors.New("admin only")
)

// Kind 是错误的大类，HTTP 层按它选状态码
type Kind int

const (
	KindStorage Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindForbidden
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "storage"
	}
}

// KindOf 归类；不认识的错误一律算存储故障
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindStorage
	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrLoanNotFound),
		errors.Is(err, ErrNoLoansForUser),
		errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrHasOpenLoans),
		errors.Is(err, ErrOverCapacity),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrLastAdmin):
		return KindConflict
	case errors.Is(err, ErrInvalidDueDate),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidCopies):
		return KindInvalidInput
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrBadCredentials):
		return KindUnauthenticated
	}
	return KindStorage
}

// 唯一约束冲突统一成 ErrDuplicate（需要 gorm.Config.TranslateError）
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// 书行已加排他锁，插入借阅时的外键冲突只可能来自借阅人
func translateLoanInsert(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrUserNotFound
	}
	return err
}
