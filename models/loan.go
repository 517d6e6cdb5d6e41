package models

const LoanTable = "loans"

type LoanStatus string

const (
	LoanStatusOpen     LoanStatus = "open"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan names a book and a user; it does not own them. A loan is mutated once,
// when it is returned.
type Loan struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookISBN         string     `gorm:"size:20;not null;index" json:"book_isbn"`
	UserRegistration string     `gorm:"size:50;not null;index" json:"user_registration"`
	LoanDate         Date       `gorm:"type:date;not null;index" json:"loan_date"`
	DueDate          Date       `gorm:"type:date;not null" json:"due_date"`
	ReturnDate       *Date      `gorm:"type:date" json:"return_date"`
	Status           LoanStatus `gorm:"size:20;not null;default:'open';check:(status = 'open' AND return_date IS NULL) OR (status = 'returned' AND return_date IS NOT NULL)" json:"status"`
	Fine             float64    `gorm:"type:decimal(10,2);not null;default:0;check:fine >= 0" json:"fine"`

	Book *Book `gorm:"foreignKey:BookISBN;references:ISBN;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	User *User `gorm:"foreignKey:UserRegistration;references:Registration;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Loan) TableName() string { return LoanTable }

func (l *Loan) IsOpen() bool { return l.Status == LoanStatusOpen }
