package models

const BookTable = "books"

type Book struct {
	ISBN        string `gorm:"primaryKey;size:20" json:"isbn"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Authors     string `gorm:"size:255;not null;default:''" json:"authors"`
	Year        int    `json:"year"`
	Category    string `gorm:"size:100;not null;default:''" json:"category"`
	Publisher   string `gorm:"size:100;not null;default:''" json:"publisher"`
	TotalCopies int    `gorm:"not null;check:total_copies >= 0" json:"total_copies"`

	// 只由借出/归还改动
	Available int `gorm:"not null;check:available >= 0 AND available <= total_copies" json:"available"`
}

func (Book) TableName() string { return BookTable }
