package models

const UserTable = "users"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	Registration string `gorm:"primaryKey;size:50" json:"registration"`
	Name         string `gorm:"size:255;not null" json:"name"`
	NationalID   string `gorm:"size:20;uniqueIndex;not null" json:"national_id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Address      string `gorm:"size:255;not null;default:''" json:"address"`
	Phone        string `gorm:"size:20;not null;default:''" json:"phone"`
	Role         string `gorm:"size:10;not null;default:'user';check:role = 'admin' OR role = 'user'" json:"role"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

func (User) TableName() string { return UserTable }

func ValidRole(role string) bool { return role == RoleAdmin || role == RoleUser }

// Principal is the authenticated caller handed to the core by the auth layer.
type Principal struct {
	Registration string `json:"registration"`
	Role         string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
