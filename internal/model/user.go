package model

import "golang.org/x/crypto/bcrypt"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
)

// User represents an authenticated operator. Every mutating call records the
// acting user's ID on the resulting rows.
type User struct {
	BaseModel
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string   `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string   `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Role         UserRole `gorm:"type:varchar(20);default:cashier" json:"role" validate:"omitempty,oneof=admin cashier"`
	IsActive     bool     `gorm:"default:true" json:"is_active"`
	TokenVersion string   `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
