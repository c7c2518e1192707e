package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a reporter account. A user owns the missing person reports they
// file and is the only one allowed to mutate or delete them.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`

	MissingPersons []MissingPerson `json:"-" gorm:"foreignKey:ReporterID"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
