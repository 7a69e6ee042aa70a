package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the stored account record. PasswordHash never leaves the service;
// use View to build the external representation.
type User struct {
	ID           string    `json:"-" gorm:"primaryKey;type:varchar(24)"`
	Email        string    `json:"-" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string    `json:"-" gorm:"type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(255);not null"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserView is the public shape of a user.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// View returns the external representation of u.
func (u *User) View() UserView {
	return UserView{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

// NewID returns a fresh user identifier. Every store backend uses the
// MongoDB ObjectID hex format so ids stay portable between drivers.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed user identifier.
func IsValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
