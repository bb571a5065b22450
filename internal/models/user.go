package models

import (
	"time"
)

// User types offered at sign-up. The server treats them identically.
const (
	UserTypeTourOperator      = "tour_operator"
	UserTypeCommercialPartner = "commercial_partner"
	UserTypePrivateDonor      = "private_donor"
)

// User represents a registered donor account
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"` // bcrypt hash
	UserType    string    `gorm:"size:50;not null" json:"userType"`
	CompanyName string    `gorm:"size:200" json:"companyName"`
	FirstName   string    `gorm:"size:100" json:"firstName"`
	LastName    string    `gorm:"size:100" json:"lastName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (User) TableName() string { return "users" }
