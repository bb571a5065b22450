package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recurring donation frequencies
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnually  = "annually"
)

// Donation is an immutable record of money pledged to a project
type Donation struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"index;not null" json:"userId"`
	ProjectID          uint            `gorm:"index;not null" json:"projectId"`
	Amount             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	IsRecurring        bool            `gorm:"not null;default:false" json:"isRecurring"`
	RecurringFrequency string          `gorm:"size:20" json:"recurringFrequency,omitempty"`
	Message            string          `gorm:"type:text" json:"message,omitempty"`
	// PaymentIntentID links gateway-originated donations to their intent.
	// A nil value is allowed any number of times by the unique index.
	PaymentIntentID *string   `gorm:"size:255;uniqueIndex" json:"paymentIntentId,omitempty"`
	DonationDate    time.Time `gorm:"not null;index" json:"donationDate"`
}

func (Donation) TableName() string { return "donations" }

// IsValidFrequency reports whether f is an accepted recurring frequency.
func IsValidFrequency(f string) bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}
