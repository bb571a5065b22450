package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	livesPerPound  = decimal.RequireFromString("0.1")
	carbonPerPound = decimal.RequireFromString("0.002")
)

// UserStats summarises a donor's giving history
type UserStats struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"uniqueIndex;not null" json:"userId"`
	TotalDonated      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"totalDonated"`
	ProjectsSupported int             `gorm:"not null;default:0" json:"projectsSupported"`
	LivesImpacted     int             `gorm:"not null;default:0" json:"livesImpacted"`
	CarbonOffset      decimal.Decimal `gorm:"type:decimal(5,1);not null;default:0" json:"carbonOffset"`
	LastUpdated       time.Time       `json:"lastUpdated"`
}

func (UserStats) TableName() string { return "user_stats" }

// GlobalStats is derived on request and never persisted.
type GlobalStats struct {
	TotalProjects      int64           `json:"totalProjects"`
	TotalDonated       decimal.Decimal `json:"totalDonated"`
	TotalLivesImpacted int64           `json:"totalLivesImpacted"`
	TotalDonations     int64           `json:"totalDonations"`
	TotalDonors        int64           `json:"totalDonors"`
}

// LivesImpacted applies the one-life-per-£10 heuristic, rounding down.
func LivesImpacted(total decimal.Decimal) int64 {
	return total.Mul(livesPerPound).Floor().IntPart()
}

// CarbonOffset estimates tonnes offset, rounded to one decimal place.
func CarbonOffset(total decimal.Decimal) decimal.Decimal {
	return total.Mul(carbonPerPound).Round(1)
}

// NewUserStats derives a stats row from a donor's totals.
func NewUserStats(userID uint, total decimal.Decimal, projects int, now time.Time) UserStats {
	return UserStats{
		UserID:            userID,
		TotalDonated:      total,
		ProjectsSupported: projects,
		LivesImpacted:     int(LivesImpacted(total)),
		CarbonOffset:      CarbonOffset(total),
		LastUpdated:       now,
	}
}
