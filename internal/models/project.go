package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Impact pillars a project can belong to.
const (
	PillarHealth       = "health"
	PillarEducation    = "education"
	PillarConservation = "conservation"
)

// DefaultRating is assigned to newly created projects.
var DefaultRating = decimal.RequireFromString("4.5")

// Project represents a fundable development project
type Project struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Title               string          `gorm:"size:255;not null" json:"title"`
	Description         string          `gorm:"type:text;not null" json:"description"`
	ShortDescription    string          `gorm:"size:500;not null" json:"shortDescription"`
	Pillar              string          `gorm:"size:50;not null;index" json:"pillar"`
	Location            string          `gorm:"size:200;not null" json:"location"`
	Country             string          `gorm:"size:100;not null;index" json:"country"`
	GoalAmount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"goalAmount"`
	CurrentAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"currentAmount"`
	PartnerOrganisation string          `gorm:"size:200;not null" json:"partnerOrganisation"`
	PartnerLogo         string          `gorm:"size:500" json:"partnerLogo"`
	ProjectImage        string          `gorm:"size:500" json:"projectImage"`
	Rating              decimal.Decimal `gorm:"type:decimal(2,1);default:4.5" json:"rating"`
	IsActive            bool            `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// IsValidPillar reports whether p is one of the known pillars.
func IsValidPillar(p string) bool {
	switch p {
	case PillarHealth, PillarEducation, PillarConservation:
		return true
	}
	return false
}
