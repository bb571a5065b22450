package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImpactMetric is a free-form measurement reported for a project
type ImpactMetric struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProjectID   uint            `gorm:"index;not null" json:"projectId"`
	MetricType  string          `gorm:"size:100;not null" json:"metricType"` // e.g. lives_impacted, trees_planted
	Value       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	Unit        string          `gorm:"size:50;not null" json:"unit"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	RecordedAt  time.Time       `gorm:"not null" json:"recordedAt"`
}

func (ImpactMetric) TableName() string { return "impact_metrics" }
