package models

import "time"

// SchedulerLock is a lease that lets one server instance run a scheduled job
// while others skip it.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Holder    string    `gorm:"size:100;not null" json:"holder"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }
