// Package storage defines the persistence contract for the marketplace.
// Implementations live in the memory and relational subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/impactbridge/marketplace/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("record already exists")
	// ErrDuplicatePayment marks a donation whose payment intent was already
	// recorded. It matches ErrConflict under errors.Is.
	ErrDuplicatePayment = fmt.Errorf("%w: payment intent already recorded", ErrConflict)
)

// ProjectFilter narrows ListProjects. Pillar takes precedence over Country.
type ProjectFilter struct {
	Pillar          string
	Country         string
	IncludeInactive bool
}

// UserStore persists donor accounts.
type UserStore interface {
	// CreateUser also initialises an all-zero stats row for the new user.
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id uint) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// ProjectStore persists the project catalogue.
type ProjectStore interface {
	ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	GetProject(ctx context.Context, id uint) (models.Project, error)
	// CreateProject starts the project at zero raised, default rating, active.
	CreateProject(ctx context.Context, project models.Project) (models.Project, error)
	// UpdateProject replaces the editable fields. CurrentAmount is never
	// written through this path.
	UpdateProject(ctx context.Context, project models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, id uint) error
	// SeedProjects inserts projects verbatim, baseline amounts included.
	SeedProjects(ctx context.Context, projects []models.Project) ([]models.Project, error)
	CountProjects(ctx context.Context) (int64, error)
}

// DonationStore persists donations.
type DonationStore interface {
	// CreateDonation records the donation, raises the project's running
	// total and refreshes the donor's stats as one atomic step.
	CreateDonation(ctx context.Context, donation models.Donation) (models.Donation, error)
	GetDonationByPaymentIntent(ctx context.Context, paymentIntentID string) (models.Donation, error)
	GetUserDonations(ctx context.Context, userID uint) ([]models.Donation, error)
	GetProjectDonations(ctx context.Context, projectID uint) ([]models.Donation, error)
}

// ImpactStore persists impact metrics.
type ImpactStore interface {
	GetProjectImpactMetrics(ctx context.Context, projectID uint) ([]models.ImpactMetric, error)
	CreateImpactMetric(ctx context.Context, metric models.ImpactMetric) (models.ImpactMetric, error)
}

// StatsStore exposes per-user and platform-wide aggregates.
type StatsStore interface {
	GetUserStats(ctx context.Context, userID uint) (models.UserStats, error)
	// RecomputeUserStats rebuilds every donor's stats from donation history
	// and returns how many rows were written.
	RecomputeUserStats(ctx context.Context) (int, error)
	GetGlobalStats(ctx context.Context) (models.GlobalStats, error)
}

// Locker hands out named leases so a scheduled job runs on one instance.
type Locker interface {
	// TryLock takes or renews the lease on name for holder until ttl
	// elapses. It reports false while another holder's lease is live.
	TryLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	// Unlock releases the lease if holder still owns it.
	Unlock(ctx context.Context, name, holder string) error
}

// Storage is the full persistence surface used by the services.
type Storage interface {
	UserStore
	ProjectStore
	DonationStore
	ImpactStore
	StatsStore
	Locker

	Ping(ctx context.Context) error
	Close() error
}
