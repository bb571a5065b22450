// Package memory provides an in-process Storage used for local development
// and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

// Store is an in-memory implementation of storage.Storage. It is safe for
// concurrent use; every compound write runs under a single write lock.
type Store struct {
	mu sync.RWMutex

	nextUserID     uint
	nextProjectID  uint
	nextDonationID uint
	nextMetricID   uint
	nextStatsID    uint

	users           map[uint]models.User
	usersByEmail    map[string]uint
	usersByUsername map[string]uint
	projects        map[uint]models.Project
	donations       []models.Donation
	donationsByPI   map[string]uint
	metrics         []models.ImpactMetric
	stats           map[uint]models.UserStats
	locks           map[string]models.SchedulerLock

	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextUserID:      1,
		nextProjectID:   1,
		nextDonationID:  1,
		nextMetricID:    1,
		nextStatsID:     1,
		users:           make(map[uint]models.User),
		usersByEmail:    make(map[string]uint),
		usersByUsername: make(map[string]uint),
		projects:        make(map[uint]models.Project),
		donationsByPI:   make(map[string]uint),
		stats:           make(map[uint]models.UserStats),
		locks:           make(map[string]models.SchedulerLock),
		now:             time.Now,
	}
}

// NewSeeded creates a store pre-populated with the sample catalogue.
func NewSeeded() *Store {
	s := New()
	_, _ = s.SeedProjects(context.Background(), models.SampleProjects())
	return s
}

// Users ----------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return models.User{}, storage.ErrConflict
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return models.User{}, storage.ErrConflict
	}

	user.ID = s.nextUserID
	s.nextUserID++
	user.CreatedAt = s.now()
	s.users[user.ID] = user
	s.usersByEmail[email] = user.ID
	s.usersByUsername[user.Username] = user.ID

	s.putStatsLocked(models.NewUserStats(user.ID, decimal.Zero, 0, user.CreatedAt))
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id uint) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// Projects -------------------------------------------------------------------

func (s *Store) ListProjects(_ context.Context, filter storage.ProjectFilter) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Pillar != "" {
			if p.Pillar != filter.Pillar {
				continue
			}
		} else if filter.Country != "" && p.Country != filter.Country {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProject(_ context.Context, id uint) (models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProject(_ context.Context, project models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project.CurrentAmount = decimal.Zero
	project.Rating = models.DefaultRating
	project.IsActive = true
	return s.insertProjectLocked(project), nil
}

func (s *Store) SeedProjects(_ context.Context, projects []models.Project) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, s.insertProjectLocked(p))
	}
	return out, nil
}

func (s *Store) insertProjectLocked(p models.Project) models.Project {
	p.ID = s.nextProjectID
	s.nextProjectID++
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = p
	return p
}

func (s *Store) UpdateProject(_ context.Context, project models.Project) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return models.Project{}, storage.ErrNotFound
	}

	project.CurrentAmount = existing.CurrentAmount
	project.CreatedAt = existing.CreatedAt
	if project.Rating.IsZero() {
		project.Rating = existing.Rating
	}
	project.UpdatedAt = s.now()
	s.projects[project.ID] = project
	return project, nil
}

func (s *Store) DeleteProject(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) CountProjects(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.projects)), nil
}

// Donations ------------------------------------------------------------------

func (s *Store) CreateDonation(_ context.Context, donation models.Donation) (models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[donation.ProjectID]
	if !ok {
		return models.Donation{}, storage.ErrNotFound
	}
	if donation.PaymentIntentID != nil {
		if _, exists := s.donationsByPI[*donation.PaymentIntentID]; exists {
			return models.Donation{}, storage.ErrDuplicatePayment
		}
	}

	donation.ID = s.nextDonationID
	s.nextDonationID++
	if donation.DonationDate.IsZero() {
		donation.DonationDate = s.now()
	}
	s.donations = append(s.donations, donation)
	if donation.PaymentIntentID != nil {
		s.donationsByPI[*donation.PaymentIntentID] = donation.ID
	}

	project.CurrentAmount = project.CurrentAmount.Add(donation.Amount)
	s.projects[project.ID] = project

	s.refreshStatsLocked(donation.UserID)
	return donation, nil
}

func (s *Store) GetDonationByPaymentIntent(_ context.Context, paymentIntentID string) (models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.donationsByPI[paymentIntentID]
	if !ok {
		return models.Donation{}, storage.ErrNotFound
	}
	for _, d := range s.donations {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Donation{}, storage.ErrNotFound
}

func (s *Store) GetUserDonations(_ context.Context, userID uint) ([]models.Donation, error) {
	return s.filterDonations(func(d models.Donation) bool { return d.UserID == userID }), nil
}

func (s *Store) GetProjectDonations(_ context.Context, projectID uint) ([]models.Donation, error) {
	return s.filterDonations(func(d models.Donation) bool { return d.ProjectID == projectID }), nil
}

// filterDonations returns matches newest first.
func (s *Store) filterDonations(match func(models.Donation) bool) []models.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Donation, 0)
	for i := len(s.donations) - 1; i >= 0; i-- {
		if match(s.donations[i]) {
			out = append(out, s.donations[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DonationDate.After(out[j].DonationDate)
	})
	return out
}

// Impact metrics -------------------------------------------------------------

func (s *Store) GetProjectImpactMetrics(_ context.Context, projectID uint) ([]models.ImpactMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ImpactMetric, 0)
	for _, m := range s.metrics {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}

func (s *Store) CreateImpactMetric(_ context.Context, metric models.ImpactMetric) (models.ImpactMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[metric.ProjectID]; !ok {
		return models.ImpactMetric{}, storage.ErrNotFound
	}
	metric.ID = s.nextMetricID
	s.nextMetricID++
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = s.now()
	}
	s.metrics = append(s.metrics, metric)
	return metric, nil
}

// Stats ----------------------------------------------------------------------

func (s *Store) GetUserStats(_ context.Context, userID uint) (models.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	if !ok {
		return models.UserStats{}, storage.ErrNotFound
	}
	return st, nil
}

func (s *Store) RecomputeUserStats(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	donors := make(map[uint]struct{}, len(s.users))
	for id := range s.users {
		donors[id] = struct{}{}
	}
	for _, d := range s.donations {
		donors[d.UserID] = struct{}{}
	}
	for id := range donors {
		s.refreshStatsLocked(id)
	}
	return len(donors), nil
}

func (s *Store) GetGlobalStats(_ context.Context) (models.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gs models.GlobalStats
	for _, p := range s.projects {
		if p.IsActive {
			gs.TotalProjects++
		}
	}

	total := decimal.Zero
	donors := make(map[uint]struct{})
	for _, d := range s.donations {
		total = total.Add(d.Amount)
		donors[d.UserID] = struct{}{}
	}
	gs.TotalDonated = total
	gs.TotalLivesImpacted = models.LivesImpacted(total)
	gs.TotalDonations = int64(len(s.donations))
	gs.TotalDonors = int64(len(donors))
	return gs, nil
}

func (s *Store) refreshStatsLocked(userID uint) {
	total := decimal.Zero
	projects := make(map[uint]struct{})
	for _, d := range s.donations {
		if d.UserID != userID {
			continue
		}
		total = total.Add(d.Amount)
		projects[d.ProjectID] = struct{}{}
	}
	s.putStatsLocked(models.NewUserStats(userID, total, len(projects), s.now()))
}

func (s *Store) putStatsLocked(st models.UserStats) {
	if existing, ok := s.stats[st.UserID]; ok {
		st.ID = existing.ID
	} else {
		st.ID = s.nextStatsID
		s.nextStatsID++
	}
	s.stats[st.UserID] = st
}

// Locks ----------------------------------------------------------------------

func (s *Store) TryLock(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if l, ok := s.locks[name]; ok && l.Holder != holder && l.ExpiresAt.After(now) {
		return false, nil
	}
	s.locks[name] = models.SchedulerLock{Name: name, Holder: holder, LockedAt: now, ExpiresAt: now.Add(ttl)}
	return true, nil
}

func (s *Store) Unlock(_ context.Context, name, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.locks[name]; ok && l.Holder == holder {
		delete(s.locks, name)
	}
	return nil
}

// Lifecycle ------------------------------------------------------------------

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
