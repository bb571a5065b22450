// Package relational implements storage.Storage on top of gorm, covering the
// sqlite, mysql and postgres dialects.
package relational

import (
	"context"
	"errors"
	"time"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists marketplace data through gorm.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// New wraps an open connection. The schema must already be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for maintenance scripts.
func (s *Store) DB() *gorm.DB { return s.db }

var statsColumns = []string{"total_donated", "projects_supported", "lives_impacted", "carbon_offset", "last_updated"}

var projectColumns = []string{
	"title", "description", "short_description", "pillar", "location", "country",
	"goal_amount", "partner_organisation", "partner_logo", "project_image",
	"rating", "is_active", "updated_at",
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrConflict
	}
	return err
}

// Users ----------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return translate(err)
		}
		stats := models.NewUserStats(user.ID, decimal.Zero, 0, time.Now())
		return tx.Create(&stats).Error
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

// Projects -------------------------------------------------------------------

func (s *Store) ListProjects(ctx context.Context, filter storage.ProjectFilter) ([]models.Project, error) {
	query := s.db.WithContext(ctx).Model(&models.Project{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Pillar != "" {
		query = query.Where("pillar = ?", filter.Pillar)
	} else if filter.Country != "" {
		query = query.Where("country = ?", filter.Country)
	}

	projects := make([]models.Project, 0)
	if err := query.Order("id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Store) GetProject(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return models.Project{}, translate(err)
	}
	return project, nil
}

func (s *Store) CreateProject(ctx context.Context, project models.Project) (models.Project, error) {
	project.ID = 0
	project.CurrentAmount = decimal.Zero
	project.Rating = models.DefaultRating
	project.IsActive = true
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return models.Project{}, translate(err)
	}
	return project, nil
}

func (s *Store) SeedProjects(ctx context.Context, projects []models.Project) ([]models.Project, error) {
	if len(projects) == 0 {
		return []models.Project{}, nil
	}
	out := make([]models.Project, len(projects))
	copy(out, projects)
	for i := range out {
		out[i].ID = 0
	}
	if err := s.db.WithContext(ctx).Create(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, project models.Project) (models.Project, error) {
	var updated models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Project
		if err := tx.First(&existing, project.ID).Error; err != nil {
			return translate(err)
		}
		if project.Rating.IsZero() {
			project.Rating = existing.Rating
		}
		project.UpdatedAt = time.Now()

		if err := tx.Model(&existing).Select(projectColumns).Updates(&project).Error; err != nil {
			return translate(err)
		}
		return tx.First(&updated, project.ID).Error
	})
	if err != nil {
		return models.Project{}, err
	}
	return updated, nil
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountProjects(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Project{}).Count(&count).Error
	return count, err
}

// Donations ------------------------------------------------------------------

func (s *Store) CreateDonation(ctx context.Context, donation models.Donation) (models.Donation, error) {
	donation.ID = 0
	if donation.DonationDate.IsZero() {
		donation.DonationDate = time.Now()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Raising the total first takes the project row lock, so concurrent
		// donations to one project queue behind each other.
		res := tx.Model(&models.Project{}).
			Where("id = ?", donation.ProjectID).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", donation.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}

		if err := tx.Create(&donation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return storage.ErrDuplicatePayment
			}
			return err
		}

		return refreshUserStats(tx, donation.UserID)
	})
	if err != nil {
		return models.Donation{}, err
	}
	return donation, nil
}

func (s *Store) GetDonationByPaymentIntent(ctx context.Context, paymentIntentID string) (models.Donation, error) {
	var donation models.Donation
	err := s.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&donation).Error
	if err != nil {
		return models.Donation{}, translate(err)
	}
	return donation, nil
}

func (s *Store) GetUserDonations(ctx context.Context, userID uint) ([]models.Donation, error) {
	return s.listDonations(ctx, "user_id = ?", userID)
}

func (s *Store) GetProjectDonations(ctx context.Context, projectID uint) ([]models.Donation, error) {
	return s.listDonations(ctx, "project_id = ?", projectID)
}

func (s *Store) listDonations(ctx context.Context, cond string, arg uint) ([]models.Donation, error) {
	donations := make([]models.Donation, 0)
	err := s.db.WithContext(ctx).
		Where(cond, arg).
		Order("donation_date DESC, id DESC").
		Find(&donations).Error
	if err != nil {
		return nil, err
	}
	return donations, nil
}

// Impact metrics -------------------------------------------------------------

func (s *Store) GetProjectImpactMetrics(ctx context.Context, projectID uint) ([]models.ImpactMetric, error) {
	metrics := make([]models.ImpactMetric, 0)
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("recorded_at DESC, id DESC").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (s *Store) CreateImpactMetric(ctx context.Context, metric models.ImpactMetric) (models.ImpactMetric, error) {
	metric.ID = 0
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", metric.ProjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return tx.Create(&metric).Error
	})
	if err != nil {
		return models.ImpactMetric{}, err
	}
	return metric, nil
}

// Stats ----------------------------------------------------------------------

type donationTotals struct {
	Total    decimal.Decimal
	Projects int64
	Count    int64
	Donors   int64
}

// refreshUserStats rewrites a donor's stats row from their donation rows.
func refreshUserStats(tx *gorm.DB, userID uint) error {
	var totals donationTotals
	err := tx.Model(&models.Donation{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(DISTINCT project_id) AS projects").
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return err
	}

	stats := models.NewUserStats(userID, totals.Total.Round(2), int(totals.Projects), time.Now())
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(statsColumns),
	}).Create(&stats).Error
}

func (s *Store) GetUserStats(ctx context.Context, userID uint) (models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return models.UserStats{}, translate(err)
	}
	return stats, nil
}

func (s *Store) RecomputeUserStats(ctx context.Context) (int, error) {
	var donorIDs []uint
	err := s.db.WithContext(ctx).
		Raw("SELECT id FROM users UNION SELECT DISTINCT user_id FROM donations").
		Scan(&donorIDs).Error
	if err != nil {
		return 0, err
	}

	for i, id := range donorIDs {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return refreshUserStats(tx, id)
		})
		if err != nil {
			return i, err
		}
	}
	return len(donorIDs), nil
}

func (s *Store) GetGlobalStats(ctx context.Context) (models.GlobalStats, error) {
	var gs models.GlobalStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Project{}).Where("is_active = ?", true).Count(&gs.TotalProjects).Error; err != nil {
		return gs, err
	}

	var totals donationTotals
	err := db.Model(&models.Donation{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count, COUNT(DISTINCT user_id) AS donors").
		Scan(&totals).Error
	if err != nil {
		return gs, err
	}

	gs.TotalDonated = totals.Total.Round(2)
	gs.TotalLivesImpacted = models.LivesImpacted(gs.TotalDonated)
	gs.TotalDonations = totals.Count
	gs.TotalDonors = totals.Donors
	return gs, nil
}

// Locks ----------------------------------------------------------------------

func (s *Store) TryLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	db := s.db.WithContext(ctx)

	res := db.Model(&models.SchedulerLock{}).
		Where("name = ? AND (holder = ? OR expires_at < ?)", name, holder, now).
		Updates(map[string]interface{}{
			"holder":     holder,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SchedulerLock{
		Name:      name,
		Holder:    holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) Unlock(ctx context.Context, name, holder string) error {
	return s.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, holder).
		Delete(&models.SchedulerLock{}).Error
}

// Lifecycle ------------------------------------------------------------------

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
