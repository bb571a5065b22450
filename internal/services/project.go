package services

import (
	"context"
	"strings"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/impactbridge/marketplace/pkg/response"
	"github.com/shopspring/decimal"
)

var maxRating = decimal.NewFromInt(5)

type ProjectService struct {
	store storage.Storage
}

func NewProjectService(store storage.Storage) *ProjectService {
	return &ProjectService{store: store}
}

type ProjectListQuery struct {
	Pillar          string `form:"pillar"`
	Country         string `form:"country"`
	IncludeInactive bool   `form:"includeInactive"`
}

// ProjectRequest is the body of both create and full update.
type ProjectRequest struct {
	Title               string           `json:"title" binding:"required,max=255"`
	Description         string           `json:"description" binding:"required"`
	ShortDescription    string           `json:"shortDescription" binding:"required,max=500"`
	Pillar              string           `json:"pillar" binding:"required,oneof=health education conservation"`
	Location            string           `json:"location" binding:"required,max=200"`
	Country             string           `json:"country" binding:"required,max=100"`
	GoalAmount          decimal.Decimal  `json:"goalAmount"`
	PartnerOrganisation string           `json:"partnerOrganisation" binding:"required,max=200"`
	PartnerLogo         string           `json:"partnerLogo" binding:"omitempty,url"`
	ProjectImage        string           `json:"projectImage" binding:"omitempty,url"`
	Rating              *decimal.Decimal `json:"rating"`
	IsActive            *bool            `json:"isActive"`
}

type CreateImpactMetricRequest struct {
	MetricType  string          `json:"metricType" binding:"required,max=100"`
	Value       decimal.Decimal `json:"value"`
	Unit        string          `json:"unit" binding:"required,max=50"`
	Description string          `json:"description"`
}

func (r *ProjectRequest) validate() error {
	var fields []response.FieldError
	if !r.GoalAmount.IsPositive() {
		fields = append(fields, fieldErr("goalAmount", "must be greater than 0"))
	} else if !validMoney(r.GoalAmount) {
		fields = append(fields, fieldErr("goalAmount", "must have at most 2 decimal places and fewer than 9 integer digits"))
	}
	if r.Rating != nil && (r.Rating.IsNegative() || r.Rating.GreaterThan(maxRating)) {
		fields = append(fields, fieldErr("rating", "must be between 0 and 5"))
	}
	if len(fields) > 0 {
		return response.NewValidationError(fields...)
	}
	return nil
}

func (r *ProjectRequest) apply(p *models.Project) {
	p.Title = strings.TrimSpace(r.Title)
	p.Description = r.Description
	p.ShortDescription = r.ShortDescription
	p.Pillar = r.Pillar
	p.Location = r.Location
	p.Country = r.Country
	p.GoalAmount = r.GoalAmount
	p.PartnerOrganisation = r.PartnerOrganisation
	p.PartnerLogo = r.PartnerLogo
	p.ProjectImage = r.ProjectImage
	if r.Rating != nil {
		p.Rating = r.Rating.Round(1)
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

// List returns active projects, narrowed by pillar or else by country.
func (s *ProjectService) List(ctx context.Context, q *ProjectListQuery) ([]models.Project, error) {
	return s.store.ListProjects(ctx, storage.ProjectFilter{
		Pillar:          strings.ToLower(strings.TrimSpace(q.Pillar)),
		Country:         strings.TrimSpace(q.Country),
		IncludeInactive: q.IncludeInactive,
	})
}

func (s *ProjectService) Get(ctx context.Context, id uint) (models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	return p, storeErr(err, "Project not found")
}

func (s *ProjectService) Create(ctx context.Context, req *ProjectRequest) (models.Project, error) {
	if err := req.validate(); err != nil {
		return models.Project{}, err
	}

	var p models.Project
	req.apply(&p)
	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return models.Project{}, err
	}

	logger.Info().Uint("project_id", created.ID).Str("title", created.Title).Msg("project created")
	return created, nil
}

// Update replaces the editable fields of a project. The raised amount is
// owned by donation processing and never changes here.
func (s *ProjectService) Update(ctx context.Context, id uint, req *ProjectRequest) (models.Project, error) {
	if err := req.validate(); err != nil {
		return models.Project{}, err
	}

	existing, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, storeErr(err, "Project not found")
	}

	req.apply(&existing)
	updated, err := s.store.UpdateProject(ctx, existing)
	if err != nil {
		return models.Project{}, storeErr(err, "Project not found")
	}
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return storeErr(err, "Project not found")
	}
	logger.Info().Uint("project_id", id).Msg("project deleted")
	return nil
}

// Seed adds the sample catalogue through the regular create path, so every
// seeded project starts at zero raised.
func (s *ProjectService) Seed(ctx context.Context) ([]models.Project, error) {
	samples := models.SampleProjects()
	created := make([]models.Project, 0, len(samples))
	for _, p := range samples {
		c, err := s.store.CreateProject(ctx, p)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	logger.Infof("[Seed] Created %d sample projects", len(created))
	return created, nil
}

// SeedIfEmpty loads the sample catalogue, baseline totals included, into an
// empty store. It reports whether anything was inserted.
func (s *ProjectService) SeedIfEmpty(ctx context.Context) (bool, error) {
	count, err := s.store.CountProjects(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	seeded, err := s.store.SeedProjects(ctx, models.SampleProjects())
	if err != nil {
		return false, err
	}
	logger.Infof("[Seed] Catalogue empty, loaded %d sample projects", len(seeded))
	return true, nil
}

func (s *ProjectService) Donations(ctx context.Context, id uint) ([]models.Donation, error) {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return nil, storeErr(err, "Project not found")
	}
	return s.store.GetProjectDonations(ctx, id)
}

// ImpactMetrics returns the metrics recorded for a project. Unknown projects
// yield an empty list.
func (s *ProjectService) ImpactMetrics(ctx context.Context, id uint) ([]models.ImpactMetric, error) {
	return s.store.GetProjectImpactMetrics(ctx, id)
}

func (s *ProjectService) RecordImpact(ctx context.Context, id uint, req *CreateImpactMetricRequest) (models.ImpactMetric, error) {
	if req.Value.IsNegative() {
		return models.ImpactMetric{}, response.NewValidationError(fieldErr("value", "must not be negative"))
	}
	m, err := s.store.CreateImpactMetric(ctx, models.ImpactMetric{
		ProjectID:   id,
		MetricType:  req.MetricType,
		Value:       req.Value,
		Unit:        req.Unit,
		Description: req.Description,
	})
	return m, storeErr(err, "Project not found")
}
