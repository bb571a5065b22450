package services

import (
	"context"
	"errors"

	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/impactbridge/marketplace/pkg/response"
	"github.com/shopspring/decimal"
)

// Donation origins, used in events and metrics.
const (
	SourceAPI     = "api"
	SourceWebhook = "webhook"
)

// maxMoney is the largest value a decimal(10,2) column holds.
var maxMoney = decimal.RequireFromString("99999999.99")

func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.LessThanOrEqual(maxMoney)
}

type DonationService struct {
	store storage.Storage
	hub   *SSEHub
}

func NewDonationService(store storage.Storage, hub *SSEHub) *DonationService {
	return &DonationService{store: store, hub: hub}
}

type CreateDonationRequest struct {
	UserID             uint            `json:"userId" binding:"required"`
	ProjectID          uint            `json:"projectId" binding:"required"`
	Amount             decimal.Decimal `json:"amount"`
	IsRecurring        bool            `json:"isRecurring"`
	RecurringFrequency string          `json:"recurringFrequency" binding:"omitempty,oneof=monthly quarterly annually"`
	Message            string          `json:"message" binding:"max=1000"`
}

func (r *CreateDonationRequest) validate() error {
	var fields []response.FieldError
	switch {
	case !r.Amount.IsPositive():
		fields = append(fields, fieldErr("amount", "must be greater than 0"))
	case !validMoney(r.Amount):
		fields = append(fields, fieldErr("amount", "must have at most 2 decimal places and fewer than 9 integer digits"))
	}
	if r.IsRecurring && r.RecurringFrequency == "" {
		fields = append(fields, fieldErr("recurringFrequency", "is required for recurring donations"))
	}
	if !r.IsRecurring && r.RecurringFrequency != "" {
		fields = append(fields, fieldErr("recurringFrequency", "is only allowed for recurring donations"))
	}
	if len(fields) > 0 {
		return response.NewValidationError(fields...)
	}
	return nil
}

// Create books a donation submitted through the API.
func (s *DonationService) Create(ctx context.Context, req *CreateDonationRequest) (models.Donation, error) {
	if err := req.validate(); err != nil {
		return models.Donation{}, err
	}
	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return models.Donation{}, storeErr(err, "User not found")
	}

	return s.Record(ctx, models.Donation{
		UserID:             req.UserID,
		ProjectID:          req.ProjectID,
		Amount:             req.Amount,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		Message:            req.Message,
	}, SourceAPI)
}

// Record persists a donation and notifies live subscribers. The store raises
// the project total and refreshes donor stats in the same step.
// A replayed payment intent surfaces as storage.ErrDuplicatePayment.
func (s *DonationService) Record(ctx context.Context, d models.Donation, source string) (models.Donation, error) {
	created, err := s.store.CreateDonation(ctx, d)
	if errors.Is(err, storage.ErrDuplicatePayment) {
		return models.Donation{}, err
	}
	if err != nil {
		return models.Donation{}, storeErr(err, "Project not found")
	}

	metrics.RecordDonation(source, created.Amount)
	logger.Info().
		Uint("donation_id", created.ID).
		Uint("project_id", created.ProjectID).
		Uint("user_id", created.UserID).
		Str("amount", created.Amount.StringFixed(2)).
		Str("source", source).
		Msg("donation recorded")

	if s.hub != nil {
		event := DonationEvent{
			DonationID: created.ID,
			ProjectID:  created.ProjectID,
			Amount:     created.Amount,
			Source:     source,
			At:         created.DonationDate,
		}
		if p, err := s.store.GetProject(ctx, created.ProjectID); err == nil {
			event.ProjectTotal = p.CurrentAmount
		}
		s.hub.Publish(event)
	}
	return created, nil
}

func (s *DonationService) UserDonations(ctx context.Context, userID uint) ([]models.Donation, error) {
	return s.store.GetUserDonations(ctx, userID)
}
