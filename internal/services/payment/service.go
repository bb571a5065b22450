package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/impactbridge/marketplace/pkg/response"
	"github.com/shopspring/decimal"
)

// Metadata keys attached to every intent and read back from webhooks.
const (
	MetaProjectID  = "projectId"
	MetaDonorEmail = "donorEmail"
)

var (
	minDonation = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
)

// Service turns storefront checkouts into gateway intents and succeeded
// payments into donations.
type Service struct {
	gateway   Gateway
	store     storage.Storage
	donations *services.DonationService
	queue     services.TaskQueue
	cfg       *config.StripeConfig
}

func NewService(gateway Gateway, store storage.Storage, donations *services.DonationService, cfg *config.StripeConfig) *Service {
	return &Service{
		gateway:   gateway,
		store:     store,
		donations: donations,
		cfg:       cfg,
	}
}

// SetQueue sets where verified payments are sent for booking.
func (s *Service) SetQueue(queue services.TaskQueue) {
	s.queue = queue
}

type CreateIntentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	ProjectID  uint            `json:"projectId" binding:"required"`
	DonorEmail string          `json:"donorEmail" binding:"omitempty,email"`
}

type CreateIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type PublicConfig struct {
	PublishableKey string `json:"publishableKey"`
	Currency       string `json:"currency"`
}

func (s *Service) PublicConfig() PublicConfig {
	return PublicConfig{PublishableKey: s.cfg.PublishableKey, Currency: s.cfg.Currency}
}

// ToMinorUnits converts pounds to pence, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts pence back to pounds.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// CreateIntent opens a payment intent for a donation of at least £1.
func (s *Service) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error) {
	if req.Amount.LessThan(minDonation) {
		return nil, response.NewBadRequest("Invalid donation amount")
	}
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, response.NewNotFound("Project not found")
		}
		return nil, err
	}

	metadata := map[string]string{MetaProjectID: strconv.FormatUint(uint64(req.ProjectID), 10)}
	if req.DonorEmail != "" {
		metadata[MetaDonorEmail] = strings.ToLower(strings.TrimSpace(req.DonorEmail))
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentParams{
		AmountMinor: ToMinorUnits(req.Amount),
		Currency:    s.cfg.Currency,
		Metadata:    metadata,
	})
	metrics.RecordPaymentIntent(err == nil)
	if err != nil {
		logger.Error().Err(err).Uint("project_id", req.ProjectID).Msg("payment intent creation failed")
		msg := err.Error()
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			msg = gwErr.Msg
		}
		return nil, response.NewServerError("Error creating payment intent: " + msg)
	}

	logger.Info().
		Str("payment_intent", intent.ID).
		Uint("project_id", req.ProjectID).
		Int64("amount_minor", intent.AmountMinor).
		Msg("payment intent created")

	return &CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// HandleWebhook verifies a gateway delivery and queues succeeded payments.
// Unverifiable payloads yield a 400; processing failures yield an error so
// the gateway redelivers.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("", "rejected")
		logger.Warn().Err(err).Msg("webhook rejected")
		return response.NewBadRequest("Webhook Error: " + err.Error())
	}

	if event.Type != EventPaymentSucceeded || event.PaymentIntent == nil {
		metrics.RecordWebhookEvent(event.Type, "ignored")
		logger.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook event ignored")
		return nil
	}

	pi := event.PaymentIntent
	projectID, err := strconv.ParseUint(pi.Metadata[MetaProjectID], 10, 32)
	if err != nil || projectID == 0 {
		metrics.RecordWebhookEvent(event.Type, "ignored")
		logger.Warn().Str("payment_intent", pi.ID).Msg("succeeded payment has no project metadata")
		return nil
	}

	if s.queue == nil {
		return fmt.Errorf("no task queue configured")
	}
	task := &services.DonationTask{
		EventID:         event.ID,
		PaymentIntentID: pi.ID,
		ProjectID:       uint(projectID),
		DonorEmail:      pi.Metadata[MetaDonorEmail],
		AmountMinor:     pi.AmountMinor,
		Currency:        pi.Currency,
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		metrics.RecordWebhookEvent(event.Type, "failed")
		return fmt.Errorf("queue donation for %s: %w", pi.ID, err)
	}
	return nil
}

// ProcessDonation books a succeeded payment. It is the queue's processor and
// is safe to run more than once for the same payment intent.
func (s *Service) ProcessDonation(ctx context.Context, task *services.DonationTask) error {
	if task.Currency != "" && !strings.EqualFold(task.Currency, s.cfg.Currency) {
		logger.Warn().
			Str("payment_intent", task.PaymentIntentID).
			Str("currency", task.Currency).
			Msg("payment currency differs from configured currency")
	}

	donorID, err := s.resolveDonor(ctx, task.DonorEmail)
	if err != nil {
		return err
	}

	piID := task.PaymentIntentID
	_, err = s.donations.Record(ctx, models.Donation{
		UserID:          donorID,
		ProjectID:       task.ProjectID,
		Amount:          FromMinorUnits(task.AmountMinor),
		Message:         fmt.Sprintf("Donation via Stripe (%s)", piID),
		PaymentIntentID: &piID,
	}, services.SourceWebhook)

	var appErr *response.AppError
	switch {
	case err == nil:
		metrics.RecordWebhookEvent(EventPaymentSucceeded, "processed")
		return nil
	case errors.Is(err, storage.ErrDuplicatePayment):
		metrics.RecordWebhookEvent(EventPaymentSucceeded, "duplicate")
		logger.Info().Str("payment_intent", piID).Msg("payment already recorded, skipping")
		return nil
	case errors.As(err, &appErr) && appErr.HTTPStatus == 404:
		// Redelivery cannot fix a missing project.
		metrics.RecordWebhookEvent(EventPaymentSucceeded, "failed")
		logger.Error().Str("payment_intent", piID).Uint("project_id", task.ProjectID).Msg("payment for unknown project dropped")
		return nil
	default:
		return err
	}
}

func (s *Service) resolveDonor(ctx context.Context, email string) (uint, error) {
	if email == "" {
		return s.cfg.GuestDonorID, nil
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return s.cfg.GuestDonorID, nil
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
