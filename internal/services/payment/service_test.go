package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/storage/memory"
	"github.com/impactbridge/marketplace/pkg/response"
	"github.com/shopspring/decimal"
)

type fakeGateway struct {
	intents  []IntentParams
	intentFn func(IntentParams) (*Intent, error)
	event    *Event
	parseErr error
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, p IntentParams) (*Intent, error) {
	g.intents = append(g.intents, p)
	if g.intentFn != nil {
		return g.intentFn(p)
	}
	return &Intent{ID: "pi_test", ClientSecret: "pi_test_secret", AmountMinor: p.AmountMinor, Currency: p.Currency}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*Event, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

type fixture struct {
	svc     *Service
	gw      *fakeGateway
	store   *memory.Store
	project models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, models.User{Username: "guest", Email: "guest@example.com", UserType: models.UserTypePrivateDonor}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	p, err := store.CreateProject(ctx, models.Project{
		Title:      "Solar Schools",
		Pillar:     models.PillarEducation,
		Country:    "Tanzania",
		GoalAmount: decimal.NewFromInt(20000),
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	gw := &fakeGateway{}
	cfg := &config.StripeConfig{Currency: "gbp", PublishableKey: "pk_test", GuestDonorID: 1}
	svc := NewService(gw, store, services.NewDonationService(store, nil), cfg)
	svc.SetQueue(services.NewSyncQueue(svc.ProcessDonation))
	return &fixture{svc: svc, gw: gw, store: store, project: p}
}

func succeeded(eventID, piID string, projectID string, amount int64, email string) *Event {
	md := map[string]string{MetaProjectID: projectID}
	if email != "" {
		md[MetaDonorEmail] = email
	}
	return &Event{
		ID:   eventID,
		Type: EventPaymentSucceeded,
		PaymentIntent: &PaymentIntent{
			ID:          piID,
			AmountMinor: amount,
			Currency:    "gbp",
			Metadata:    md,
		},
	}
}

func statusOf(err error) int {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return 0
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1", 100},
		{"25.50", 2550},
		{"10.005", 1001},
		{"19.994", 1999},
	}
	for _, tt := range tests {
		if got := ToMinorUnits(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("ToMinorUnits(%s) = %d, expected %d", tt.in, got, tt.want)
		}
	}
	if got := FromMinorUnits(2550); !got.Equal(decimal.RequireFromString("25.50")) {
		t.Errorf("FromMinorUnits(2550) = %s, expected 25.50", got)
	}
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateIntent(ctx, &CreateIntentRequest{
		Amount:     decimal.RequireFromString("25.50"),
		ProjectID:  f.project.ID,
		DonorEmail: "Donor@Example.com",
	})
	if err != nil {
		t.Fatalf("CreateIntent() error = %v", err)
	}
	if resp.ClientSecret != "pi_test_secret" || resp.PaymentIntentID != "pi_test" {
		t.Errorf("unexpected response %+v", resp)
	}

	if len(f.gw.intents) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(f.gw.intents))
	}
	p := f.gw.intents[0]
	if p.AmountMinor != 2550 || p.Currency != "gbp" {
		t.Errorf("intent params = %d %s, expected 2550 gbp", p.AmountMinor, p.Currency)
	}
	if p.Metadata[MetaProjectID] != "1" || p.Metadata[MetaDonorEmail] != "donor@example.com" {
		t.Errorf("metadata = %v", p.Metadata)
	}
}

func TestCreateIntentRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, &CreateIntentRequest{Amount: decimal.RequireFromString("0.99"), ProjectID: f.project.ID})
	if statusOf(err) != http.StatusBadRequest {
		t.Errorf("amount below 1: error = %v, expected 400", err)
	}

	_, err = f.svc.CreateIntent(ctx, &CreateIntentRequest{Amount: decimal.NewFromInt(5), ProjectID: 999})
	if statusOf(err) != http.StatusNotFound {
		t.Errorf("unknown project: error = %v, expected 404", err)
	}

	if len(f.gw.intents) != 0 {
		t.Errorf("gateway should not be called for rejected requests")
	}
}

func TestCreateIntentGatewayError(t *testing.T) {
	f := newFixture(t)
	f.gw.intentFn = func(IntentParams) (*Intent, error) {
		return nil, &GatewayError{Msg: "Your card was declined"}
	}

	_, err := f.svc.CreateIntent(context.Background(), &CreateIntentRequest{Amount: decimal.NewFromInt(5), ProjectID: f.project.ID})
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", appErr.HTTPStatus)
	}
	if appErr.Message != "Error creating payment intent: Your card was declined" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestHandleWebhookRecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.event = succeeded("evt_1", "pi_1", "1", 2500, "")

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleWebhook(ctx, []byte("{}"), "sig"); err != nil {
			t.Fatalf("HandleWebhook() delivery %d error = %v", i+1, err)
		}
	}

	p, _ := f.store.GetProject(ctx, f.project.ID)
	if !p.CurrentAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("CurrentAmount = %s, expected 25", p.CurrentAmount)
	}

	d, err := f.store.GetDonationByPaymentIntent(ctx, "pi_1")
	if err != nil {
		t.Fatalf("GetDonationByPaymentIntent() error = %v", err)
	}
	if d.UserID != 1 {
		t.Errorf("UserID = %d, expected guest donor 1", d.UserID)
	}
	if d.Message != "Donation via Stripe (pi_1)" {
		t.Errorf("Message = %q", d.Message)
	}
}

func TestHandleWebhookCreditsKnownDonor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	donor, err := f.store.CreateUser(ctx, models.User{Username: "amara", Email: "amara@example.com", UserType: models.UserTypePrivateDonor})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	f.gw.event = succeeded("evt_2", "pi_2", "1", 1000, "amara@example.com")

	if err := f.svc.HandleWebhook(ctx, []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}

	stats, err := f.store.GetUserStats(ctx, donor.ID)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if !stats.TotalDonated.Equal(decimal.NewFromInt(10)) || stats.ProjectsSupported != 1 {
		t.Errorf("stats = %s/%d, expected 10/1", stats.TotalDonated, stats.ProjectsSupported)
	}
}

func TestHandleWebhookIgnoresEvents(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
	}{
		{"other type", &Event{ID: "evt_3", Type: "charge.refunded"}},
		{"missing project", succeeded("evt_4", "pi_4", "", 1000, "")},
		{"non-numeric project", succeeded("evt_5", "pi_5", "abc", 1000, "")},
		{"unknown project", succeeded("evt_6", "pi_6", "404", 1000, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gw.event = tt.event
			if err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
				t.Errorf("HandleWebhook() error = %v, expected nil", err)
			}
			p, _ := f.store.GetProject(context.Background(), f.project.ID)
			if !p.CurrentAmount.IsZero() {
				t.Errorf("CurrentAmount = %s, expected 0", p.CurrentAmount)
			}
		})
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	f := newFixture(t)
	f.gw.parseErr = ErrInvalidSignature

	err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "bogus")
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("error = %v, expected 400", err)
	}
	var appErr *response.AppError
	errors.As(err, &appErr)
	if appErr.Message != "Webhook Error: invalid webhook signature" {
		t.Errorf("message = %q", appErr.Message)
	}
}

type failingQueue struct{ *services.SyncQueue }

func (failingQueue) Enqueue(context.Context, *services.DonationTask) error {
	return errors.New("redis down")
}

func TestHandleWebhookQueueFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.SetQueue(failingQueue{})
	f.gw.event = succeeded("evt_7", "pi_7", "1", 1000, "")

	if err := f.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err == nil {
		t.Error("expected error when the queue rejects the task")
	}
}

func TestPublicConfig(t *testing.T) {
	f := newFixture(t)
	got := f.svc.PublicConfig()
	if got.PublishableKey != "pk_test" || got.Currency != "gbp" {
		t.Errorf("PublicConfig() = %+v", got)
	}
}
