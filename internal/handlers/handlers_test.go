package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/middleware"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/internal/services/payment"
	"github.com/impactbridge/marketplace/internal/storage/memory"
	"github.com/impactbridge/marketplace/internal/utils"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("handler-test-secret")
}

type stubGateway struct {
	mu     sync.Mutex
	intent []payment.IntentParams
	event  *payment.Event
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, p payment.IntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intent = append(g.intent, p)
	return &payment.Intent{ID: "pi_stub", ClientSecret: "pi_stub_secret_123", AmountMinor: p.AmountMinor, Currency: p.Currency}, nil
}

func (g *stubGateway) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	gw     *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	hub := services.NewSSEHub()
	gw := &stubGateway{}

	projects := services.NewProjectService(store)
	auth := services.NewAuthService(store, &config.JWTConfig{ExpireHour: 1})
	donations := services.NewDonationService(store, hub)
	stats := services.NewStatsService(store)
	payments := payment.NewService(gw, store, donations, &config.StripeConfig{Currency: "gbp", PublishableKey: "pk_test_x", GuestDonorID: 1})
	queue := services.NewSyncQueue(payments.ProcessDonation)
	payments.SetQueue(queue)

	ph := NewProjectHandler(projects)
	uh := NewUserHandler(auth, donations, stats)
	dh := NewDonationHandler(donations, stats)
	pay := NewPaymentHandler(payments)
	hh := NewHealthHandler(store, queue, hub)

	r := gin.New()
	r.GET("/health", hh.CheckHealth)
	r.GET("/metrics", Metrics())
	api := r.Group("/api", middleware.OptionalAuth())
	api.GET("/projects", ph.List)
	api.POST("/projects", ph.Create)
	api.POST("/projects/seed", ph.Seed)
	api.GET("/projects/:id", ph.GetByID)
	api.PUT("/projects/:id", ph.Update)
	api.DELETE("/projects/:id", ph.Delete)
	api.GET("/projects/:id/donations", ph.Donations)
	api.GET("/projects/:id/impact", ph.Impact)
	api.POST("/projects/:id/impact", ph.RecordImpact)
	api.POST("/users", uh.Create)
	api.GET("/users/:id/donations", uh.Donations)
	api.GET("/users/:id/stats", uh.Stats)
	api.POST("/auth/login", uh.Login)
	api.GET("/auth/me", middleware.AuthRequired(), uh.GetCurrentUser)
	api.POST("/donations", dh.Create)
	api.GET("/stats/global", dh.GlobalStats)
	api.POST("/create-payment-intent", pay.CreateIntent)
	api.POST("/webhooks/stripe", pay.Webhook)
	api.GET("/payments/config", pay.Config)

	return &testEnv{router: r, store: store, gw: gw}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func projectBody(pillar, country string) map[string]interface{} {
	return map[string]interface{}{
		"title":               "Project " + pillar + " " + country,
		"description":         "A long description",
		"shortDescription":    "Short",
		"pillar":              pillar,
		"location":            "Somewhere",
		"country":             country,
		"goalAmount":          "25000",
		"partnerOrganisation": "Local Partner",
	}
}

type projectDTO struct {
	ID            uint            `json:"id"`
	Pillar        string          `json:"pillar"`
	Country       string          `json:"country"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Rating        decimal.Decimal `json:"rating"`
	IsActive      bool            `json:"isActive"`
}

func (e *testEnv) createProject(t *testing.T, pillar, country string) projectDTO {
	t.Helper()
	w, env := e.do(t, "POST", "/api/projects", projectBody(pillar, country))
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: status %d, body %s", w.Code, w.Body.String())
	}
	var p projectDTO
	decode(t, env.Data, &p)
	return p
}

func (e *testEnv) createUser(t *testing.T, email string) uint {
	t.Helper()
	w, env := e.do(t, "POST", "/api/users", map[string]interface{}{
		"username": email,
		"email":    email,
		"password": "hunter22",
		"userType": "private_donor",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: status %d, body %s", w.Code, w.Body.String())
	}
	var u struct {
		ID uint `json:"id"`
	}
	decode(t, env.Data, &u)
	return u.ID
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
