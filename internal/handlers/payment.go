package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/services/payment"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/impactbridge/marketplace/pkg/response"
)

// maxWebhookBody caps webhook payloads read into memory.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	paymentService *payment.Service
}

func NewPaymentHandler(paymentService *payment.Service) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntent opens a payment intent for the storefront checkout
// POST /api/create-payment-intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req payment.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	resp, err := h.paymentService.CreateIntent(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Webhook receives signed gateway events
// POST /api/webhooks/stripe
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		logger.Warn().Err(err).Msg("webhook body unreadable")
		response.BadRequest(c, "Webhook Error: "+err.Error())
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		logger.Error().Err(err).Str("request_id", logger.RequestID(c)).Msg("webhook handling failed")
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"received": true})
}

// Config returns the publishable key for the storefront
// GET /api/payments/config
func (h *PaymentHandler) Config(c *gin.Context) {
	response.Success(c, h.paymentService.PublicConfig())
}
