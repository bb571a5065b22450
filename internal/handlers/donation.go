package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/pkg/response"
)

type DonationHandler struct {
	donationService *services.DonationService
	statsService    *services.StatsService
}

func NewDonationHandler(donationService *services.DonationService, statsService *services.StatsService) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
		statsService:    statsService,
	}
}

// Create books a donation
// POST /api/donations
func (h *DonationHandler) Create(c *gin.Context) {
	var req services.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	donation, err := h.donationService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, donation)
}

// GlobalStats returns platform-wide totals
// GET /api/stats/global
func (h *DonationHandler) GlobalStats(c *gin.Context) {
	stats, err := h.statsService.Global(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
