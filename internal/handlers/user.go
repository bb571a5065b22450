package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/middleware"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/pkg/response"
)

type UserHandler struct {
	authService     *services.AuthService
	donationService *services.DonationService
	statsService    *services.StatsService
}

func NewUserHandler(authService *services.AuthService, donationService *services.DonationService, statsService *services.StatsService) *UserHandler {
	return &UserHandler{
		authService:     authService,
		donationService: donationService,
		statsService:    statsService,
	}
}

// Create registers a donor account
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login handles user login
// POST /api/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// Donations lists a user's donations, newest first
// GET /api/users/:id/donations
func (h *UserHandler) Donations(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	donations, err := h.donationService.UserDonations(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, donations)
}

// Stats returns a user's giving summary
// GET /api/users/:id/stats
func (h *UserHandler) Stats(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	stats, err := h.statsService.UserStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
