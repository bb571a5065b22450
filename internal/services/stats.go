package services

import (
	"context"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
)

type StatsService struct {
	store storage.Storage
}

func NewStatsService(store storage.Storage) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) UserStats(ctx context.Context, userID uint) (models.UserStats, error) {
	st, err := s.store.GetUserStats(ctx, userID)
	return st, storeErr(err, "User stats not found")
}

// Global aggregates are computed from donation rows, not project totals, so
// seeded baseline amounts are not counted.
func (s *StatsService) Global(ctx context.Context) (models.GlobalStats, error) {
	return s.store.GetGlobalStats(ctx)
}
