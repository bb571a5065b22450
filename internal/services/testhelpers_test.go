package services

import (
	"context"
	"errors"
	"testing"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage/memory"
	"github.com/impactbridge/marketplace/pkg/response"
	"github.com/shopspring/decimal"
)

func httpStatus(err error) int {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return 0
}

func validProjectRequest() *ProjectRequest {
	return &ProjectRequest{
		Title:               "Community Health Workers",
		Description:         "Training and equipping health workers in rural villages.",
		ShortDescription:    "Training rural health workers",
		Pillar:              models.PillarHealth,
		Location:            "Kigali",
		Country:             "Rwanda",
		GoalAmount:          decimal.NewFromInt(30000),
		PartnerOrganisation: "Partners In Health",
	}
}

func mustUser(t *testing.T, store *memory.Store, email string) models.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), models.User{
		Username: email,
		Email:    email,
		UserType: models.UserTypePrivateDonor,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return u
}

func mustProject(t *testing.T, store *memory.Store) models.Project {
	t.Helper()
	p, err := NewProjectService(store).Create(context.Background(), validProjectRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}
