// Package storagetest holds behaviour checks shared by every storage.Storage
// implementation.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/impactbridge/marketplace/internal/models"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) storage.Storage

// Run executes the full behaviour suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"UserLifecycle", testUserLifecycle},
		{"DuplicateUser", testDuplicateUser},
		{"ProjectDefaults", testProjectDefaults},
		{"ProjectFilters", testProjectFilters},
		{"UpdateProject", testUpdateProject},
		{"DeleteProject", testDeleteProject},
		{"SeedProjects", testSeedProjects},
		{"DonationRaisesProjectTotal", testDonationRaisesProjectTotal},
		{"DonationUnknownProject", testDonationUnknownProject},
		{"DuplicatePaymentIntent", testDuplicatePaymentIntent},
		{"UserStatsFollowHistory", testUserStatsFollowHistory},
		{"GlobalStats", testGlobalStats},
		{"ConcurrentDonations", testConcurrentDonations},
		{"ImpactMetrics", testImpactMetrics},
		{"RecomputeUserStats", testRecomputeUserStats},
		{"SchedulerLock", testSchedulerLock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleProject(pillar, country string) models.Project {
	return models.Project{
		Title:               "Test " + pillar + " project",
		Description:         "A project used in tests.",
		ShortDescription:    "Test project",
		Pillar:              pillar,
		Location:            "Somewhere",
		Country:             country,
		GoalAmount:          dec("1000"),
		PartnerOrganisation: "Partner",
	}
}

func mustCreateProject(t *testing.T, s storage.Storage, pillar, country string) models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), sampleProject(pillar, country))
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func mustCreateUser(t *testing.T, s storage.Storage, username, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		Username: username,
		Email:    email,
		Password: "hash",
		UserType: models.UserTypePrivateDonor,
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func mustDonate(t *testing.T, s storage.Storage, userID, projectID uint, amount string) models.Donation {
	t.Helper()
	d, err := s.CreateDonation(context.Background(), models.Donation{
		UserID:    userID,
		ProjectID: projectID,
		Amount:    dec(amount),
	})
	if err != nil {
		t.Fatalf("CreateDonation() error = %v", err)
	}
	return d
}

func testUserLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "amani", "amani@example.com")
	if u.ID == 0 {
		t.Fatal("expected user id to be assigned")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Username != "amani" {
		t.Errorf("Username = %q, expected amani", got.Username)
	}

	byEmail, err := s.GetUserByEmail(ctx, "amani@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetUserByEmail() id = %d, expected %d", byEmail.ID, u.ID)
	}

	stats, err := s.GetUserStats(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserStats() for new user error = %v", err)
	}
	if !stats.TotalDonated.IsZero() || stats.ProjectsSupported != 0 {
		t.Errorf("new user stats = %+v, expected zeros", stats)
	}

	if _, err := s.GetUser(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, expected ErrNotFound", err)
	}
	if _, err := s.GetUserStats(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserStats(missing) error = %v, expected ErrNotFound", err)
	}
}

func testDuplicateUser(t *testing.T, s storage.Storage) {
	mustCreateUser(t, s, "amani", "amani@example.com")
	_, err := s.CreateUser(context.Background(), models.User{
		Username: "amani",
		Email:    "amani@example.com",
		Password: "hash",
		UserType: models.UserTypePrivateDonor,
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("CreateUser(duplicate) error = %v, expected ErrConflict", err)
	}
}

func testProjectDefaults(t *testing.T, s storage.Storage) {
	in := sampleProject(models.PillarHealth, "Kenya")
	in.CurrentAmount = dec("500")
	in.Rating = dec("1.0")

	p, err := s.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if !p.CurrentAmount.IsZero() {
		t.Errorf("CurrentAmount = %s, expected 0", p.CurrentAmount)
	}
	if !p.Rating.Equal(dec("4.5")) {
		t.Errorf("Rating = %s, expected 4.5", p.Rating)
	}
	if !p.IsActive {
		t.Error("expected new project to be active")
	}
}

func testProjectFilters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreateProject(t, s, models.PillarHealth, "Kenya")
	mustCreateProject(t, s, models.PillarEducation, "Kenya")
	mustCreateProject(t, s, models.PillarHealth, "Malawi")
	hidden := mustCreateProject(t, s, models.PillarHealth, "Ghana")
	hidden.IsActive = false
	if _, err := s.UpdateProject(ctx, hidden); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	tests := []struct {
		name     string
		filter   storage.ProjectFilter
		expected int
	}{
		{"all active", storage.ProjectFilter{}, 3},
		{"health only", storage.ProjectFilter{Pillar: models.PillarHealth}, 2},
		{"kenya only", storage.ProjectFilter{Country: "Kenya"}, 2},
		{"pillar wins over country", storage.ProjectFilter{Pillar: models.PillarEducation, Country: "Malawi"}, 1},
		{"include inactive", storage.ProjectFilter{Pillar: models.PillarHealth, IncludeInactive: true}, 3},
	}

	for _, tt := range tests {
		projects, err := s.ListProjects(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: ListProjects() error = %v", tt.name, err)
		}
		if len(projects) != tt.expected {
			t.Errorf("%s: got %d projects, expected %d", tt.name, len(projects), tt.expected)
		}
		for _, p := range projects {
			if tt.filter.Pillar != "" && p.Pillar != tt.filter.Pillar {
				t.Errorf("%s: project %d has pillar %q", tt.name, p.ID, p.Pillar)
			}
		}
	}
}

func testUpdateProject(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustCreateProject(t, s, models.PillarHealth, "Kenya")
	mustDonate(t, s, 1, p.ID, "100")

	p.Title = "Renamed"
	p.GoalAmount = dec("2500")
	p.CurrentAmount = dec("0")
	updated, err := s.UpdateProject(ctx, p)
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, expected Renamed", updated.Title)
	}
	if !updated.GoalAmount.Equal(dec("2500")) {
		t.Errorf("GoalAmount = %s, expected 2500", updated.GoalAmount)
	}
	if !updated.CurrentAmount.Equal(dec("100")) {
		t.Errorf("CurrentAmount = %s, expected 100 to survive update", updated.CurrentAmount)
	}

	p.ID = 9999
	if _, err := s.UpdateProject(ctx, p); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateProject(missing) error = %v, expected ErrNotFound", err)
	}
}

func testDeleteProject(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustCreateProject(t, s, models.PillarConservation, "Tanzania")

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetProject(deleted) error = %v, expected ErrNotFound", err)
	}
	projects, _ := s.ListProjects(ctx, storage.ProjectFilter{IncludeInactive: true})
	if len(projects) != 0 {
		t.Errorf("expected deleted project to be absent from list, got %d", len(projects))
	}
	if err := s.DeleteProject(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteProject(twice) error = %v, expected ErrNotFound", err)
	}
}

func testSeedProjects(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seeded, err := s.SeedProjects(ctx, models.SampleProjects())
	if err != nil {
		t.Fatalf("SeedProjects() error = %v", err)
	}
	if len(seeded) != len(models.SampleProjects()) {
		t.Fatalf("seeded %d projects, expected %d", len(seeded), len(models.SampleProjects()))
	}

	got, err := s.GetProject(ctx, seeded[0].ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if !got.CurrentAmount.Equal(dec("33300")) {
		t.Errorf("seeded CurrentAmount = %s, expected baseline 33300", got.CurrentAmount)
	}

	count, err := s.CountProjects(ctx)
	if err != nil {
		t.Fatalf("CountProjects() error = %v", err)
	}
	if count != int64(len(seeded)) {
		t.Errorf("CountProjects() = %d, expected %d", count, len(seeded))
	}
}

func testDonationRaisesProjectTotal(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustCreateProject(t, s, models.PillarEducation, "Ghana")

	d := mustDonate(t, s, 1, p.ID, "25.50")
	if d.ID == 0 {
		t.Error("expected donation id to be assigned")
	}
	if d.DonationDate.IsZero() {
		t.Error("expected donation date to be set")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if !got.CurrentAmount.Equal(dec("25.5")) {
		t.Errorf("CurrentAmount = %s, expected 25.5", got.CurrentAmount)
	}

	byProject, _ := s.GetProjectDonations(ctx, p.ID)
	if len(byProject) != 1 {
		t.Errorf("GetProjectDonations() returned %d, expected 1", len(byProject))
	}
}

func testDonationUnknownProject(t *testing.T, s storage.Storage) {
	_, err := s.CreateDonation(context.Background(), models.Donation{
		UserID:    1,
		ProjectID: 4242,
		Amount:    dec("10"),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CreateDonation(unknown project) error = %v, expected ErrNotFound", err)
	}

	donations, _ := s.GetUserDonations(context.Background(), 1)
	if len(donations) != 0 {
		t.Errorf("expected no donation to be stored, got %d", len(donations))
	}
}

func testDuplicatePaymentIntent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustCreateProject(t, s, models.PillarHealth, "Malawi")
	pi := "pi_test_123"

	first, err := s.CreateDonation(ctx, models.Donation{UserID: 1, ProjectID: p.ID, Amount: dec("50"), PaymentIntentID: &pi})
	if err != nil {
		t.Fatalf("CreateDonation() error = %v", err)
	}
	_, err = s.CreateDonation(ctx, models.Donation{UserID: 1, ProjectID: p.ID, Amount: dec("50"), PaymentIntentID: &pi})
	if !errors.Is(err, storage.ErrDuplicatePayment) {
		t.Fatalf("CreateDonation(replay) error = %v, expected ErrDuplicatePayment", err)
	}
	if !errors.Is(err, storage.ErrConflict) {
		t.Error("ErrDuplicatePayment should match ErrConflict")
	}

	got, _ := s.GetProject(ctx, p.ID)
	if !got.CurrentAmount.Equal(dec("50")) {
		t.Errorf("CurrentAmount = %s, expected 50 after replay", got.CurrentAmount)
	}

	found, err := s.GetDonationByPaymentIntent(ctx, pi)
	if err != nil {
		t.Fatalf("GetDonationByPaymentIntent() error = %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("GetDonationByPaymentIntent() id = %d, expected %d", found.ID, first.ID)
	}
	if _, err := s.GetDonationByPaymentIntent(ctx, "pi_unknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetDonationByPaymentIntent(unknown) error = %v, expected ErrNotFound", err)
	}
}

func testUserStatsFollowHistory(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "wanjiru", "wanjiru@example.com")
	p1 := mustCreateProject(t, s, models.PillarHealth, "Kenya")
	p2 := mustCreateProject(t, s, models.PillarEducation, "Kenya")

	mustDonate(t, s, u.ID, p1.ID, "100")
	mustDonate(t, s, u.ID, p1.ID, "50")
	mustDonate(t, s, u.ID, p2.ID, "125")

	stats, err := s.GetUserStats(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if !stats.TotalDonated.Equal(dec("275")) {
		t.Errorf("TotalDonated = %s, expected 275", stats.TotalDonated)
	}
	if stats.ProjectsSupported != 2 {
		t.Errorf("ProjectsSupported = %d, expected 2", stats.ProjectsSupported)
	}
	if stats.LivesImpacted != 27 {
		t.Errorf("LivesImpacted = %d, expected 27", stats.LivesImpacted)
	}
	if !stats.CarbonOffset.Equal(dec("0.6")) {
		t.Errorf("CarbonOffset = %s, expected 0.6", stats.CarbonOffset)
	}

	donations, err := s.GetUserDonations(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserDonations() error = %v", err)
	}
	if len(donations) != 3 {
		t.Errorf("GetUserDonations() returned %d, expected 3", len(donations))
	}
}

func testGlobalStats(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p1 := mustCreateProject(t, s, models.PillarHealth, "Kenya")
	p2 := mustCreateProject(t, s, models.PillarConservation, "Kenya")
	inactive := mustCreateProject(t, s, models.PillarEducation, "Kenya")
	inactive.IsActive = false
	if _, err := s.UpdateProject(ctx, inactive); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	mustDonate(t, s, 1, p1.ID, "10")
	mustDonate(t, s, 2, p2.ID, "35.25")
	mustDonate(t, s, 2, p1.ID, "100")

	gs, err := s.GetGlobalStats(ctx)
	if err != nil {
		t.Fatalf("GetGlobalStats() error = %v", err)
	}
	if gs.TotalProjects != 2 {
		t.Errorf("TotalProjects = %d, expected 2", gs.TotalProjects)
	}
	if !gs.TotalDonated.Equal(dec("145.25")) {
		t.Errorf("TotalDonated = %s, expected 145.25", gs.TotalDonated)
	}
	if gs.TotalLivesImpacted != 14 {
		t.Errorf("TotalLivesImpacted = %d, expected 14", gs.TotalLivesImpacted)
	}
	if gs.TotalDonations != 3 {
		t.Errorf("TotalDonations = %d, expected 3", gs.TotalDonations)
	}
	if gs.TotalDonors != 2 {
		t.Errorf("TotalDonors = %d, expected 2", gs.TotalDonors)
	}
}

func testConcurrentDonations(t *testing.T, s storage.Storage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p := mustCreateProject(t, s, models.PillarHealth, "Kenya")

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateDonation(ctx, models.Donation{UserID: 1, ProjectID: p.ID, Amount: dec("10")})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent CreateDonation() error = %v", err)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if !got.CurrentAmount.Equal(dec("100")) {
		t.Errorf("CurrentAmount = %s, expected 100 after %d concurrent £10 donations", got.CurrentAmount, workers)
	}

	stats, err := s.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserStats() error = %v", err)
	}
	if !stats.TotalDonated.Equal(dec("100")) {
		t.Errorf("TotalDonated = %s, expected 100", stats.TotalDonated)
	}
}

func testImpactMetrics(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	p := mustCreateProject(t, s, models.PillarConservation, "Kenya")

	m, err := s.CreateImpactMetric(ctx, models.ImpactMetric{
		ProjectID:  p.ID,
		MetricType: "elephants_protected",
		Value:      dec("42"),
		Unit:       "elephants",
	})
	if err != nil {
		t.Fatalf("CreateImpactMetric() error = %v", err)
	}
	if m.ID == 0 || m.RecordedAt.IsZero() {
		t.Errorf("expected id and recordedAt to be set, got %+v", m)
	}

	metrics, err := s.GetProjectImpactMetrics(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectImpactMetrics() error = %v", err)
	}
	if len(metrics) != 1 || metrics[0].MetricType != "elephants_protected" {
		t.Errorf("GetProjectImpactMetrics() = %+v", metrics)
	}

	empty, err := s.GetProjectImpactMetrics(ctx, 9999)
	if err != nil {
		t.Fatalf("GetProjectImpactMetrics(unknown) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no metrics for unknown project, got %d", len(empty))
	}

	_, err = s.CreateImpactMetric(ctx, models.ImpactMetric{ProjectID: 9999, MetricType: "x", Value: dec("1"), Unit: "u"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CreateImpactMetric(unknown project) error = %v, expected ErrNotFound", err)
	}
}

func testRecomputeUserStats(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "kofi", "kofi@example.com")
	p := mustCreateProject(t, s, models.PillarEducation, "Ghana")
	mustDonate(t, s, u.ID, p.ID, "40")
	mustDonate(t, s, 77, p.ID, "60")

	n, err := s.RecomputeUserStats(ctx)
	if err != nil {
		t.Fatalf("RecomputeUserStats() error = %v", err)
	}
	if n != 2 {
		t.Errorf("RecomputeUserStats() = %d, expected 2", n)
	}

	guest, err := s.GetUserStats(ctx, 77)
	if err != nil {
		t.Fatalf("GetUserStats(guest) error = %v", err)
	}
	if !guest.TotalDonated.Equal(dec("60")) || guest.LivesImpacted != 6 {
		t.Errorf("guest stats = %+v", guest)
	}
}

func testSchedulerLock(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "reconcile", "node-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock(node-a) = %v, %v; expected true", ok, err)
	}
	if ok, _ := s.TryLock(ctx, "reconcile", "node-b", time.Minute); ok {
		t.Error("node-b took a live lease held by node-a")
	}
	if ok, _ := s.TryLock(ctx, "reconcile", "node-a", time.Minute); !ok {
		t.Error("holder could not renew its own lease")
	}
	if ok, _ := s.TryLock(ctx, "other-job", "node-b", time.Minute); !ok {
		t.Error("leases on different names should be independent")
	}

	if err := s.Unlock(ctx, "reconcile", "node-b"); err != nil {
		t.Fatalf("Unlock(non-holder) error = %v", err)
	}
	if ok, _ := s.TryLock(ctx, "reconcile", "node-b", time.Minute); ok {
		t.Error("non-holder unlock released the lease")
	}

	if err := s.Unlock(ctx, "reconcile", "node-a"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if ok, _ := s.TryLock(ctx, "reconcile", "node-b", time.Minute); !ok {
		t.Error("lease should be free after unlock")
	}

	// An expired lease can be taken over.
	if ok, _ := s.TryLock(ctx, "short", "node-a", -time.Second); !ok {
		t.Fatal("TryLock(short) failed")
	}
	if ok, _ := s.TryLock(ctx, "short", "node-b", time.Minute); !ok {
		t.Error("expired lease was not taken over")
	}
}
