package handlers

import (
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateDonationRaisesProjectTotal(t *testing.T) {
	e := newTestEnv(t)
	userID := e.createUser(t, "donor@example.com")
	p := e.createProject(t, "health", "Malawi")

	w, env := e.do(t, "POST", "/api/donations", map[string]interface{}{
		"userId":    userID,
		"projectId": p.ID,
		"amount":    "42.50",
		"message":   "For the clinic",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var d struct {
		ID     uint            `json:"id"`
		Amount decimal.Decimal `json:"amount"`
	}
	decode(t, env.Data, &d)
	if d.ID == 0 || !d.Amount.Equal(decimal.RequireFromString("42.50")) {
		t.Errorf("donation = %+v", d)
	}

	_, env = e.do(t, "GET", "/api/projects/"+itoa(p.ID), nil)
	var got projectDTO
	decode(t, env.Data, &got)
	if !got.CurrentAmount.Equal(decimal.RequireFromString("42.50")) {
		t.Errorf("CurrentAmount = %s, expected 42.50", got.CurrentAmount)
	}

	_, env = e.do(t, "GET", "/api/projects/"+itoa(p.ID)+"/donations", nil)
	var list []map[string]interface{}
	decode(t, env.Data, &list)
	if len(list) != 1 {
		t.Errorf("project donations = %d, expected 1", len(list))
	}
}

func TestCreateDonationErrors(t *testing.T) {
	e := newTestEnv(t)
	userID := e.createUser(t, "donor@example.com")
	p := e.createProject(t, "health", "Malawi")

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"missing project", map[string]interface{}{"userId": userID, "amount": "5"}, http.StatusBadRequest},
		{"zero amount", map[string]interface{}{"userId": userID, "projectId": p.ID, "amount": "0"}, http.StatusBadRequest},
		{"bad frequency", map[string]interface{}{"userId": userID, "projectId": p.ID, "amount": "5", "isRecurring": true, "recurringFrequency": "weekly"}, http.StatusBadRequest},
		{"unknown project", map[string]interface{}{"userId": userID, "projectId": 999, "amount": "5"}, http.StatusNotFound},
		{"unknown user", map[string]interface{}{"userId": 999, "projectId": p.ID, "amount": "5"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w, _ := e.do(t, "POST", "/api/donations", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, expected %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestConcurrentDonations(t *testing.T) {
	e := newTestEnv(t)
	userID := e.createUser(t, "donor@example.com")
	p := e.createProject(t, "education", "Ghana")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.do(t, "POST", "/api/donations", map[string]interface{}{"userId": userID, "projectId": p.ID, "amount": "10"})
		}()
	}
	wg.Wait()

	_, env := e.do(t, "GET", "/api/projects/"+itoa(p.ID), nil)
	var got projectDTO
	decode(t, env.Data, &got)
	if !got.CurrentAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("CurrentAmount = %s, expected 20", got.CurrentAmount)
	}
}

func TestStatsRoutes(t *testing.T) {
	e := newTestEnv(t)
	a := e.createUser(t, "a@example.com")
	b := e.createUser(t, "b@example.com")
	p1 := e.createProject(t, "health", "Kenya")
	p2 := e.createProject(t, "conservation", "Kenya")

	for _, d := range []map[string]interface{}{
		{"userId": a, "projectId": p1.ID, "amount": "100"},
		{"userId": a, "projectId": p2.ID, "amount": "50"},
		{"userId": b, "projectId": p1.ID, "amount": "25.25"},
	} {
		if w, _ := e.do(t, "POST", "/api/donations", d); w.Code != http.StatusCreated {
			t.Fatalf("donation: status = %d", w.Code)
		}
	}

	w, env := e.do(t, "GET", "/api/users/"+itoa(a)+"/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user stats: status = %d", w.Code)
	}
	var st struct {
		TotalDonated      decimal.Decimal `json:"totalDonated"`
		ProjectsSupported int             `json:"projectsSupported"`
		LivesImpacted     int             `json:"livesImpacted"`
	}
	decode(t, env.Data, &st)
	if !st.TotalDonated.Equal(decimal.NewFromInt(150)) || st.ProjectsSupported != 2 || st.LivesImpacted != 15 {
		t.Errorf("user stats = %+v", st)
	}

	_, env = e.do(t, "GET", "/api/stats/global", nil)
	var g struct {
		TotalProjects  int64           `json:"totalProjects"`
		TotalDonated   decimal.Decimal `json:"totalDonated"`
		TotalDonations int64           `json:"totalDonations"`
		TotalDonors    int64           `json:"totalDonors"`
	}
	decode(t, env.Data, &g)
	if !g.TotalDonated.Equal(decimal.RequireFromString("175.25")) {
		t.Errorf("global totalDonated = %s, expected 175.25", g.TotalDonated)
	}
	if g.TotalProjects != 2 || g.TotalDonations != 3 || g.TotalDonors != 2 {
		t.Errorf("global stats = %+v", g)
	}

	_, env = e.do(t, "GET", "/api/users/"+itoa(a)+"/donations", nil)
	var list []map[string]interface{}
	decode(t, env.Data, &list)
	if len(list) != 2 {
		t.Errorf("user donations = %d, expected 2", len(list))
	}

	if w, _ := e.do(t, "GET", "/api/users/999/stats", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown user stats: status = %d, expected 404", w.Code)
	}
}
