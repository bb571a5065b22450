package handlers

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateProjectDefaults(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, "health", "Kenya")

	if p.ID == 0 || !p.IsActive {
		t.Errorf("unexpected project %+v", p)
	}
	if !p.CurrentAmount.IsZero() || !p.Rating.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("current/rating = %s/%s, expected 0/4.5", p.CurrentAmount, p.Rating)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	e := newTestEnv(t)

	body := projectBody("sports", "Kenya")
	delete(body, "title")
	w, env := e.do(t, "POST", "/api/projects", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	if !fields["title"] || !fields["pillar"] {
		t.Errorf("expected title and pillar field errors, got %+v", env.Errors)
	}

	w, _ = e.do(t, "POST", "/api/projects", `{"title":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, expected 400", w.Code)
	}

	bad := projectBody("health", "Kenya")
	bad["goalAmount"] = "0"
	w, env = e.do(t, "POST", "/api/projects", bad)
	if w.Code != http.StatusBadRequest || len(env.Errors) != 1 || env.Errors[0].Field != "goalAmount" {
		t.Errorf("zero goal: status %d errors %+v", w.Code, env.Errors)
	}
}

func TestListProjectsFilter(t *testing.T) {
	e := newTestEnv(t)
	e.createProject(t, "health", "Kenya")
	e.createProject(t, "education", "Kenya")
	e.createProject(t, "health", "Ghana")

	tests := []struct {
		query string
		want  int
		check func(p projectDTO) bool
	}{
		{"", 3, func(projectDTO) bool { return true }},
		{"?pillar=health", 2, func(p projectDTO) bool { return p.Pillar == "health" }},
		{"?country=Kenya", 2, func(p projectDTO) bool { return p.Country == "Kenya" }},
		{"?pillar=education&country=Ghana", 1, func(p projectDTO) bool { return p.Pillar == "education" }},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w, env := e.do(t, "GET", "/api/projects"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var list []projectDTO
			decode(t, env.Data, &list)
			if len(list) != tt.want {
				t.Errorf("got %d projects, expected %d", len(list), tt.want)
			}
			for _, p := range list {
				if !tt.check(p) {
					t.Errorf("unexpected project in result: %+v", p)
				}
			}
		})
	}
}

func TestProjectCRUD(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, "conservation", "Tanzania")
	path := "/api/projects/" + itoa(p.ID)

	w, _ := e.do(t, "GET", path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}

	update := projectBody("conservation", "Kenya")
	update["isActive"] = false
	w, env := e.do(t, "PUT", path, update)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", w.Code, w.Body.String())
	}
	var updated projectDTO
	decode(t, env.Data, &updated)
	if updated.Country != "Kenya" || updated.IsActive {
		t.Errorf("update not applied: %+v", updated)
	}

	w, _ = e.do(t, "DELETE", path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	for _, method := range []string{"GET", "DELETE"} {
		if w, _ := e.do(t, method, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s after delete: status = %d, expected 404", method, w.Code)
		}
	}
	if w, _ := e.do(t, "PUT", path, update); w.Code != http.StatusNotFound {
		t.Errorf("PUT after delete: status = %d, expected 404", w.Code)
	}
}

func TestInvalidProjectID(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/projects/abc", "/api/projects/0", "/api/projects/-1/impact"} {
		if w, _ := e.do(t, "GET", path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, expected 400", path, w.Code)
		}
	}
}

func TestSeedProjects(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.do(t, "POST", "/api/projects/seed", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed: status = %d", w.Code)
	}

	_, env := e.do(t, "GET", "/api/projects?pillar=health", nil)
	var list []projectDTO
	decode(t, env.Data, &list)
	if len(list) == 0 {
		t.Fatal("expected seeded health projects")
	}
	for _, p := range list {
		if p.Pillar != "health" {
			t.Errorf("pillar filter returned %s", p.Pillar)
		}
		if !p.CurrentAmount.IsZero() {
			t.Errorf("seeded project %d starts at %s", p.ID, p.CurrentAmount)
		}
	}
}

func TestImpactMetricsRoutes(t *testing.T) {
	e := newTestEnv(t)
	p := e.createProject(t, "education", "Uganda")
	path := "/api/projects/" + itoa(p.ID) + "/impact"

	w, _ := e.do(t, "POST", path, map[string]interface{}{
		"metricType": "students_enrolled",
		"value":      "320",
		"unit":       "students",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("record impact: status = %d, body %s", w.Code, w.Body.String())
	}

	_, env := e.do(t, "GET", path, nil)
	var metrics []map[string]interface{}
	decode(t, env.Data, &metrics)
	if len(metrics) != 1 || metrics[0]["metricType"] != "students_enrolled" {
		t.Errorf("metrics = %v", metrics)
	}
}
