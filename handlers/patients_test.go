package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/auth"
	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/models"
)

func newPatientsApp(patients *fakePatientStore, tokens *auth.TokenManager, recorder *audit.Recorder) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/patients", middleware.RequireAuth(tokens))
	NewPatientsHandler(patients, recorder, testLogger()).Register(group)
	return app
}

func TestPatientCreateGetDelete(t *testing.T) {
	patients := newFakePatientStore()
	auditSink := &fakeAuditStore{}
	tokens := testTokens()
	recorder := testRecorder(auditSink)
	app := newPatientsApp(patients, tokens, recorder)
	token := issueToken(t, tokens, models.RoleDoctor)

	req := jsonRequest(t, fiber.MethodPost, "/api/patients/", map[string]any{
		"firstName": "Jane",
		"lastName":  "Smith",
		"email":     "jane@example.com",
		"status":    "active",
		"bloodType": "O+",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp := doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusCreated)
	body := decodeBody(t, resp)
	id, _ := body["patient_id"].(string)
	if id == "" {
		t.Fatalf("create response missing patient_id: %v", body)
	}

	req = jsonRequest(t, fiber.MethodGet, "/api/patients/"+id, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp = doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusOK)
	fetched := decodeBody(t, resp)
	if fetched["firstName"] != "Jane" {
		t.Errorf("firstName = %v, want Jane", fetched["firstName"])
	}
	if fetched["bloodType"] != "O+" {
		t.Errorf("ad-hoc attribute lost: bloodType = %v", fetched["bloodType"])
	}

	req = jsonRequest(t, fiber.MethodDelete, "/api/patients/"+id, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp = doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	req = jsonRequest(t, fiber.MethodGet, "/api/patients/"+id, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp = doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusNotFound)
	resp.Body.Close()

	recorder.Wait()
	actions := auditSink.actions()
	if len(actions) != 2 {
		t.Fatalf("audit actions = %v, want create and delete", actions)
	}
}

func TestPatientInvalidAndMissingIDs(t *testing.T) {
	tokens := testTokens()
	app := newPatientsApp(newFakePatientStore(), tokens, testRecorder(&fakeAuditStore{}))
	token := issueToken(t, tokens, models.RoleStaff)

	req := jsonRequest(t, fiber.MethodGet, "/api/patients/not-a-hex-id", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp := doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusBadRequest)
	if body := decodeBody(t, resp); body["error"] != "invalid patient ID" {
		t.Errorf("error = %v", body["error"])
	}

	req = jsonRequest(t, fiber.MethodGet, "/api/patients/64b0c0ffee0000000000dead", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp = doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusNotFound)
	if body := decodeBody(t, resp); body["error"] != "patient not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestPatientUpdateMissing(t *testing.T) {
	tokens := testTokens()
	app := newPatientsApp(newFakePatientStore(), tokens, testRecorder(&fakeAuditStore{}))
	token := issueToken(t, tokens, models.RoleDoctor)

	req := jsonRequest(t, fiber.MethodPut, "/api/patients/64b0c0ffee0000000000dead", map[string]any{
		"firstName": "Ghost",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp := doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusNotFound)
	resp.Body.Close()
}

func TestPatientListPagination(t *testing.T) {
	patients := newFakePatientStore()
	for i := 0; i < 25; i++ {
		if _, err := patients.Create(context.Background(), models.Patient{
			FirstName: fmt.Sprintf("Patient%02d", i),
			Status:    models.StatusActive,
		}); err != nil {
			t.Fatalf("seed patient: %v", err)
		}
	}

	tokens := testTokens()
	app := newPatientsApp(patients, tokens, testRecorder(&fakeAuditStore{}))
	token := issueToken(t, tokens, models.RoleStaff)

	var seen int
	for page := 1; page <= 3; page++ {
		req := jsonRequest(t, fiber.MethodGet, fmt.Sprintf("/api/patients/?page=%d&limit=10", page), nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp := doRequest(t, app, req)
		wantStatus(t, resp, fiber.StatusOK)
		body := decodeBody(t, resp)

		if body["total"] != float64(25) {
			t.Fatalf("total = %v, want 25", body["total"])
		}
		if body["totalPages"] != float64(3) {
			t.Fatalf("totalPages = %v, want 3", body["totalPages"])
		}
		if body["page"] != float64(page) {
			t.Fatalf("page = %v, want %d", body["page"], page)
		}
		rows, _ := body["patients"].([]any)
		seen += len(rows)
	}
	if seen != 25 {
		t.Fatalf("pages sum to %d patients, want 25", seen)
	}
}

func TestCriticalStatusShowsInDashboard(t *testing.T) {
	patients := newFakePatientStore()
	tokens := testTokens()
	recorder := testRecorder(&fakeAuditStore{})

	app := fiber.New()
	guard := middleware.RequireAuth(tokens)
	NewPatientsHandler(patients, recorder, testLogger()).Register(app.Group("/api/patients", guard))
	NewAnalyticsHandler(&countingAnalytics{patients: patients}, testLogger()).Register(app.Group("/api/analytics", guard))
	token := issueToken(t, tokens, models.RoleDoctor)

	dashboard := func() float64 {
		req := jsonRequest(t, fiber.MethodGet, "/api/analytics/dashboard", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp := doRequest(t, app, req)
		wantStatus(t, resp, fiber.StatusOK)
		body := decodeBody(t, resp)
		critical, _ := body["criticalPatients"].(float64)
		return critical
	}

	req := jsonRequest(t, fiber.MethodPost, "/api/patients/", map[string]any{
		"firstName": "Kim", "status": "active",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp := doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusCreated)
	id := decodeBody(t, resp)["patient_id"].(string)

	before := dashboard()

	req = jsonRequest(t, fiber.MethodPut, "/api/patients/"+id, map[string]any{
		"firstName": "Kim", "status": "critical",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp = doRequest(t, app, req)
	wantStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	if after := dashboard(); after != before+1 {
		t.Fatalf("criticalPatients = %v after update, want %v", after, before+1)
	}
}

func TestPatientRoutesRequireAuth(t *testing.T) {
	app := newPatientsApp(newFakePatientStore(), testTokens(), testRecorder(&fakeAuditStore{}))

	resp := doRequest(t, app, jsonRequest(t, fiber.MethodGet, "/api/patients/", nil))
	wantStatus(t, resp, fiber.StatusUnauthorized)
	resp.Body.Close()
}
