package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func futureDate(months int) string {
	return time.Now().UTC().AddDate(0, months, 0).Format("2006-01-02")
}

func (app *testApp) createGoal(t *testing.T, token, name, target string, months int) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"target_amount":%s,"due_date":%q}`, name, target, futureDate(months))
	rec := app.request(http.MethodPost, "/api/v1/savings-goals", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["goal"].(map[string]interface{})["id"].(string)
}

func TestSavingsFlow_AddMoneyUntilComplete(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "saver@test.com", "password123")
	goalID := app.createGoal(t, token, "Vacation", "1000", 6)

	rec := app.request(http.MethodPost, "/api/v1/savings-goals/"+goalID+"/add-money", `{"amount":400}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("add money failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["message"] != "Money added successfully" {
		t.Errorf("unexpected message %v", result["message"])
	}
	goal := result["goal"].(map[string]interface{})
	if goal["current_amount"] != 400.0 || goal["completed"] != false {
		t.Errorf("unexpected goal after first contribution: %v", goal)
	}

	// Overshooting the target clamps to it.
	rec = app.request(http.MethodPost, "/api/v1/savings-goals/"+goalID+"/add-money", `{"amount":700}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("add money failed: %d %s", rec.Code, rec.Body.String())
	}
	result = parseJSON(t, rec)
	if result["message"] != "Goal completed" {
		t.Errorf("expected Goal completed, got %v", result["message"])
	}
	goal = result["goal"].(map[string]interface{})
	if goal["current_amount"] != 1000.0 || goal["completed"] != true {
		t.Errorf("unexpected goal after completion: %v", goal)
	}

	// Both contributions were recorded as expenses.
	rec = app.request(http.MethodGet, "/api/v1/transactions?type=expense", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transactions failed: %d %s", rec.Code, rec.Body.String())
	}
	page := parseJSON(t, rec)
	if page["total_items"] != 2.0 {
		t.Errorf("expected 2 contribution transactions, got %v", page["total_items"])
	}

	rec = app.request(http.MethodGet, "/api/v1/savings-goals", "", token)
	goals := parseJSON(t, rec)["goals"].([]interface{})
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	g := goals[0].(map[string]interface{})
	if g["status"] != "active" || g["progress"] != 100.0 {
		t.Errorf("unexpected goal view: %v", g)
	}
}

func TestSavingsFlow_Validation(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "goals@test.com", "password123")
	goalID := app.createGoal(t, token, "Car", "5000", 12)

	rec := app.request(http.MethodPost, "/api/v1/savings-goals",
		fmt.Sprintf(`{"name":"Car","target_amount":100,"due_date":%q}`, futureDate(3)), token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "DUPLICATE_GOAL_NAME" {
		t.Errorf("expected DUPLICATE_GOAL_NAME, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request(http.MethodPost, "/api/v1/savings-goals",
		`{"name":"Past","target_amount":100,"due_date":"2001-01-01"}`, token)
	if errorCode(t, rec) != "INVALID_DUE_DATE" {
		t.Errorf("expected INVALID_DUE_DATE, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.request(http.MethodPost, "/api/v1/savings-goals/"+goalID+"/add-money", `{"amount":0}`, token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_AMOUNT" {
		t.Errorf("expected INVALID_AMOUNT, got %d: %s", rec.Code, rec.Body.String())
	}

	other, _, _ := app.registerUser(t, "intruder@test.com", "password123")
	rec = app.request(http.MethodPost, "/api/v1/savings-goals/"+goalID+"/add-money", `{"amount":10}`, other)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "GOAL_NOT_FOUND" {
		t.Errorf("expected GOAL_NOT_FOUND for another user, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec = app.request(http.MethodDelete, "/api/v1/savings-goals/"+goalID, "", token); rec.Code != http.StatusOK {
		t.Fatalf("delete goal failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request(http.MethodPost, "/api/v1/savings-goals/"+goalID+"/add-money", `{"amount":10}`, token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
