package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn func(userID string, in services.BudgetInput) (*models.Budget, error)
	listBudgetsFn  func(userID string) ([]services.BudgetView, error)
	toggleBudgetFn func(userID, budgetID string) (*models.Budget, error)
	deleteBudgetFn func(userID, budgetID string) error
}

func (m *mockBudgetService) CreateBudget(_ context.Context, userID string, in services.BudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) ListBudgets(_ context.Context, userID string) ([]services.BudgetView, error) {
	if m.listBudgetsFn != nil {
		return m.listBudgetsFn(userID)
	}
	return []services.BudgetView{}, nil
}

func (m *mockBudgetService) ToggleBudget(_ context.Context, userID, budgetID string) (*models.Budget, error) {
	if m.toggleBudgetFn != nil {
		return m.toggleBudgetFn(userID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(_ context.Context, userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.ListBudgets)
	auth.PATCH("/budgets/:id/toggle", handler.ToggleBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(userID string, in services.BudgetInput) (*models.Budget, error) {
				got = in
				return &models.Budget{
					Base:       models.Base{ID: testResourceID},
					UserID:     userID,
					CategoryID: in.CategoryID,
					Month:      in.Month,
					Limit:      in.Limit,
					Threshold:  in.Threshold,
					IsActive:   true,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-06","limit":"500.50","threshold":80}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Limit.Equal(decimal.RequireFromString("500.50")) {
			t.Errorf("expected limit 500.50, got %s", got.Limit)
		}
		if got.Threshold != 80 || got.Month != "2024-06" {
			t.Errorf("unexpected input passed to service: %+v", got)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["id"] != testResourceID {
			t.Errorf("expected id %s, got %v", testResourceID, budget["id"])
		}
		if actions := audit.actions(); len(actions) != 1 || actions[0] != "UPSERT_BUDGET" {
			t.Errorf("expected UPSERT_BUDGET audit entry, got %v", actions)
		}
	})

	t.Run("accepts a zero threshold", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(_ string, in services.BudgetInput) (*models.Budget, error) {
				got = in
				return &models.Budget{}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-06","limit":100,"threshold":0}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Threshold != 0 {
			t.Errorf("expected threshold 0, got %d", got.Threshold)
		}
	})

	t.Run("returns 400 on invalid month", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-13","limit":100,"threshold":80}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorField(t, parseJSON(t, rec), "month")
	})

	t.Run("returns 400 on missing threshold", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-06","limit":100}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorField(t, parseJSON(t, rec), "threshold")
	})

	t.Run("returns 409 when the active budget cap is reached", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(string, services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetLimitReached
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-06","limit":100,"threshold":80}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_LIMIT_REACHED")
	})

	t.Run("returns 404 when category is missing", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(string, services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets",
			`{"category_id":"`+testCategoryID+`","month":"2024-06","limit":100,"threshold":80}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_ListBudgets(t *testing.T) {
	t.Run("returns enriched budgets", func(t *testing.T) {
		svc := &mockBudgetService{
			listBudgetsFn: func(string) ([]services.BudgetView, error) {
				return []services.BudgetView{{
					ID: testResourceID, Category: "Dining Out", Month: "2024-06",
					Limit: 500, Threshold: 80, IsActive: true,
					Spent: 450, Available: 50, PercentUsed: 90, Alert: true,
				}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		budgets := parseJSON(t, rec)["budgets"].([]interface{})
		if len(budgets) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(budgets))
		}
		b := budgets[0].(map[string]interface{})
		if b["percent_used"] != 90.0 || b["alert"] != true || b["available"] != 50.0 {
			t.Errorf("unexpected budget view: %v", b)
		}
	})

	t.Run("returns 400 on dangling category", func(t *testing.T) {
		svc := &mockBudgetService{
			listBudgetsFn: func(string) ([]services.BudgetView, error) {
				return nil, apperrors.ErrInvalidCategoryRef
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CATEGORY_REFERENCE")
	})
}

func TestBudgetHandler_ToggleBudget(t *testing.T) {
	tests := []struct {
		name    string
		active  bool
		wantMsg string
	}{
		{"activated", true, "Budget activated"},
		{"deactivated", false, "Budget deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBudgetService{
				toggleBudgetFn: func(_, budgetID string) (*models.Budget, error) {
					return &models.Budget{Base: models.Base{ID: budgetID}, IsActive: tt.active}, nil
				},
			}
			r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

			rec := doRequest(r, "PATCH", "/budgets/"+testResourceID+"/toggle", "")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if msg := parseJSON(t, rec)["message"]; msg != tt.wantMsg {
				t.Errorf("expected %q, got %v", tt.wantMsg, msg)
			}
		})
	}

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/budgets/42/toggle", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when budget is missing", func(t *testing.T) {
		svc := &mockBudgetService{
			toggleBudgetFn: func(_, _ string) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/budgets/"+testResourceID+"/toggle", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var deleted string
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, budgetID string) error {
				deleted = budgetID
				return nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/budgets/"+testResourceID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != testResourceID {
			t.Errorf("expected %s deleted, got %s", testResourceID, deleted)
		}
	})

	t.Run("returns 404 when already deleted", func(t *testing.T) {
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, _ string) error { return apperrors.ErrBudgetNotFound },
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/budgets/"+testResourceID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}
