package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"spendsmart/internal/services"
)

// BudgetHandler handles budget-related requests
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// CreateBudgetRequest represents the request payload for creating or replacing a
// budget. Posting again for the same category and month overwrites it.
type CreateBudgetRequest struct {
	CategoryID string           `json:"category_id" binding:"required,uuid"`
	Month      string           `json:"month" binding:"required,month"`
	Limit      *decimal.Decimal `json:"limit" binding:"required"`
	Threshold  *int             `json:"threshold" binding:"required"`
}

// CreateBudget handles budget creation
// @Summary     Create or replace a budget
// @Description Set the monthly limit and alert threshold for a category. At most 10 budgets may be active.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget saved"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Active budget limit reached"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), userID, services.BudgetInput{
		CategoryID: req.CategoryID,
		Month:      req.Month,
		Limit:      *req.Limit,
		Threshold:  *req.Threshold,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "UPSERT_BUDGET", ResourceType: "budget", ResourceID: budget.ID, IPAddress: c.ClientIP(),
		Changes: map[string]any{"month": req.Month, "limit": req.Limit.String(), "threshold": *req.Threshold},
	})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// ListBudgets returns active budgets with their spend
// @Summary     List budgets
// @Description List up to 10 active budgets, newest first, with spend, availability and alert flag
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.BudgetView "Budgets"
// @Failure     400 {object} ErrorResponse "Budget references a missing category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.budgetService.ListBudgets(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// ToggleBudget flips a budget between active and inactive
// @Summary     Toggle budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget activated or deactivated"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Active budget limit reached"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/toggle [patch]
func (h *BudgetHandler) ToggleBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.ToggleBudget(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	message := "Budget deactivated"
	if budget.IsActive {
		message = "Budget activated"
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "TOGGLE_BUDGET", ResourceType: "budget", ResourceID: budgetID, IPAddress: c.ClientIP(),
		Changes: map[string]any{"is_active": budget.IsActive},
	})

	c.JSON(http.StatusOK, gin.H{"message": message, "budget": budget})
}

// DeleteBudget soft-deletes a budget
// @Summary     Delete budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "DELETE_BUDGET", ResourceType: "budget", ResourceID: budgetID, IPAddress: c.ClientIP(),
	})

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget deleted successfully"})
}
