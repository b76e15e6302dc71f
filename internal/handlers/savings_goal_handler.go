package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/services"
)

// SavingsGoalHandler handles savings goal requests
type SavingsGoalHandler struct {
	goalService  services.SavingsGoalServicer
	auditService services.AuditServicer
}

// NewSavingsGoalHandler creates a new SavingsGoalHandler
func NewSavingsGoalHandler(goalService services.SavingsGoalServicer, auditService services.AuditServicer) *SavingsGoalHandler {
	return &SavingsGoalHandler{goalService: goalService, auditService: auditService}
}

// CreateSavingsGoalRequest represents the request payload for creating a savings goal
type CreateSavingsGoalRequest struct {
	Name         string           `json:"name" binding:"required"`
	Description  string           `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount" binding:"required"`
	DueDate      string           `json:"due_date" binding:"required,date_only"`
}

// UpdateSavingsGoalRequest holds the fields to change. Omitted fields are kept.
type UpdateSavingsGoalRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	DueDate      *string          `json:"due_date" binding:"omitempty,date_only"`
}

// AddMoneyRequest carries a contribution amount.
type AddMoneyRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// AddMoneyResponse is returned after a contribution.
type AddMoneyResponse struct {
	Message string                  `json:"message"`
	Goal    services.AddMoneyResult `json:"goal"`
}

// CreateGoal handles savings goal creation
// @Summary     Create a savings goal
// @Tags        savings-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSavingsGoalRequest true "Goal details"
// @Success     201 {object} models.SavingsGoal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate goal name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings-goals [post]
func (h *SavingsGoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSavingsGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	due, err := parseDate(req.DueDate)
	if err != nil {
		respondWithError(c, apperrors.InvalidField("due_date", "must be YYYY-MM-DD"))
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, services.SavingsGoalInput{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: *req.TargetAmount,
		DueDate:      due,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "CREATE_GOAL", ResourceType: "savings_goal", ResourceID: goal.ID, IPAddress: c.ClientIP(),
	})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// ListGoals returns the user's goals with progress figures
// @Summary     List savings goals
// @Description List savings goals with status, progress and monthly quota
// @Tags        savings-goals
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.SavingsGoalView "Goals"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings-goals [get]
func (h *SavingsGoalHandler) ListGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goals, err := h.goalService.ListGoals(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// UpdateGoal handles savings goal updates
// @Summary     Update a savings goal
// @Tags        savings-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Goal ID"
// @Param       request body UpdateSavingsGoalRequest true "Fields to update"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Duplicate goal name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings-goals/{id} [put]
func (h *SavingsGoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSavingsGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	upd := services.SavingsGoalUpdate{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
	}
	if req.DueDate != nil {
		due, parseErr := parseDate(*req.DueDate)
		if parseErr != nil {
			respondWithError(c, apperrors.InvalidField("due_date", "must be YYYY-MM-DD"))
			return
		}
		upd.DueDate = &due
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "UPDATE_GOAL", ResourceType: "savings_goal", ResourceID: goalID, IPAddress: c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal soft-deletes a savings goal
// @Summary     Delete a savings goal
// @Tags        savings-goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings-goals/{id} [delete]
func (h *SavingsGoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "DELETE_GOAL", ResourceType: "savings_goal", ResourceID: goalID, IPAddress: c.ClientIP(),
	})

	c.JSON(http.StatusOK, MessageResponse{Message: "Savings goal deleted successfully"})
}

// AddMoney contributes to a savings goal
// @Summary     Add money to a goal
// @Description Record a contribution as an expense and move the goal towards its target. The goal never exceeds its target.
// @Tags        savings-goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Goal ID"
// @Param       request body AddMoneyRequest true "Contribution"
// @Success     200 {object} AddMoneyResponse "Contribution recorded"
// @Failure     400 {object} ErrorResponse "Invalid amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /savings-goals/{id}/add-money [post]
func (h *SavingsGoalHandler) AddMoney(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.goalService.AddMoney(c.Request.Context(), userID, goalID, *req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID: userID, Action: "ADD_MONEY_GOAL", ResourceType: "savings_goal", ResourceID: goalID, IPAddress: c.ClientIP(),
		Changes: map[string]any{"amount": req.Amount.String(), "completed": result.Completed},
	})

	c.JSON(http.StatusOK, AddMoneyResponse{Message: addMoneyMessage(result), Goal: *result})
}

func addMoneyMessage(result *services.AddMoneyResult) string {
	if result.Completed {
		return "Goal completed"
	}
	return "Money added successfully"
}
