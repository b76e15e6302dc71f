package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/logger"
	"spendsmart/internal/models"
	"spendsmart/internal/services"
)

// CategoryHandler serves the shared category registry
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// SeedCategoriesRequest controls the seeding run.
type SeedCategoriesRequest struct {
	Force bool `json:"force"`
}

// ListCategories returns every category, optionally filtered by type
// @Summary     List categories
// @Description List the shared categories sorted by name
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "Filter by type (income, expense)"
// @Success     200 {array}  models.Category "Categories"
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var appliesTo *models.CategoryType
	if v := c.Query("type"); v != "" {
		t := models.CategoryType(v)
		if t != models.CategoryTypeIncome && t != models.CategoryTypeExpense {
			respondWithError(c, apperrors.InvalidField("type", "must be income or expense"))
			return
		}
		appliesTo = &t
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), appliesTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// SeedCategories bootstraps the default categories
// @Summary     Seed categories
// @Description Insert the default categories. Without force the call is a no-op on a non-empty registry.
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string                true  "Internal API key"
// @Param       request   body   SeedCategoriesRequest false "Seeding options"
// @Success     200 {object} map[string]int "Number of categories inserted"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /internal/categories/seed [post]
func (h *CategoryHandler) SeedCategories(c *gin.Context) {
	var req SeedCategoriesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindError(err))
			return
		}
	}

	inserted, err := h.categoryService.EnsureDefaultCategories(c.Request.Context(), req.Force)
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("categories seeded", "inserted", inserted, "force", req.Force)
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}
