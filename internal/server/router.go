// Package server assembles the HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"spendsmart/internal/handlers"
	"spendsmart/internal/middleware"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Category    *handlers.CategoryHandler
	Transaction *handlers.TransactionHandler
	Budget      *handlers.BudgetHandler
	SavingsGoal *handlers.SavingsGoalHandler
	Summary     *handlers.SummaryHandler
}

// Options holds the router's cross-cutting dependencies.
type Options struct {
	Tokens      *middleware.TokenIssuer
	AuthLimiter *middleware.IPRateLimiter
	AdminAPIKey string
	Swagger     bool
}

// NewRouter wires middleware and routes under /api/v1.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	if opts.AuthLimiter != nil {
		auth.Use(middleware.RateLimit(opts.AuthLimiter))
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	internal := v1.Group("/internal", middleware.APIKeyMiddleware(opts.AdminAPIKey))
	internal.POST("/categories/seed", h.Category.SeedCategories)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(opts.Tokens))

	protected.GET("/profile", h.Auth.GetProfile)
	protected.PUT("/profile/alerts", h.Auth.UpdateAlertSettings)

	protected.GET("/categories", h.Category.ListCategories)

	transactions := protected.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetUserTransactions)
	transactions.GET("/:id", h.Transaction.GetTransactionByID)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", h.Budget.CreateBudget)
	budgets.GET("", h.Budget.ListBudgets)
	budgets.PATCH("/:id/toggle", h.Budget.ToggleBudget)
	budgets.DELETE("/:id", h.Budget.DeleteBudget)

	goals := protected.Group("/savings-goals")
	goals.POST("", h.SavingsGoal.CreateGoal)
	goals.GET("", h.SavingsGoal.ListGoals)
	goals.PUT("/:id", h.SavingsGoal.UpdateGoal)
	goals.DELETE("/:id", h.SavingsGoal.DeleteGoal)
	goals.POST("/:id/add-money", h.SavingsGoal.AddMoney)

	protected.GET("/summary", h.Summary.GetSummary)

	return router
}
