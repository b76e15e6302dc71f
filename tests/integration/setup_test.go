package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spendsmart/internal/alerts"
	"spendsmart/internal/config"
	"spendsmart/internal/handlers"
	"spendsmart/internal/lock"
	"spendsmart/internal/logger"
	"spendsmart/internal/mailer"
	"spendsmart/internal/middleware"
	"spendsmart/internal/period"
	"spendsmart/internal/server"
	"spendsmart/internal/services"
	"spendsmart/internal/testutil"
	"spendsmart/internal/validator"
)

const testAdminKey = "integration-admin-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB         *gorm.DB
	Router     *gin.Engine
	Mail       *recordingSender
	Dispatcher *alerts.AsyncDispatcher
}

// recordingSender captures outgoing mail instead of talking to SMTP.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) (*mailer.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return &mailer.Receipt{Accepted: []string{msg.To}}, nil
}

func (r *recordingSender) messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.sent...)
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppIn(t, time.UTC)
}

// setupAppIn is setupApp with months and calendar dates resolved in loc.
func setupAppIn(t *testing.T, loc *time.Location) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	periods := period.NewCalculator(loc)
	mail := &recordingSender{}

	// Services
	spend := services.NewSpendAggregator(db)
	alertService := services.NewBudgetAlertService(db, spend, periods, mail)
	dispatcher := alerts.NewAsyncDispatcher(alertService, 5*time.Second, 4)
	t.Cleanup(func() {
		dispatcher.Close()
		testutil.TeardownTestDB(t, db)
	})

	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, categoryService, dispatcher, periods)
	budgetService := services.NewBudgetService(db, categoryService, spend, periods, lock.NewLocalLocker())
	goalService := services.NewSavingsGoalService(db, categoryService, transactionService, loc)
	summaryService := services.NewSummaryService(db, spend, periods)

	if _, err := categoryService.EnsureDefaultCategories(context.Background(), false); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}

	tokens := middleware.NewTokenIssuer(config.JWTConfig{
		Secret:        "integration-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "spendsmart-test",
	})

	router := server.NewRouter(server.Handlers{
		Auth:        handlers.NewAuthHandler(userService, auditService, tokens),
		Category:    handlers.NewCategoryHandler(categoryService),
		Transaction: handlers.NewTransactionHandler(transactionService, auditService, loc),
		Budget:      handlers.NewBudgetHandler(budgetService, auditService),
		SavingsGoal: handlers.NewSavingsGoalHandler(goalService, auditService),
		Summary:     handlers.NewSummaryHandler(summaryService),
	}, server.Options{
		Tokens:      tokens,
		AdminAPIKey: testAdminKey,
	})

	return &testApp{DB: db, Router: router, Mail: mail, Dispatcher: dispatcher}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"full_name":"Test User"}`, email, password)
	rec := app.request(http.MethodPost, "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request(http.MethodPost, "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// categoryID looks up a seeded category by name through the API.
func (app *testApp) categoryID(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request(http.MethodGet, "/api/v1/categories", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories failed: %d %s", rec.Code, rec.Body.String())
	}
	for _, raw := range parseJSON(t, rec)["categories"].([]interface{}) {
		c := raw.(map[string]interface{})
		if c["name"] == name {
			return c["id"].(string)
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

// currentMonth is the month transactions without an explicit date land in.
func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}
