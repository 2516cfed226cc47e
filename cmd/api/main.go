package main

import (
	"fmt"
	"net/http"
	"os"

	"fintrack/internal/clock"
	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
	"fintrack/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack is a personal finance tracker for multi-currency accounts, recurring payments, and period-based budgeting.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	clk := clock.System{}
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	periodService := services.NewPeriodService(clk)
	currencyService := services.NewCurrencyService(db, clk, services.NewHTTPRateFetcher())
	paymentService := services.NewPaymentService(db, accountService, clk)
	recurringPaymentService := services.NewRecurringPaymentService(db, paymentService, clk)
	transactionService := services.NewTransactionService(db, accountService, currencyService, clk)
	dashboardService := services.NewDashboardService(db, accountService, transactionService, paymentService, periodService, clk)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	recurringPaymentHandler := handlers.NewRecurringPaymentHandler(recurringPaymentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	currencyHandler := handlers.NewCurrencyHandler(currencyService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile/reset-day", authHandler.UpdateFinancialResetDay)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/by-currency", accountHandler.GetBalancesByCurrency)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/recalculate", accountHandler.RecalculateBalance)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/transfer", transactionHandler.CreateTransfer)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Payment routes
	payments := protected.Group("/payments")
	payments.POST("", paymentHandler.CreateManualPayment)
	payments.GET("", paymentHandler.GetUserPayments)
	payments.GET("/upcoming", paymentHandler.GetUpcomingPayments)
	payments.GET("/overdue", paymentHandler.GetOverduePayments)
	payments.POST("/generate", paymentHandler.GeneratePayments)
	payments.GET("/:id", paymentHandler.GetPaymentByID)
	payments.POST("/:id/pay", paymentHandler.MarkPaid)
	payments.POST("/:id/unpay", paymentHandler.MarkUnpaid)
	payments.DELETE("/:id", paymentHandler.DeletePayment)

	// Recurring payment routes
	recurring := protected.Group("/recurring-payments")
	recurring.POST("", recurringPaymentHandler.CreateRecurringPayment)
	recurring.GET("", recurringPaymentHandler.GetUserRecurringPayments)
	recurring.GET("/:id", recurringPaymentHandler.GetRecurringPaymentByID)
	recurring.PUT("/:id", recurringPaymentHandler.UpdateRecurringPayment)
	recurring.DELETE("/:id", recurringPaymentHandler.DeleteRecurringPayment)
	recurring.POST("/:id/activate", recurringPaymentHandler.ActivateRecurringPayment)
	recurring.POST("/:id/deactivate", recurringPaymentHandler.DeactivateRecurringPayment)
	recurring.POST("/:id/regenerate", recurringPaymentHandler.RegeneratePayments)
	recurring.GET("/:id/statistics", recurringPaymentHandler.GetStatistics)

	// Dashboard routes
	dashboard := protected.Group("/dashboard")
	dashboard.GET("", dashboardHandler.GetDashboard)
	dashboard.GET("/overview", dashboardHandler.GetOverview)
	dashboard.GET("/trend", dashboardHandler.GetMonthlyTrend)
	dashboard.GET("/calendar", dashboardHandler.GetPaymentsCalendar)

	// Currency routes
	currency := protected.Group("/currency")
	currency.GET("/rate", currencyHandler.GetRate)
	currency.GET("/convert", currencyHandler.Convert)

	log.Infof("Starting Fintrack backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
