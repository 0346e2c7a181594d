package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dalfonso89/display-currency-engine/internal/engine"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/middleware"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/ratelimit"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	engine      *engine.Engine
	logger      *logger.Logger
	rateLimiter *ratelimit.Limiter
	startTime   time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(eng *engine.Engine, logger *logger.Logger) *Handlers {
	return &Handlers{
		engine:    eng,
		logger:    logger,
		startTime: time.Now(),
	}
}

// WithRateLimit attaches the rate limiter after initialization
func (handlers *Handlers) WithRateLimit(rateLimiter *ratelimit.Limiter) *Handlers {
	handlers.rateLimiter = rateLimiter
	return handlers
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	if handlers.rateLimiter != nil {
		router.Use(handlers.rateLimitMiddleware())
	}

	router.GET("/health", handlers.HealthCheck)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/currency", handlers.GetActiveCurrency)
		apiV1.PUT("/currency", handlers.SelectCurrency)
		apiV1.GET("/rate", handlers.GetRate)
		apiV1.GET("/display", handlers.GetDisplay)
		apiV1.POST("/bindings", handlers.RegisterBinding)
		apiV1.DELETE("/bindings/:id", handlers.UnregisterBinding)
	}

	return router
}

// HealthCheck handles health check requests
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	requestContext := context.Request.Context()

	// Probe the upstream rate source
	sourceError := handlers.engine.Source.HealthCheck(requestContext)

	healthStatus := "healthy"
	if sourceError != nil {
		healthStatus = "degraded"
		handlers.logger.Warnf("Rate source health check failed: %v", sourceError)
	}

	healthCheckResponse := models.HealthCheck{
		Status:    healthStatus,
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(handlers.startTime).String(),
	}

	context.JSON(http.StatusOK, healthCheckResponse)
}

// GetActiveCurrency returns the currently active display currency
func (handlers *Handlers) GetActiveCurrency(context *gin.Context) {
	context.JSON(http.StatusOK, models.CurrencyChanged{Currency: handlers.engine.State.Currency()})
}

// SelectCurrency switches the active display currency
func (handlers *Handlers) SelectCurrency(context *gin.Context) {
	var request models.CurrencyChanged
	if bindError := context.ShouldBindJSON(&request); bindError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request body", bindError.Error())
		return
	}

	currency := models.CurrencyCode(strings.ToUpper(strings.TrimSpace(string(request.Currency))))
	if selectError := handlers.engine.Selector.SelectCurrency(context.Request.Context(), currency); selectError != nil {
		handlers.writeErrorResponse(context, http.StatusUnprocessableEntity, "cannot select currency", selectError.Error())
		return
	}

	// Accepted covers both the immediate switch and the throttle-deferred
	// one; either way the selection will be honored exactly once.
	context.JSON(http.StatusAccepted, models.CurrencyChanged{Currency: currency})
}

// GetRate resolves a single directional pair
func (handlers *Handlers) GetRate(context *gin.Context) {
	from := models.CurrencyCode(strings.ToUpper(context.Query("from")))
	to := models.CurrencyCode(strings.ToUpper(context.DefaultQuery("to", string(handlers.engine.State.Currency()))))
	if from == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "missing query parameter", "from is required")
		return
	}

	rate, resolveError := handlers.engine.Scheduler.ResolvePair(context.Request.Context(), from, to)
	if resolveError != nil {
		handlers.writeErrorResponse(context, http.StatusBadGateway, "rate unavailable", resolveError.Error())
		return
	}

	context.JSON(http.StatusOK, gin.H{
		"from": from,
		"to":   to,
		"rate": rate,
	})
}

// GetDisplay refreshes and returns every binding rendered in the active currency
func (handlers *Handlers) GetDisplay(context *gin.Context) {
	activeCurrency := handlers.engine.State.Currency()
	stats := handlers.engine.Scheduler.RefreshAll(context.Request.Context(), activeCurrency)

	context.JSON(http.StatusOK, gin.H{
		"currency": activeCurrency,
		"stats":    stats,
		"bindings": handlers.engine.Registry.Bindings(),
	})
}

// RegisterBinding adds a display binding
func (handlers *Handlers) RegisterBinding(context *gin.Context) {
	var binding models.DisplayBinding
	if bindError := context.ShouldBindJSON(&binding); bindError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request body", bindError.Error())
		return
	}
	if binding.Format.Precision == 0 {
		// The JSON zero value means unset; zero-decimal currencies get
		// their digits from the per-currency defaults.
		binding.Format.Precision = -1
	}

	bindingID, registerError := handlers.engine.Registry.Register(binding)
	if registerError != nil {
		handlers.writeErrorResponse(context, http.StatusUnprocessableEntity, "binding rejected", registerError.Error())
		return
	}

	context.JSON(http.StatusCreated, gin.H{"id": bindingID})
}

// UnregisterBinding removes a display binding
func (handlers *Handlers) UnregisterBinding(context *gin.Context) {
	bindingID := context.Param("id")
	if !handlers.engine.Registry.Unregister(bindingID) {
		handlers.writeErrorResponse(context, http.StatusNotFound, "binding not found", bindingID)
		return
	}
	context.Status(http.StatusNoContent)
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	errorResponse := models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	}

	context.JSON(statusCode, errorResponse)
}

// rateLimitMiddleware provides rate limiting using Gin middleware
func (handlers *Handlers) rateLimitMiddleware() gin.HandlerFunc {
	return func(context *gin.Context) {
		clientIP := handlers.rateLimiter.GetClientIP(context.Request)

		if !handlers.rateLimiter.Allow(clientIP) {
			handlers.logger.Warnf("Rate limit exceeded for IP: %s", clientIP)
			context.Header("X-RateLimit-Limit", strconv.Itoa(handlers.rateLimiter.Configuration.RateLimitRequests))
			context.Header("X-RateLimit-Remaining", "0")
			context.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(handlers.rateLimiter.Configuration.RateLimitWindow).Unix(), 10))
			context.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			context.Abort()
			return
		}

		context.Next()
	}
}
