package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"portfolio-tracker/middleware"
)

// NewRouter assembles the API. Tests build the same router against an
// in-memory store.
func NewRouter(db *gorm.DB, auth *middleware.Authenticator, tokens RefreshStore) *gin.Engine {
	router := gin.Default()

	authHandler := NewAuthHandler(db, auth, tokens)
	investments := NewInvestmentHandler(db)
	transactions := NewTransactionHandler(db)
	portfolioHandler := NewPortfolioHandler(db)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/verify", authHandler.Verify)

	protected := api.Group("/")
	protected.Use(auth.RequireAuth())
	{
		protected.GET("/investments", investments.List)
		protected.GET("/investments/:id", investments.Get)
		protected.POST("/investments", investments.Create)
		protected.PUT("/investments/:id", investments.Update)
		protected.DELETE("/investments/:id", investments.Delete)

		protected.GET("/transactions", transactions.List)
		protected.GET("/transactions/stats", transactions.Stats)
		protected.GET("/transactions/:id", transactions.Get)
		protected.POST("/transactions", transactions.Create)

		protected.GET("/portfolio", portfolioHandler.Overview)
		protected.GET("/portfolio/summary", portfolioHandler.Summary)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}
