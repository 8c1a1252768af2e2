package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

type PortfolioHandler struct {
	db *gorm.DB
}

func NewPortfolioHandler(db *gorm.DB) *PortfolioHandler {
	return &PortfolioHandler{db: db}
}

// Overview returns the full aggregation: summary totals, allocation by
// category, performer rankings, recent transactions and the enriched
// holdings themselves.
func (h *PortfolioHandler) Overview(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var investments []models.Investment
	if err := h.db.Where("user_id = ?", user.ID).Find(&investments).Error; err != nil {
		log.Error().Err(err).Msg("portfolio investments fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio data"})
		return
	}

	var recent []models.Transaction
	if err := h.db.Preload("Investment").
		Where("user_id = ?", user.ID).
		Order("date DESC").Limit(10).
		Find(&recent).Error; err != nil {
		log.Error().Err(err).Msg("portfolio transactions fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio data"})
		return
	}

	overview := portfolio.BuildOverview(investments, len(recent))

	c.JSON(http.StatusOK, gin.H{
		"summary":            overview.Summary,
		"assetAllocation":    overview.AssetAllocation,
		"topPerformers":      overview.TopPerformers,
		"worstPerformers":    overview.WorstPerformers,
		"recentTransactions": portfolio.EnrichTransactions(recent),
		"investments":        overview.Investments,
	})
}

// Summary returns the condensed totals and per-type breakdown.
func (h *PortfolioHandler) Summary(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var investmentCount int64
	if err := h.db.Model(&models.Investment{}).Where("user_id = ?", user.ID).Count(&investmentCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio summary"})
		return
	}
	var transactionCount int64
	if err := h.db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&transactionCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio summary"})
		return
	}

	var investments []models.Investment
	if err := h.db.Where("user_id = ?", user.ID).Find(&investments).Error; err != nil {
		log.Error().Err(err).Msg("portfolio summary fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio summary"})
		return
	}

	c.JSON(http.StatusOK, portfolio.BuildCondensedSummary(investments, investmentCount, transactionCount))
}
