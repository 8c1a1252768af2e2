package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type TransactionHandler struct {
	db *gorm.DB
}

func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

type CreateTransactionInput struct {
	InvestmentID uint            `json:"investmentId" binding:"required"`
	Type         string          `json:"type" binding:"required,oneof=BUY SELL"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Date         string          `json:"date"`
}

// parseTransactionDate accepts full RFC3339 timestamps as well as
// date-only values like "2024-01-15", which is what date pickers
// submit.
func parseTransactionDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func (h *TransactionHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page, limit := pageParams(c)

	filters := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", user.ID)
		if t := c.Query("type"); t != "" {
			db = db.Where("type = ?", t)
		}
		if investmentID := c.Query("investmentId"); investmentID != "" {
			db = db.Where("investment_id = ?", investmentID)
		}
		return db
	}

	var totalCount int64
	if err := h.db.Model(&models.Transaction{}).Scopes(filters).Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("transaction count failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	var transactions []models.Transaction
	if err := h.db.Scopes(filters).Preload("Investment").
		Order("date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		log.Error().Err(err).Msg("transaction list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"transactions": portfolio.EnrichTransactions(transactions),
		"pagination": pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  totalCount,
			Limit:       limit,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	})
}

func (h *TransactionHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	var transaction models.Transaction
	if err := h.db.Preload("Investment").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&transaction).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	c.JSON(http.StatusOK, portfolio.EnrichTransaction(transaction))
}

// sumQuantity totals the quantity of one kind of posting against an
// investment.
func sumQuantity(db *gorm.DB, investmentID uint, txType string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := db.Model(&models.Transaction{}).
		Where("investment_id = ? AND type = ?", investmentID, txType).
		Select("COALESCE(SUM(quantity), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Create records a BUY or SELL posting. A SELL may not exceed the net
// quantity accumulated from prior postings; the check, the insert and
// the investment quantity adjustment all run in one database
// transaction.
func (h *TransactionHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input CreateTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	var details []string
	if !input.Quantity.IsPositive() {
		details = append(details, "quantity must be positive")
	}
	if !input.Price.IsPositive() {
		details = append(details, "price must be positive")
	}
	date := time.Now()
	if input.Date != "" {
		parsed, err := parseTransactionDate(input.Date)
		if err != nil {
			details = append(details, "date must be an ISO date")
		} else {
			date = parsed
		}
	}
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": details})
		return
	}

	var investment models.Investment
	if err := h.db.Where("id = ? AND user_id = ?", input.InvestmentID, user.ID).First(&investment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if input.Type == models.TransactionSell {
		totalBought, err := sumQuantity(tx, investment.ID, models.TransactionBuy)
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
			return
		}
		totalSold, err := sumQuantity(tx, investment.ID, models.TransactionSell)
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
			return
		}

		available := totalBought.Sub(totalSold)
		if input.Quantity.GreaterThan(available) {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Insufficient quantity available for sale",
				"available": available.String(),
			})
			return
		}
	}

	transaction := models.Transaction{
		UserID:       user.ID,
		InvestmentID: investment.ID,
		Type:         input.Type,
		Quantity:     input.Quantity,
		Price:        input.Price,
		Date:         date,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}

	adjustment := "quantity + ?"
	if input.Type == models.TransactionSell {
		adjustment = "quantity - ?"
	}
	if err := tx.Model(&models.Investment{}).
		Where("id = ?", investment.ID).
		Update("quantity", gorm.Expr(adjustment, input.Quantity)).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}

	log.Info().
		Str("type", input.Type).
		Str("quantity", input.Quantity.String()).
		Str("symbol", investment.Symbol).
		Str("email", user.Email).
		Msg("transaction created")

	// The write is durable at this point; enrich from the investment
	// already in hand rather than refetching.
	if input.Type == models.TransactionSell {
		investment.Quantity = investment.Quantity.Sub(input.Quantity)
	} else {
		investment.Quantity = investment.Quantity.Add(input.Quantity)
	}
	transaction.Investment = &investment

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Transaction created successfully",
		"transaction": portfolio.EnrichTransaction(transaction),
	})
}

func (h *TransactionHandler) sideTotals(userID uint, txType string) (count int64, quantity, value decimal.Decimal, err error) {
	if err = h.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error; err != nil {
		return
	}
	row := h.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Select("COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity * price), 0)").
		Row()
	err = row.Scan(&quantity, &value)
	return
}

func (h *TransactionHandler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var totalTransactions int64
	if err := h.db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&totalTransactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction statistics"})
		return
	}

	buyCount, buyQuantity, buyValue, err := h.sideTotals(user.ID, models.TransactionBuy)
	if err != nil {
		log.Error().Err(err).Msg("buy totals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction statistics"})
		return
	}
	sellCount, sellQuantity, sellValue, err := h.sideTotals(user.ID, models.TransactionSell)
	if err != nil {
		log.Error().Err(err).Msg("sell totals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction statistics"})
		return
	}

	var recent []models.Transaction
	if err := h.db.Preload("Investment").
		Where("user_id = ?", user.ID).
		Order("date DESC").Limit(5).
		Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalTransactions": totalTransactions,
		"buyTransactions": gin.H{
			"count":         buyCount,
			"totalQuantity": buyQuantity.String(),
			"totalValue":    buyValue.StringFixed(2),
		},
		"sellTransactions": gin.H{
			"count":         sellCount,
			"totalQuantity": sellQuantity.String(),
			"totalValue":    sellValue.StringFixed(2),
		},
		"recentTransactions": portfolio.EnrichTransactions(recent),
	})
}
