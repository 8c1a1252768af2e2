package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portfolio-tracker/middleware"
	"portfolio-tracker/models"
	"portfolio-tracker/portfolio"
)

type InvestmentHandler struct {
	db *gorm.DB
}

func NewInvestmentHandler(db *gorm.DB) *InvestmentHandler {
	return &InvestmentHandler{db: db}
}

type CreateInvestmentInput struct {
	Symbol        string          `json:"symbol" binding:"required,max=20"`
	Name          string          `json:"name" binding:"required,max=200"`
	Type          string          `json:"type" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
}

type UpdateInvestmentInput struct {
	Symbol        *string          `json:"symbol"`
	Name          *string          `json:"name"`
	Type          *string          `json:"type"`
	Quantity      *decimal.Decimal `json:"quantity"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice"`
}

// investmentView is an investment enriched with its valuation, under
// the field names the investments endpoints use.
type investmentView struct {
	models.Investment
	TotalValue       string `json:"totalValue"`
	TotalCost        string `json:"totalCost"`
	TotalReturn      string `json:"totalReturn"`
	ReturnPercentage string `json:"returnPercentage"`
}

func enrichInvestment(inv models.Investment) investmentView {
	m := portfolio.ComputeMetrics(inv)
	return investmentView{
		Investment:       inv,
		TotalValue:       m.CurrentValue.StringFixed(2),
		TotalCost:        m.CostBasis.StringFixed(2),
		TotalReturn:      m.ReturnValue.StringFixed(2),
		ReturnPercentage: m.ReturnPercentage.StringFixed(2),
	}
}

// parseID reads a numeric path parameter; false means the resource
// cannot exist.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (h *InvestmentHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var investments []models.Investment
	if err := h.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&investments).Error; err != nil {
		log.Error().Err(err).Msg("investment list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch investments"})
		return
	}

	enriched := make([]investmentView, 0, len(investments))
	for _, inv := range investments {
		enriched = append(enriched, enrichInvestment(inv))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  enriched,
		"total": len(enriched),
	})
}

func (h *InvestmentHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	var investment models.Investment
	if err := h.db.Where("id = ? AND user_id = ?", id, user.ID).First(&investment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	var transactions []models.Transaction
	if err := h.db.Where("investment_id = ?", investment.ID).
		Order("date DESC").Limit(10).Find(&transactions).Error; err != nil {
		log.Error().Err(err).Msg("investment transactions fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch investment"})
		return
	}

	c.JSON(http.StatusOK, struct {
		investmentView
		Transactions []models.Transaction `json:"transactions"`
	}{enrichInvestment(investment), transactions})
}

func (h *InvestmentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var input CreateInvestmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	var details []string
	if !models.ValidInvestmentType(input.Type) {
		details = append(details, "type must be one of STOCK, BOND, MUTUAL_FUND, ETF, CRYPTOCURRENCY")
	}
	if !input.Quantity.IsPositive() {
		details = append(details, "quantity must be positive")
	}
	if !input.PurchasePrice.IsPositive() {
		details = append(details, "purchasePrice must be positive")
	}
	if !input.CurrentPrice.IsPositive() {
		details = append(details, "currentPrice must be positive")
	}
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": details})
		return
	}

	investment := models.Investment{
		UserID:        user.ID,
		Symbol:        strings.ToUpper(input.Symbol),
		Name:          input.Name,
		Type:          input.Type,
		Quantity:      input.Quantity,
		PurchasePrice: input.PurchasePrice,
		CurrentPrice:  input.CurrentPrice,
	}
	if err := h.db.Create(&investment).Error; err != nil {
		log.Error().Err(err).Msg("investment create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create investment"})
		return
	}

	log.Info().Str("symbol", investment.Symbol).Str("email", user.Email).Msg("investment created")

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Investment created successfully",
		"investment": investment,
	})
}

func (h *InvestmentHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	var input UpdateInvestmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{err.Error()}})
		return
	}

	updates := make(map[string]interface{})
	var details []string
	if input.Symbol != nil {
		if *input.Symbol == "" || len(*input.Symbol) > 20 {
			details = append(details, "symbol must be 1-20 characters")
		} else {
			updates["symbol"] = strings.ToUpper(*input.Symbol)
		}
	}
	if input.Name != nil {
		if *input.Name == "" || len(*input.Name) > 200 {
			details = append(details, "name must be 1-200 characters")
		} else {
			updates["name"] = *input.Name
		}
	}
	if input.Type != nil {
		if !models.ValidInvestmentType(*input.Type) {
			details = append(details, "type must be one of STOCK, BOND, MUTUAL_FUND, ETF, CRYPTOCURRENCY")
		} else {
			updates["type"] = *input.Type
		}
	}
	if input.Quantity != nil {
		if !input.Quantity.IsPositive() {
			details = append(details, "quantity must be positive")
		} else {
			updates["quantity"] = *input.Quantity
		}
	}
	if input.PurchasePrice != nil {
		if !input.PurchasePrice.IsPositive() {
			details = append(details, "purchasePrice must be positive")
		} else {
			updates["purchase_price"] = *input.PurchasePrice
		}
	}
	if input.CurrentPrice != nil {
		if !input.CurrentPrice.IsPositive() {
			details = append(details, "currentPrice must be positive")
		} else {
			updates["current_price"] = *input.CurrentPrice
		}
	}
	if len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": details})
		return
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []string{"at least one field is required"}})
		return
	}

	var existing models.Investment
	if err := h.db.Where("id = ? AND user_id = ?", id, user.ID).First(&existing).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	if err := h.db.Model(&existing).Updates(updates).Error; err != nil {
		log.Error().Err(err).Msg("investment update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update investment"})
		return
	}

	var investment models.Investment
	if err := h.db.First(&investment, existing.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update investment"})
		return
	}

	log.Info().Str("symbol", investment.Symbol).Str("email", user.Email).Msg("investment updated")

	c.JSON(http.StatusOK, gin.H{
		"message":    "Investment updated successfully",
		"investment": investment,
	})
}

// Delete removes an investment and its transactions in one unit of
// work.
func (h *InvestmentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	var investment models.Investment
	if err := h.db.Where("id = ? AND user_id = ?", id, user.ID).First(&investment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Investment not found"})
		return
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("investment_id = ?", investment.ID).Delete(&models.Transaction{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete investment"})
		return
	}
	if err := tx.Delete(&investment).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete investment"})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete investment"})
		return
	}

	log.Info().Str("symbol", investment.Symbol).Str("email", user.Email).Msg("investment deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Investment deleted successfully"})
}
