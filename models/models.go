package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment categories accepted by the API.
const (
	TypeStock          = "STOCK"
	TypeBond           = "BOND"
	TypeMutualFund     = "MUTUAL_FUND"
	TypeETF            = "ETF"
	TypeCryptocurrency = "CRYPTOCURRENCY"
)

// Transaction kinds.
const (
	TransactionBuy  = "BUY"
	TransactionSell = "SELL"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Investment struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	UserID        uint            `gorm:"index" json:"userId"`
	Symbol        string          `gorm:"index" json:"symbol"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `gorm:"type:numeric(20,8)" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(20,8)" json:"purchasePrice"`
	CurrentPrice  decimal.Decimal `gorm:"type:numeric(20,8)" json:"currentPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Transaction is immutable once recorded; an investment's quantity is
// adjusted in the same database transaction that creates one.
type Transaction struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	UserID       uint            `gorm:"index" json:"userId"`
	InvestmentID uint            `gorm:"index" json:"investmentId"`
	Investment   *Investment     `gorm:"constraint:OnDelete:CASCADE" json:"investment,omitempty"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `gorm:"type:numeric(20,8)" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:numeric(20,8)" json:"price"`
	Date         time.Time       `json:"date"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func ValidInvestmentType(t string) bool {
	switch t {
	case TypeStock, TypeBond, TypeMutualFund, TypeETF, TypeCryptocurrency:
		return true
	}
	return false
}
