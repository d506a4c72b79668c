package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType separates customers from suppliers
type AccountType string

const (
	AccountTypeCustomer AccountType = "customer"
	AccountTypeSupplier AccountType = "supplier"
)

// Account is a counterparty. Debt and Balance are the sums over all of its
// account books.
type Account struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Email      string          `json:"email" db:"email"`
	Phone      string          `json:"phone" db:"phone"`
	Address    string          `json:"address" db:"address"`
	Debt       decimal.Decimal `json:"debt" db:"debt"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	Type       AccountType     `json:"account_type" db:"account_type"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	LastAction *time.Time      `json:"last_action,omitempty" db:"last_action"`
}

// AccountBook is one running tab of an account.
type AccountBook struct {
	ID        int64           `json:"id" db:"id"`
	AccountID int64           `json:"account_id" db:"account_id"`
	Name      string          `json:"name" db:"name"`
	Debt      decimal.Decimal `json:"debt" db:"debt"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
}

// Aggregate is a debt/balance pair summed over several account books
type Aggregate struct {
	Debt    decimal.Decimal `json:"debt"`
	Balance decimal.Decimal `json:"balance"`
}
